package server

import (
	"context"

	"github.com/tinkerloft/quotecraft/internal/client"
	"github.com/tinkerloft/quotecraft/internal/model"
	"github.com/tinkerloft/quotecraft/internal/workflow"
)

// QuoteEngine is the interface the server uses to generate and update quotes.
// *engine.Engine satisfies this interface.
type QuoteEngine interface {
	GenerateQuote(ctx context.Context, contractorID, description string) (*model.Quote, error)
	GenerateQuoteFromAudio(ctx context.Context, contractorID string, audio []byte) (*model.Quote, error)
	UpdateQuote(ctx context.Context, contractorID, quoteID string, items []model.LineItem, total float64) (*model.Quote, error)
	DetectOrCreateCategory(ctx context.Context, contractorID, description string) (string, bool, error)
}

// LearnClient exposes the learn pipeline's run state. *client.Client
// satisfies this interface; it may be nil when no Temporal connection exists.
type LearnClient interface {
	GetLearnStatus(ctx context.Context, quoteID string) (workflow.LearnStatus, error)
	WaitForLearn(ctx context.Context, quoteID string) error
	ListLearnRuns(ctx context.Context, statusFilter string, limit int) ([]client.LearnRunInfo, error)
}
