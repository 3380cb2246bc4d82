// Package workflow contains Temporal workflow definitions.
package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/tinkerloft/quotecraft/internal/activity"
)

// Query names
const (
	QueryLearnStatus = "get_learn_status"
)

// LearnStatus reports how far a learn run has progressed.
type LearnStatus string

const (
	LearnStatusAnalyzing LearnStatus = "analyzing"
	LearnStatusMerging   LearnStatus = "merging"
	LearnStatusCompleted LearnStatus = "completed"
	LearnStatusFailed    LearnStatus = "failed"
)

// LearnInput identifies the edited quote to learn from.
type LearnInput struct {
	ContractorID string `json:"contractor_id"`
	QuoteID      string `json:"quote_id"`
}

// Learn analyzes an edited quote and merges what it teaches into the
// contractor's pricing knowledge. The two activities are idempotent, so a
// retried run against an already-learned quote is harmless.
func Learn(ctx workflow.Context, input LearnInput) error {
	logger := workflow.GetLogger(ctx)
	status := LearnStatusAnalyzing

	if err := workflow.SetQueryHandler(ctx, QueryLearnStatus, func() (LearnStatus, error) {
		return status, nil
	}); err != nil {
		return fmt.Errorf("failed to register status query: %w", err)
	}

	// One retry per activity: correction analysis calls an external model and
	// transient failures are common, but a quote that keeps failing should not
	// keep burning API calls.
	retryPolicy := &temporal.RetryPolicy{
		InitialInterval:    time.Second,
		MaximumInterval:    time.Minute,
		BackoffCoefficient: 2.0,
		MaximumAttempts:    2,
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy:         retryPolicy,
	})

	logger.Info("Starting learn run", "quote_id", input.QuoteID, "contractor_id", input.ContractorID)

	var extracted activity.ExtractCorrectionResult
	if err := workflow.ExecuteActivity(ctx, activity.ActivityExtractCorrection, activity.ExtractCorrectionInput{
		ContractorID: input.ContractorID,
		QuoteID:      input.QuoteID,
	}).Get(ctx, &extracted); err != nil {
		status = LearnStatusFailed
		return fmt.Errorf("extract correction failed: %w", err)
	}

	status = LearnStatusMerging

	if err := workflow.ExecuteActivity(ctx, activity.ActivityMergeCorrection, activity.MergeCorrectionInput{
		ContractorID: input.ContractorID,
		QuoteID:      input.QuoteID,
		Record:       extracted.Record,
	}).Get(ctx, nil); err != nil {
		status = LearnStatusFailed
		return fmt.Errorf("merge correction failed: %w", err)
	}

	status = LearnStatusCompleted
	logger.Info("Learn run completed", "quote_id", input.QuoteID, "learned_anything", extracted.Record != nil)
	return nil
}
