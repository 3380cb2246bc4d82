package activity

import (
	"context"
	"fmt"

	"github.com/tinkerloft/quotecraft/internal/correction"
	"github.com/tinkerloft/quotecraft/internal/merger"
	"github.com/tinkerloft/quotecraft/internal/model"
	"github.com/tinkerloft/quotecraft/internal/quote"
)

// LearnActivities contains the Temporal activities of the learn pipeline:
// analyzing a corrected quote and merging the result into pricing knowledge.
type LearnActivities struct {
	Extractor *correction.Extractor
	Merger    *merger.Merger
	Quotes    *quote.Store
}

// NewLearnActivities creates a LearnActivities.
func NewLearnActivities(extractor *correction.Extractor, mg *merger.Merger, quotes *quote.Store) *LearnActivities {
	return &LearnActivities{Extractor: extractor, Merger: mg, Quotes: quotes}
}

// ExtractCorrectionInput is the input for the ExtractCorrection activity.
type ExtractCorrectionInput struct {
	ContractorID string `json:"contractor_id"`
	QuoteID      string `json:"quote_id"`
}

// ExtractCorrectionResult carries the analysis output. Record is nil when the
// edit taught nothing, which is a normal outcome, not an error.
type ExtractCorrectionResult struct {
	Record *model.CorrectionRecord `json:"record,omitempty"`
}

// ExtractCorrection loads the edited quote and analyzes the difference
// between the generated and final versions.
func (la *LearnActivities) ExtractCorrection(ctx context.Context, input ExtractCorrectionInput) (*ExtractCorrectionResult, error) {
	q, err := la.Quotes.Get(input.ContractorID, input.QuoteID)
	if err != nil {
		return nil, fmt.Errorf("loading quote %s: %w", input.QuoteID, err)
	}

	rec, err := la.Extractor.Extract(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("extracting correction for quote %s: %w", input.QuoteID, err)
	}
	return &ExtractCorrectionResult{Record: rec}, nil
}

// MergeCorrectionInput is the input for the MergeCorrection activity.
type MergeCorrectionInput struct {
	ContractorID string                  `json:"contractor_id"`
	QuoteID      string                  `json:"quote_id"`
	Record       *model.CorrectionRecord `json:"record,omitempty"`
}

// MergeCorrection folds the correction record into the contractor's pricing
// knowledge and marks the quote learned. A nil record still completes the
// quote's lifecycle.
func (la *LearnActivities) MergeCorrection(ctx context.Context, input MergeCorrectionInput) error {
	q, err := la.Quotes.Get(input.ContractorID, input.QuoteID)
	if err != nil {
		return fmt.Errorf("loading quote %s: %w", input.QuoteID, err)
	}

	if err := la.Merger.Apply(ctx, q, input.Record); err != nil {
		return fmt.Errorf("merging correction for quote %s: %w", input.QuoteID, err)
	}
	return nil
}
