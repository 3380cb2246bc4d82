// Package merger applies structured corrections to the knowledge store.
package merger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tinkerloft/quotecraft/internal/knowledge"
	"github.com/tinkerloft/quotecraft/internal/metrics"
	"github.com/tinkerloft/quotecraft/internal/model"
	"github.com/tinkerloft/quotecraft/internal/quote"
)

// Merger converts correction records into learned adjustments. Merges are
// keyed by quote identity: a quote that has already learned is a no-op, so a
// retried learn job never double-counts samples or statements.
type Merger struct {
	Knowledge *knowledge.Store
	Quotes    *quote.Store

	// Metrics is optional; when set, merge and no-op events are counted.
	Metrics *metrics.Metrics
}

// NewMerger creates a Merger over the given stores.
func NewMerger(kn *knowledge.Store, quotes *quote.Store) *Merger {
	return &Merger{Knowledge: kn, Quotes: quotes}
}

// Apply merges a correction record into the quote's category and marks the
// quote learned. A nil or empty record still marks the quote learned (nothing
// to merge, but the quote must not be reprocessed). Each statement becomes
// one adjustment; the sample count increments exactly once per correction,
// not once per statement.
func (m *Merger) Apply(ctx context.Context, q *model.Quote, rec *model.CorrectionRecord) error {
	if q.Status == model.QuoteStatusLearned {
		slog.InfoContext(ctx, "quote already learned, skipping merge", "quote_id", q.ID)
		if m.Metrics != nil {
			m.Metrics.LearnNoopsTotal.Inc()
		}
		return nil
	}

	if rec.IsEmpty() {
		if _, err := m.Quotes.MarkLearned(q.ContractorID, q.ID); err != nil {
			return fmt.Errorf("marking quote learned: %w", err)
		}
		slog.InfoContext(ctx, "no correction to merge", "quote_id", q.ID)
		if m.Metrics != nil {
			m.Metrics.LearnNoopsTotal.Inc()
		}
		return nil
	}

	key := rec.CategoryKey
	if key == "" {
		key = q.CategoryKey
	}

	for _, stmt := range statements(rec) {
		if err := m.Knowledge.AppendAdjustment(q.ContractorID, key, stmt); err != nil {
			return fmt.Errorf("appending adjustment: %w", err)
		}
	}

	cat, err := m.Knowledge.RecordSample(q.ContractorID, key)
	if err != nil {
		return fmt.Errorf("recording sample: %w", err)
	}

	if _, err := m.Quotes.MarkLearned(q.ContractorID, q.ID); err != nil {
		return fmt.Errorf("marking quote learned: %w", err)
	}

	slog.InfoContext(ctx, "correction merged",
		"quote_id", q.ID, "category", key,
		"samples", cat.Samples, "confidence", cat.Confidence)
	if m.Metrics != nil {
		m.Metrics.CorrectionsMergedTotal.Inc()
	}
	return nil
}

// statements flattens a record into individual adjustment statements.
// Multi-part adjustments are not split further; the overall tendency, when
// present, is stored as one more free-text statement.
func statements(rec *model.CorrectionRecord) []string {
	out := make([]string, 0, len(rec.PricingAdjustments)+len(rec.NewPricingRules)+1)
	out = append(out, rec.PricingAdjustments...)
	out = append(out, rec.NewPricingRules...)
	if rec.OverallTendency != "" {
		out = append(out, "Tendency: "+rec.OverallTendency)
	}
	return out
}
