package merger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/quotecraft/internal/knowledge"
	"github.com/tinkerloft/quotecraft/internal/merger"
	"github.com/tinkerloft/quotecraft/internal/model"
	"github.com/tinkerloft/quotecraft/internal/quote"
)

type fixture struct {
	knowledge *knowledge.Store
	quotes    *quote.Store
	merger    *merger.Merger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	kn := knowledge.NewStore(t.TempDir(), knowledge.Params{})
	quotes := quote.NewStore(t.TempDir())
	return &fixture{knowledge: kn, quotes: quotes, merger: merger.NewMerger(kn, quotes)}
}

func (f *fixture) editedQuote(t *testing.T, id string) *model.Quote {
	t.Helper()
	_, err := f.knowledge.UpsertCategory("c1", "deck_construction", knowledge.CategoryPatch{})
	require.NoError(t, err)

	q := &model.Quote{
		ID:           id,
		ContractorID: "c1",
		Description:  "12x14 deck",
		CategoryKey:  "deck_construction",
		LineItems:    []model.LineItem{{Description: "Framing", Total: 2400}},
		Total:        2400,
	}
	require.NoError(t, f.quotes.Create(q))
	updated, err := f.quotes.RecordEdits("c1", id, []model.LineItem{{Description: "Framing", Total: 2800}}, 2800)
	require.NoError(t, err)
	return updated
}

func record() *model.CorrectionRecord {
	return &model.CorrectionRecord{
		CategoryKey:        "deck_construction",
		PricingAdjustments: []string{"Increase framing labor by ~15%"},
		NewPricingRules:    []string{"Add a disposal fee line"},
		OverallTendency:    "underquotes labor",
	}
}

func TestApply_MergesStatementsAndOneSample(t *testing.T) {
	f := newFixture(t)
	q := f.editedQuote(t, "q1")

	require.NoError(t, f.merger.Apply(context.Background(), q, record()))

	cat, ok, err := f.knowledge.GetCategory("c1", "deck_construction")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, []string{
		"Increase framing labor by ~15%",
		"Add a disposal fee line",
		"Tendency: underquotes labor",
	}, cat.LearnedAdjustments)
	assert.Equal(t, 1, cat.Samples, "one sample per correction, not per statement")
	assert.InDelta(t, 1.0/7.0, cat.Confidence, 1e-9)

	stored, err := f.quotes.Get("c1", "q1")
	require.NoError(t, err)
	assert.Equal(t, model.QuoteStatusLearned, stored.Status)
}

func TestApply_Idempotent(t *testing.T) {
	f := newFixture(t)
	q := f.editedQuote(t, "q1")

	require.NoError(t, f.merger.Apply(context.Background(), q, record()))

	// Reprocessing the same quote (e.g. a retried learn job) is a no-op.
	learned, err := f.quotes.Get("c1", "q1")
	require.NoError(t, err)
	require.NoError(t, f.merger.Apply(context.Background(), learned, record()))

	cat, _, err := f.knowledge.GetCategory("c1", "deck_construction")
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Samples)
	assert.Len(t, cat.LearnedAdjustments, 3)
}

func TestApply_EmptyRecordStillLearns(t *testing.T) {
	f := newFixture(t)
	q := f.editedQuote(t, "q1")

	require.NoError(t, f.merger.Apply(context.Background(), q, nil))

	cat, _, err := f.knowledge.GetCategory("c1", "deck_construction")
	require.NoError(t, err)
	assert.Zero(t, cat.Samples, "a no-op correction must not count as a sample")
	assert.Empty(t, cat.LearnedAdjustments)

	stored, err := f.quotes.Get("c1", "q1")
	require.NoError(t, err)
	assert.Equal(t, model.QuoteStatusLearned, stored.Status, "the quote is still marked learned to stop reprocessing")
}

func TestApply_IsolationBetweenCategories(t *testing.T) {
	f := newFixture(t)
	q := f.editedQuote(t, "q1")
	_, err := f.knowledge.UpsertCategory("c1", "painting", knowledge.CategoryPatch{})
	require.NoError(t, err)

	require.NoError(t, f.merger.Apply(context.Background(), q, record()))

	other, _, err := f.knowledge.GetCategory("c1", "painting")
	require.NoError(t, err)
	assert.Empty(t, other.LearnedAdjustments)
	assert.Zero(t, other.Samples)
	assert.Zero(t, other.Confidence)
}

func TestApply_RecordWithoutCategoryUsesQuoteCategory(t *testing.T) {
	f := newFixture(t)
	q := f.editedQuote(t, "q1")

	rec := record()
	rec.CategoryKey = ""
	require.NoError(t, f.merger.Apply(context.Background(), q, rec))

	cat, _, err := f.knowledge.GetCategory("c1", "deck_construction")
	require.NoError(t, err)
	assert.Equal(t, 1, cat.Samples)
}
