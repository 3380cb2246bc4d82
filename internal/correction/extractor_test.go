package correction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/quotecraft/internal/correction"
	"github.com/tinkerloft/quotecraft/internal/llm"
	"github.com/tinkerloft/quotecraft/internal/model"
)

type fakeAnalyzer struct {
	response map[string]any
	err      error
	calls    int
}

func (f *fakeAnalyzer) Complete(_ context.Context, _ string, _ string) (map[string]any, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func editedQuote() *model.Quote {
	return quoteWithEdits(
		[]model.LineItem{{Description: "Framing", Total: 2400}},
		[]model.LineItem{{Description: "Framing", Total: 2800}},
		2400, 2800,
	)
}

func TestExtract_Valid(t *testing.T) {
	fake := &fakeAnalyzer{response: map[string]any{
		"pricing_adjustments": []any{"Increase framing labor by ~15%"},
		"new_pricing_rules":   []any{"Quotes over $2500 include a supervision line"},
		"overall_tendency":    "underquotes framing labor",
	}}
	e := correction.NewExtractor(fake)

	rec, err := e.Extract(context.Background(), editedQuote())
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "deck_construction", rec.CategoryKey)
	assert.Equal(t, []string{"Increase framing labor by ~15%"}, rec.PricingAdjustments)
	assert.Equal(t, []string{"Quotes over $2500 include a supervision line"}, rec.NewPricingRules)
	assert.Equal(t, "underquotes framing labor", rec.OverallTendency)
}

func TestExtract_EmptyDiffIsNoop(t *testing.T) {
	fake := &fakeAnalyzer{}
	e := correction.NewExtractor(fake)

	items := []model.LineItem{{Description: "Framing", Total: 2400}}
	rec, err := e.Extract(context.Background(), quoteWithEdits(items, items, 2400, 2400))
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Zero(t, fake.calls, "no analysis call for an unchanged quote")
}

func TestExtract_NoEditDetailsIsNoop(t *testing.T) {
	e := correction.NewExtractor(&fakeAnalyzer{})
	rec, err := e.Extract(context.Background(), &model.Quote{ID: "q1"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestExtract_ServiceUnavailableIsNoop(t *testing.T) {
	e := correction.NewExtractor(&fakeAnalyzer{err: llm.ErrServiceUnavailable})
	rec, err := e.Extract(context.Background(), editedQuote())
	require.NoError(t, err, "learning is best-effort; outages are absorbed")
	assert.Nil(t, rec)
}

func TestExtract_MalformedResponseIsNoop(t *testing.T) {
	tests := []struct {
		name     string
		response map[string]any
	}{
		{"missing field", map[string]any{"pricing_adjustments": []any{}}},
		{"wrong list type", map[string]any{
			"pricing_adjustments": "not a list",
			"new_pricing_rules":   []any{},
			"overall_tendency":    "x",
		}},
		{"non-string element", map[string]any{
			"pricing_adjustments": []any{42},
			"new_pricing_rules":   []any{},
			"overall_tendency":    "x",
		}},
		{"wrong tendency type", map[string]any{
			"pricing_adjustments": []any{},
			"new_pricing_rules":   []any{},
			"overall_tendency":    7,
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := correction.NewExtractor(&fakeAnalyzer{response: tt.response})
			rec, err := e.Extract(context.Background(), editedQuote())
			require.NoError(t, err)
			assert.Nil(t, rec, "malformed analysis output must not reach the store")
		})
	}
}

func TestBuildAnalysisPrompt(t *testing.T) {
	q := editedQuote()
	d := correction.Diff(q)
	prompt := correction.BuildAnalysisPrompt(q, d)

	assert.Contains(t, prompt, "12x14 deck")
	assert.Contains(t, prompt, "deck_construction")
	assert.Contains(t, prompt, `Changed price of "Framing"`)
	assert.Contains(t, prompt, "pricing_adjustments")

	// Deterministic for identical inputs.
	assert.Equal(t, prompt, correction.BuildAnalysisPrompt(q, correction.Diff(q)))
}
