package correction

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tinkerloft/quotecraft/internal/llm"
	"github.com/tinkerloft/quotecraft/internal/model"
)

// analysisSchema constrains the correction-analysis response to exactly the
// three fields the merger consumes.
const analysisSchema = `{
  "type": "object",
  "required": ["pricing_adjustments", "new_pricing_rules", "overall_tendency"],
  "additionalProperties": false,
  "properties": {
    "pricing_adjustments": {"type": "array", "items": {"type": "string"}},
    "new_pricing_rules": {"type": "array", "items": {"type": "string"}},
    "overall_tendency": {"type": "string"}
  }
}`

// Extractor diffs an AI-generated quote against its user-finalized version
// and turns the diff into a structured correction via an analysis call.
type Extractor struct {
	Analyzer llm.CompletionService
}

// NewExtractor creates an Extractor backed by the given analysis service.
func NewExtractor(analyzer llm.CompletionService) *Extractor {
	return &Extractor{Analyzer: analyzer}
}

// Extract returns the structured correction for an edited quote, or nil when
// there is nothing to learn: an empty diff, an unavailable analysis service,
// or a malformed analysis response all yield the no-op sentinel. Losing a
// correction silently is preferred over corrupting the store.
func (e *Extractor) Extract(ctx context.Context, q *model.Quote) (*model.CorrectionRecord, error) {
	if q.EditDetails == nil {
		return nil, nil
	}

	d := Diff(q)
	if d.Empty() {
		return nil, nil
	}

	prompt := buildAnalysisPrompt(q, d)

	res, err := e.Analyzer.Complete(ctx, prompt, analysisSchema)
	if err != nil {
		slog.WarnContext(ctx, "correction analysis failed, dropping correction",
			"quote_id", q.ID, "err", err)
		return nil, nil
	}

	rec, ok := parseRecord(res)
	if !ok {
		slog.WarnContext(ctx, "correction analysis returned malformed record, dropping correction",
			"quote_id", q.ID)
		return nil, nil
	}
	rec.CategoryKey = q.CategoryKey
	return rec, nil
}

// parseRecord converts the validated response document into a
// CorrectionRecord. Every field is re-checked: a missing field or wrong type
// makes the whole correction unusable.
func parseRecord(doc map[string]any) (*model.CorrectionRecord, bool) {
	adjustments, ok := stringSlice(doc["pricing_adjustments"])
	if !ok {
		return nil, false
	}
	rules, ok := stringSlice(doc["new_pricing_rules"])
	if !ok {
		return nil, false
	}
	tendency, ok := doc["overall_tendency"].(string)
	if !ok {
		return nil, false
	}

	return &model.CorrectionRecord{
		PricingAdjustments: adjustments,
		NewPricingRules:    rules,
		OverallTendency:    strings.TrimSpace(tendency),
	}, true
}

func stringSlice(v any) ([]string, bool) {
	raw, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out, true
}

// buildAnalysisPrompt constructs the prompt sent to the analysis model.
// It is exported for tests via BuildAnalysisPrompt.
func buildAnalysisPrompt(q *model.Quote, d *QuoteDiff) string {
	var sb strings.Builder

	sb.WriteString("You analyze how a contractor corrected an AI-generated price quote.\n\n")
	sb.WriteString(fmt.Sprintf("Original job description: %s\n", q.Description))
	if q.CategoryKey != "" {
		sb.WriteString(fmt.Sprintf("Pricing category: %s\n", q.CategoryKey))
	}
	sb.WriteString("\n## Changes the contractor made\n")
	sb.WriteString(d.Summary())

	sb.WriteString(`
Extract what these corrections teach about this contractor's pricing as a JSON object:
{
  "pricing_adjustments": ["short imperative statements about pricing this kind of job"],
  "new_pricing_rules": ["general pricing rules the corrections imply"],
  "overall_tendency": "one sentence on how the AI quote tends to deviate"
}

Return ONLY the JSON object, no other text.`)

	return sb.String()
}

// BuildAnalysisPrompt exposes prompt construction for tests.
func BuildAnalysisPrompt(q *model.Quote, d *QuoteDiff) string {
	return buildAnalysisPrompt(q, d)
}
