// Package engine orchestrates quote generation and the learning trigger.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tinkerloft/quotecraft/internal/category"
	"github.com/tinkerloft/quotecraft/internal/config"
	"github.com/tinkerloft/quotecraft/internal/knowledge"
	"github.com/tinkerloft/quotecraft/internal/llm"
	"github.com/tinkerloft/quotecraft/internal/metrics"
	"github.com/tinkerloft/quotecraft/internal/model"
	"github.com/tinkerloft/quotecraft/internal/prompt"
	"github.com/tinkerloft/quotecraft/internal/quote"
)

// ErrGeneration marks a failed or malformed quote-generation call. Unlike
// learning failures, it is surfaced to the caller: no quote is better than a
// silently wrong one.
var ErrGeneration = errors.New("quote generation failed")

// quoteSchema constrains the generation response.
const quoteSchema = `{
  "type": "object",
  "required": ["line_items", "total"],
  "properties": {
    "line_items": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["description", "quantity", "unit_price", "total"],
        "properties": {
          "description": {"type": "string", "minLength": 1},
          "quantity": {"type": "number"},
          "unit_price": {"type": "number"},
          "total": {"type": "number"}
        }
      }
    },
    "total": {"type": "number"}
  }
}`

// LearnStarter launches the asynchronous learn pipeline for an edited quote.
type LearnStarter interface {
	StartLearn(ctx context.Context, contractorID, quoteID string) error
}

// Engine wires the core components together. Generation and learning share
// only the knowledge store and never block each other: UpdateQuote returns as
// soon as the learn run is started.
type Engine struct {
	Knowledge *knowledge.Store
	Quotes    *quote.Store
	Resolver  *category.Resolver
	Generator llm.CompletionService

	// Transcriber is optional; without it audio quotes are unsupported.
	Transcriber llm.TranscriptionService
	// Learn is optional; without it edits are stored but nothing is learned.
	Learn LearnStarter
	// Metrics is optional.
	Metrics *metrics.Metrics

	Terms       config.BusinessTerms
	MaxExamples int
}

// GenerateQuote resolves a category, assembles the knowledge-injected prompt,
// and produces a draft quote.
func (e *Engine) GenerateQuote(ctx context.Context, contractorID, description string) (*model.Quote, error) {
	start := time.Now()

	key, isNew, err := e.Resolver.Resolve(ctx, contractorID, description)
	if err != nil {
		return nil, fmt.Errorf("resolving category: %w", err)
	}

	kn, err := e.Knowledge.Get(contractorID)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge: %w", err)
	}

	p := prompt.Assemble(prompt.AssembleInput{
		Description: description,
		CategoryKey: key,
		Knowledge:   kn,
		Examples:    e.recentExamples(contractorID),
		Terms:       e.Terms,
		MaxExamples: e.MaxExamples,
	})

	res, err := e.Generator.Complete(ctx, p, quoteSchema)
	if err != nil {
		e.countGeneration("failure", start)
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	items, total, ok := parseQuoteResponse(res)
	if !ok {
		e.countGeneration("failure", start)
		return nil, fmt.Errorf("%w: malformed generation response", ErrGeneration)
	}

	q := &model.Quote{
		ID:           uuid.New().String()[:8],
		ContractorID: contractorID,
		Description:  description,
		CategoryKey:  key,
		LineItems:    items,
		Total:        total,
	}
	if err := e.Quotes.Create(q); err != nil {
		e.countGeneration("failure", start)
		return nil, fmt.Errorf("storing quote: %w", err)
	}

	e.countGeneration("success", start)
	slog.InfoContext(ctx, "quote generated",
		"quote_id", q.ID, "contractor_id", contractorID,
		"category", key, "new_category", isNew, "total", total)
	return q, nil
}

// GenerateQuoteFromAudio transcribes captured audio and generates a quote
// from the resulting text.
func (e *Engine) GenerateQuoteFromAudio(ctx context.Context, contractorID string, audio []byte) (*model.Quote, error) {
	if e.Transcriber == nil {
		return nil, fmt.Errorf("%w: no transcription service configured", llm.ErrTranscription)
	}
	text, err := e.Transcriber.Transcribe(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrTranscription, err)
	}
	return e.GenerateQuote(ctx, contractorID, text)
}

// UpdateQuote records the user's final line items and starts the learn
// pipeline. The updated quote is returned immediately; learning runs
// asynchronously and its failure never surfaces here.
func (e *Engine) UpdateQuote(ctx context.Context, contractorID, quoteID string, items []model.LineItem, total float64) (*model.Quote, error) {
	q, err := e.Quotes.RecordEdits(contractorID, quoteID, items, total)
	if err != nil {
		return nil, err
	}

	if e.Learn != nil {
		if err := e.Learn.StartLearn(ctx, contractorID, quoteID); err != nil {
			slog.WarnContext(ctx, "failed to start learn run", "quote_id", quoteID, "err", err)
		}
	}
	return q, nil
}

// DetectOrCreateCategory exposes category resolution to the surrounding
// application.
func (e *Engine) DetectOrCreateCategory(ctx context.Context, contractorID, description string) (string, bool, error) {
	return e.Resolver.Resolve(ctx, contractorID, description)
}

// recentExamples builds few-shot correction examples from the contractor's
// most recently corrected quotes. Failures degrade to no examples.
func (e *Engine) recentExamples(contractorID string) []prompt.Example {
	quotes, err := e.Quotes.List(contractorID)
	if err != nil {
		slog.Warn("failed to list quotes for examples", "contractor_id", contractorID, "err", err)
		return nil
	}

	maxExamples := e.MaxExamples
	if maxExamples <= 0 {
		maxExamples = prompt.DefaultMaxExamples
	}

	var examples []prompt.Example
	for _, q := range quotes {
		if !q.WasEdited || q.EditDetails == nil {
			continue
		}
		examples = append(examples, prompt.Example{
			JobDescription: q.Description,
			QuotedTotal:    q.Total,
			FinalTotal:     q.EditDetails.Total,
		})
		if len(examples) == maxExamples {
			break
		}
	}
	return examples
}

func (e *Engine) countGeneration(result string, start time.Time) {
	if e.Metrics == nil {
		return
	}
	e.Metrics.QuotesGeneratedTotal.WithLabelValues(result).Inc()
	if result == "success" {
		e.Metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	}
}

// parseQuoteResponse converts the validated generation response into line
// items and a total.
func parseQuoteResponse(doc map[string]any) ([]model.LineItem, float64, bool) {
	rawItems, ok := doc["line_items"].([]any)
	if !ok || len(rawItems) == 0 {
		return nil, 0, false
	}
	total, ok := asFloat(doc["total"])
	if !ok {
		return nil, 0, false
	}

	items := make([]model.LineItem, 0, len(rawItems))
	for _, raw := range rawItems {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, 0, false
		}
		desc, ok := m["description"].(string)
		if !ok || desc == "" {
			return nil, 0, false
		}
		qty, ok := asFloat(m["quantity"])
		if !ok {
			return nil, 0, false
		}
		unitPrice, ok := asFloat(m["unit_price"])
		if !ok {
			return nil, 0, false
		}
		lineTotal, ok := asFloat(m["total"])
		if !ok {
			return nil, 0, false
		}
		items = append(items, model.LineItem{
			Description: desc,
			Quantity:    qty,
			UnitPrice:   unitPrice,
			Total:       lineTotal,
		})
	}
	return items, total, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
