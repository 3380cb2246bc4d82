// Package category maps job descriptions to pricing categories.
package category

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/tinkerloft/quotecraft/internal/knowledge"
	"github.com/tinkerloft/quotecraft/internal/llm"
	"github.com/tinkerloft/quotecraft/internal/metrics"
	"github.com/tinkerloft/quotecraft/internal/model"
)

// classificationSchema constrains the classifier's structured response.
const classificationSchema = `{
  "type": "object",
  "required": ["match_type", "category"],
  "properties": {
    "match_type": {"type": "string", "enum": ["existing", "new"]},
    "category": {"type": "string", "minLength": 1}
  }
}`

// Resolver maps a job description to an existing or new pricing category.
// Classification outages never fail a resolve: the quote falls back to
// FallbackKey so generation can proceed.
type Resolver struct {
	Classifier  llm.CompletionService
	Store       *knowledge.Store
	FallbackKey string

	// Metrics is optional; when set, fallback events are counted.
	Metrics *metrics.Metrics
}

// NewResolver creates a Resolver with the given fallback category key.
func NewResolver(classifier llm.CompletionService, store *knowledge.Store, fallbackKey string) *Resolver {
	if fallbackKey == "" {
		fallbackKey = "general"
	}
	return &Resolver{Classifier: classifier, Store: store, FallbackKey: fallbackKey}
}

// Resolve classifies a description against the contractor's category set and
// returns the category key, creating the category when the classifier
// proposes a new one. It only errors on storage failures; ambiguity and
// classifier outages resolve to a usable category instead.
func (r *Resolver) Resolve(ctx context.Context, contractorID, description string) (key string, isNew bool, err error) {
	kn, err := r.Store.Get(contractorID)
	if err != nil {
		return "", false, err
	}

	prompt := buildClassificationPrompt(description, keyedDisplayNames(kn.Categories))

	res, completeErr := r.Classifier.Complete(ctx, prompt, classificationSchema)
	if completeErr != nil {
		slog.WarnContext(ctx, "classification unavailable, using fallback category",
			"contractor_id", contractorID, "fallback", r.FallbackKey, "err", completeErr)
		if r.Metrics != nil {
			r.Metrics.ClassificationFallbacks.Inc()
		}
		return r.ensure(contractorID, r.FallbackKey, "General")
	}

	matchType, _ := res["match_type"].(string)
	category, _ := res["category"].(string)

	if matchType == "existing" {
		if kn.Category(category) != nil {
			return category, false, nil
		}
		// The classifier claimed a match we don't have; treat the name as new.
		slog.WarnContext(ctx, "classifier returned unknown existing key, treating as new",
			"contractor_id", contractorID, "key", category)
	}

	newKey := NormalizeKey(category)
	if newKey == "" {
		newKey = r.FallbackKey
	}
	return r.ensure(contractorID, newKey, strings.TrimSpace(category))
}

// ensure returns key, creating the category with zero samples and zero
// confidence if it does not exist yet.
func (r *Resolver) ensure(contractorID, key, displayName string) (string, bool, error) {
	if _, ok, err := r.Store.GetCategory(contractorID, key); err != nil {
		return "", false, err
	} else if ok {
		return key, false, nil
	}

	if displayName == "" {
		displayName = key
	}
	if _, err := r.Store.UpsertCategory(contractorID, key, knowledge.CategoryPatch{DisplayName: &displayName}); err != nil {
		return "", false, err
	}
	return key, true, nil
}

// NormalizeKey turns a display name into a stable category key: lowercase,
// underscore-joined alphanumeric runs.
func NormalizeKey(name string) string {
	var fields []string
	current := strings.Builder{}
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			current.WriteRune(r)
		} else if current.Len() > 0 {
			fields = append(fields, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}
	return strings.Join(fields, "_")
}

// keyedDisplayNames renders "key: display name" lines in sorted key order so
// a fixed knowledge snapshot always produces the same classifier request.
func keyedDisplayNames(categories map[string]*model.Category) []string {
	keys := make([]string, 0, len(categories))
	for k := range categories {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, categories[k].DisplayName))
	}
	return lines
}

func buildClassificationPrompt(description string, existing []string) string {
	var sb strings.Builder

	sb.WriteString("You classify contractor job descriptions into pricing categories.\n\n")
	sb.WriteString(fmt.Sprintf("Job description: %s\n\n", description))

	if len(existing) > 0 {
		sb.WriteString("Existing categories (key: display name):\n")
		for _, line := range existing {
			sb.WriteString("- " + line + "\n")
		}
		sb.WriteString("\nIf the job fits one of these semantically (not just literally), return its key.\n")
	} else {
		sb.WriteString("There are no existing categories yet.\n")
	}

	sb.WriteString(`
Respond with a JSON object:
{"match_type": "existing", "category": "<existing key>"}
or
{"match_type": "new", "category": "<short display name for a new category>"}

Return ONLY the JSON object, no other text.`)

	return sb.String()
}
