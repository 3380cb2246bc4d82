package llm

import (
	"context"
	"encoding/json"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
)

// AnthropicCompletion is a CompletionService backed by the Anthropic Messages
// API. Credentials come from the environment (ANTHROPIC_API_KEY).
type AnthropicCompletion struct {
	client    anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropicCompletion creates a completion service for the given model ID.
func NewAnthropicCompletion(model string, maxTokens int) *AnthropicCompletion {
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	return &AnthropicCompletion{
		client:    anthropic.NewClient(),
		model:     anthropic.Model(model),
		maxTokens: int64(maxTokens),
	}
}

// Complete sends the prompt, extracts the JSON object from the response, and
// validates it against schema before returning.
func (a *AnthropicCompletion) Complete(ctx context.Context, prompt string, schema string) (map[string]any, error) {
	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			{
				Role: anthropic.MessageParamRoleUser,
				Content: []anthropic.ContentBlockParamUnion{
					{OfText: &anthropic.TextBlockParam{Text: prompt}},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	var rawText string
	for _, block := range msg.Content {
		if block.Type == "text" {
			rawText += block.Text
		}
	}
	if rawText == "" {
		return nil, fmt.Errorf("%w: empty response", ErrServiceUnavailable)
	}

	return DecodeResponse(rawText, schema)
}

// DecodeResponse extracts the JSON object from raw model output, decodes it,
// and validates it against schema. It is exported so it can be tested
// independently of the API client.
func DecodeResponse(rawText string, schema string) (map[string]any, error) {
	cleaned := ExtractJSONObject(rawText)

	var doc map[string]any
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, &SchemaViolationError{Violations: []string{fmt.Sprintf("response is not a JSON object: %v", err)}}
	}

	violations, err := ValidateDocument(schema, doc)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		return nil, &SchemaViolationError{Violations: violations}
	}

	return doc, nil
}
