// Package llm defines the external model-service contracts consumed by the
// pricing engine, and their Anthropic-backed implementations.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrServiceUnavailable indicates the completion or transcription backend
// could not be reached or did not produce output.
var ErrServiceUnavailable = errors.New("completion service unavailable")

// ErrTranscription indicates audio could not be transcribed.
var ErrTranscription = errors.New("transcription failed")

// SchemaViolationError is returned when a structured response does not
// conform to the requested JSON Schema.
type SchemaViolationError struct {
	Violations []string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("response violates schema: %s", strings.Join(e.Violations, "; "))
}

// CompletionService issues a prompt and returns a structured result validated
// against the given JSON Schema. Implementations fail with
// ErrServiceUnavailable or *SchemaViolationError.
type CompletionService interface {
	Complete(ctx context.Context, prompt string, schema string) (map[string]any, error)
}

// TranscriptionService converts captured audio to text.
type TranscriptionService interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}
