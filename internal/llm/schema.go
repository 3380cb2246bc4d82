package llm

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateDocument validates a decoded JSON document against a JSON Schema.
// It returns the list of violations (nil when the document conforms).
func ValidateDocument(schema string, doc any) ([]string, error) {
	if schema == "" {
		return nil, nil
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	if err := compiled.Validate(doc); err != nil {
		validationErr, ok := err.(*jsonschema.ValidationError)
		if !ok {
			return []string{err.Error()}, nil
		}
		var violations []string
		collectViolations(validationErr, &violations)
		return violations, nil
	}

	return nil, nil
}

// collectViolations recursively extracts validation error messages.
func collectViolations(err *jsonschema.ValidationError, violations *[]string) {
	if err.Message != "" {
		path := err.InstanceLocation
		if path == "" {
			path = "/"
		}
		*violations = append(*violations, fmt.Sprintf("%s: %s", path, err.Message))
	}
	for _, cause := range err.Causes {
		collectViolations(cause, violations)
	}
}
