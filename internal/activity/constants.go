// Package activity contains Temporal activity implementations.
package activity

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// Activity name constants to prevent typos between registration and workflow code.
const (
	ActivityExtractCorrection = "ExtractCorrection"
	ActivityMergeCorrection   = "MergeCorrection"
)

// ConfigValidationMode controls how configuration validation behaves.
type ConfigValidationMode int

const (
	// ConfigModeWarn logs warnings for missing configuration but allows startup.
	ConfigModeWarn ConfigValidationMode = iota
	// ConfigModeRequire returns an error if required configuration is missing.
	ConfigModeRequire
)

// ConfigIssue represents a configuration problem found during validation.
type ConfigIssue struct {
	Name        string
	Description string
	Required    bool
}

// ValidateConfig checks that required configuration is present.
func ValidateConfig() []ConfigIssue {
	var issues []ConfigIssue

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		issues = append(issues, ConfigIssue{
			Name:        "ANTHROPIC_API_KEY",
			Description: "Required for correction analysis",
			Required:    true,
		})
	}

	if os.Getenv("TEMPORAL_ADDRESS") == "" {
		issues = append(issues, ConfigIssue{
			Name:        "TEMPORAL_ADDRESS",
			Description: "Temporal server address, defaulting to localhost:7233",
			Required:    false,
		})
	}

	return issues
}

// CheckConfig validates configuration and handles issues according to the mode.
// In ConfigModeWarn, it logs warnings and returns nil.
// In ConfigModeRequire, it returns an error if any required config is missing.
func CheckConfig(mode ConfigValidationMode) error {
	issues := ValidateConfig()
	if len(issues) == 0 {
		return nil
	}

	var requiredMissing []string
	for _, issue := range issues {
		if issue.Required {
			requiredMissing = append(requiredMissing, issue.Name)
		}
		log.Printf("CONFIG WARNING: %s not set - %s", issue.Name, issue.Description)
	}

	if mode == ConfigModeRequire && len(requiredMissing) > 0 {
		return fmt.Errorf("required configuration missing: %s (set REQUIRE_CONFIG=false to run with warnings only)",
			strings.Join(requiredMissing, ", "))
	}

	return nil
}
