// Package config provides configuration loading for the pricing engine.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SupportedVersions lists all schema versions supported by this loader.
var SupportedVersions = []int{1}

// versionHeader is used to extract just the version from YAML.
type versionHeader struct {
	Version *int `yaml:"version"`
}

// AnthropicConfig names the Claude models used for each call type.
type AnthropicConfig struct {
	// GenerationModel produces quotes; the heaviest call.
	GenerationModel string `yaml:"generation_model"`
	// ClassificationModel maps descriptions to categories; fast and cheap.
	ClassificationModel string `yaml:"classification_model"`
	// AnalysisModel turns quote diffs into structured corrections.
	AnalysisModel string `yaml:"analysis_model"`
	// MaxTokens bounds generation responses.
	MaxTokens int `yaml:"max_tokens"`
}

// LearningConfig holds the tuning constants for the knowledge store and
// prompt assembly.
type LearningConfig struct {
	// MaxAdjustments caps learned_adjustments per category; oldest evicted first.
	MaxAdjustments int `yaml:"max_adjustments"`
	// SmoothingK is the half-rise point of the confidence curve.
	SmoothingK int `yaml:"smoothing_k"`
	// ConfidenceCap is the asymptote of the confidence curve.
	ConfidenceCap float64 `yaml:"confidence_cap"`
	// MaxExamples bounds few-shot correction examples in the prompt.
	MaxExamples int `yaml:"max_examples"`
	// FallbackCategory receives quotes when classification is unavailable.
	FallbackCategory string `yaml:"fallback_category"`
}

// BusinessTerms are contractor business terms rendered into every prompt.
type BusinessTerms struct {
	CompanyName    string `yaml:"company_name,omitempty"`
	PaymentTerms   string `yaml:"payment_terms,omitempty"`
	Warranty       string `yaml:"warranty,omitempty"`
	QuoteValidDays int    `yaml:"quote_valid_days,omitempty"`
}

// Config is the engine configuration, schema version 1.
type Config struct {
	Version       int             `yaml:"version"`
	DataDir       string          `yaml:"data_dir,omitempty"`
	Anthropic     AnthropicConfig `yaml:"anthropic"`
	Learning      LearningConfig  `yaml:"learning"`
	BusinessTerms BusinessTerms   `yaml:"business_terms"`
}

// Default returns a Config with all defaults applied.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Version: 1,
		DataDir: filepath.Join(home, ".quotecraft"),
		Anthropic: AnthropicConfig{
			GenerationModel:     "claude-sonnet-4-5",
			ClassificationModel: "claude-haiku-4-5",
			AnalysisModel:       "claude-haiku-4-5",
			MaxTokens:           2048,
		},
		Learning: LearningConfig{
			MaxAdjustments:   20,
			SmoothingK:       6,
			ConfidenceCap:    0.95,
			MaxExamples:      3,
			FallbackCategory: "general",
		},
	}
}

// Load parses a Config from YAML data with schema version validation.
func Load(data []byte) (*Config, error) {
	var header versionHeader
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if header.Version == nil {
		return nil, errors.New("version field is required")
	}

	switch *header.Version {
	case 1:
		return loadV1(data)
	default:
		return nil, fmt.Errorf("unsupported schema version: %d (supported: %v)", *header.Version, SupportedVersions)
	}
}

// LoadFile parses a Config from a YAML file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Load(data)
}

// LoadFromEnv loads the config named by QUOTECRAFT_CONFIG, or the defaults
// when the variable is unset.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("QUOTECRAFT_CONFIG")
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

func loadV1(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config v1: %w", err)
	}

	if cfg.Learning.MaxAdjustments <= 0 {
		return nil, errors.New("learning.max_adjustments must be positive")
	}
	if cfg.Learning.SmoothingK <= 0 {
		return nil, errors.New("learning.smoothing_k must be positive")
	}
	if cfg.Learning.ConfidenceCap <= 0 || cfg.Learning.ConfidenceCap > 1 {
		return nil, errors.New("learning.confidence_cap must be in (0, 1]")
	}
	if cfg.Learning.FallbackCategory == "" {
		return nil, errors.New("learning.fallback_category is required")
	}
	if cfg.Anthropic.GenerationModel == "" || cfg.Anthropic.ClassificationModel == "" || cfg.Anthropic.AnalysisModel == "" {
		return nil, errors.New("anthropic model names must not be empty")
	}

	return cfg, nil
}
