package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/quotecraft/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load([]byte("version: 1\n"))
	require.NoError(t, err)

	assert.Equal(t, 20, cfg.Learning.MaxAdjustments)
	assert.Equal(t, 6, cfg.Learning.SmoothingK)
	assert.Equal(t, 0.95, cfg.Learning.ConfidenceCap)
	assert.Equal(t, 3, cfg.Learning.MaxExamples)
	assert.Equal(t, "general", cfg.Learning.FallbackCategory)
	assert.Equal(t, "claude-haiku-4-5", cfg.Anthropic.ClassificationModel)
}

func TestLoad_Overrides(t *testing.T) {
	data := []byte(`
version: 1
data_dir: /var/lib/quotecraft
anthropic:
  generation_model: claude-opus-4-5
learning:
  max_adjustments: 10
  fallback_category: misc
business_terms:
  company_name: Acme Renovations
  payment_terms: 50% deposit, balance on completion
  quote_valid_days: 14
`)
	cfg, err := config.Load(data)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/quotecraft", cfg.DataDir)
	assert.Equal(t, "claude-opus-4-5", cfg.Anthropic.GenerationModel)
	assert.Equal(t, "claude-haiku-4-5", cfg.Anthropic.ClassificationModel)
	assert.Equal(t, 10, cfg.Learning.MaxAdjustments)
	assert.Equal(t, "misc", cfg.Learning.FallbackCategory)
	assert.Equal(t, "Acme Renovations", cfg.BusinessTerms.CompanyName)
	assert.Equal(t, 14, cfg.BusinessTerms.QuoteValidDays)
}

func TestLoad_MissingVersion(t *testing.T) {
	_, err := config.Load([]byte("data_dir: /tmp\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "version field is required")
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	_, err := config.Load([]byte("version: 2\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported schema version")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"zero max adjustments", "version: 1\nlearning:\n  max_adjustments: -1\n", "max_adjustments"},
		{"confidence cap above one", "version: 1\nlearning:\n  confidence_cap: 1.5\n", "confidence_cap"},
		{"empty fallback", "version: 1\nlearning:\n  fallback_category: \"\"\n", "fallback_category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
