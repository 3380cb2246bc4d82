package prompt_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/quotecraft/internal/config"
	"github.com/tinkerloft/quotecraft/internal/model"
	"github.com/tinkerloft/quotecraft/internal/prompt"
)

func knowledgeWithBrandStrategy() *model.PricingKnowledge {
	kn := model.NewPricingKnowledge()
	kn.Categories["brand_strategy"] = &model.Category{
		Key:                "brand_strategy",
		DisplayName:        "Brand Strategy",
		LearnedAdjustments: []string{"Add 25% for rush"},
		Samples:            12,
		Confidence:         12.0 / 18.0,
	}
	return kn
}

func TestAssemble_Deterministic(t *testing.T) {
	in := prompt.AssembleInput{
		Description: "Brand refresh for a retail chain",
		CategoryKey: "brand_strategy",
		Knowledge:   knowledgeWithBrandStrategy(),
		Examples:    []prompt.Example{{JobDescription: "Logo package", QuotedTotal: 3000, FinalTotal: 3600}},
		Terms:       config.BusinessTerms{CompanyName: "Acme Studio", QuoteValidDays: 30},
	}

	first := prompt.Assemble(in)
	second := prompt.Assemble(in)
	assert.Equal(t, first, second, "identical inputs must produce byte-identical prompts")
}

func TestAssemble_SectionOrder(t *testing.T) {
	kn := knowledgeWithBrandStrategy()
	kn.GlobalRules = []string{"Always include a revisions line"}
	in := prompt.AssembleInput{
		Description: "Brand refresh",
		CategoryKey: "brand_strategy",
		Knowledge:   kn,
		Examples:    []prompt.Example{{JobDescription: "Logo package", QuotedTotal: 3000, FinalTotal: 3600}},
		Terms:       config.BusinessTerms{CompanyName: "Acme Studio"},
	}

	p := prompt.Assemble(in)

	sections := []string{
		"## Job Description",
		"## Learned Pricing Adjustments",
		"## Contractor Pricing Rules",
		"## Business Terms",
		"## Past Corrections",
		"Return ONLY the JSON object",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(p, s)
		require.GreaterOrEqual(t, idx, 0, "missing section %q", s)
		assert.Greater(t, idx, last, "section %q out of order", s)
		last = idx
	}
}

func TestAssemble_AdjustmentsSectionContent(t *testing.T) {
	p := prompt.Assemble(prompt.AssembleInput{
		Description: "Brand refresh",
		CategoryKey: "brand_strategy",
		Knowledge:   knowledgeWithBrandStrategy(),
	})

	assert.Contains(t, p, "Add 25% for rush")
	assert.Contains(t, p, "12 past corrections")
	assert.Contains(t, p, "confidence 0.67")
}

func TestAssemble_OmitsAdjustmentsForNewCategory(t *testing.T) {
	kn := model.NewPricingKnowledge()
	kn.Categories["deck_construction"] = &model.Category{
		Key:         "deck_construction",
		DisplayName: "Deck Construction",
	}

	p := prompt.Assemble(prompt.AssembleInput{
		Description: "12x14 deck",
		CategoryKey: "deck_construction",
		Knowledge:   kn,
	})

	assert.NotContains(t, p, "Learned Pricing Adjustments")
	assert.NotContains(t, p, "confidence")
	assert.Contains(t, p, "12x14 deck")
}

func TestAssemble_OmitsEmptySections(t *testing.T) {
	p := prompt.Assemble(prompt.AssembleInput{
		Description: "12x14 deck",
		CategoryKey: "missing_category",
		Knowledge:   model.NewPricingKnowledge(),
	})

	assert.NotContains(t, p, "## Learned Pricing Adjustments")
	assert.NotContains(t, p, "## Category Pricing")
	assert.NotContains(t, p, "## Contractor Pricing Rules")
	assert.NotContains(t, p, "## Business Terms")
	assert.NotContains(t, p, "## Past Corrections")
	assert.Contains(t, p, "## Job Description")
	assert.Contains(t, p, "Return ONLY the JSON object")
}

func TestAssemble_GlobalRulesAppearWithoutCategory(t *testing.T) {
	kn := model.NewPricingKnowledge()
	kn.GlobalRules = []string{"Minimum job charge is $500"}

	p := prompt.Assemble(prompt.AssembleInput{
		Description: "small repair",
		CategoryKey: "absent",
		Knowledge:   kn,
	})

	assert.Contains(t, p, "Minimum job charge is $500")
}

func TestAssemble_CategoryFacts(t *testing.T) {
	base := 85.0
	kn := model.NewPricingKnowledge()
	kn.Categories["painting"] = &model.Category{
		Key:               "painting",
		DisplayName:       "Interior Painting",
		TypicalPriceRange: &model.PriceRange{Low: 800, High: 4500},
		PricingUnit:       model.PricingUnitPerHour,
		BaseRate:          &base,
		Notes:             "two coats standard",
	}

	p := prompt.Assemble(prompt.AssembleInput{
		Description: "paint my living room",
		CategoryKey: "painting",
		Knowledge:   kn,
	})

	assert.Contains(t, p, "Typical price range: $800.00 - $4500.00")
	assert.Contains(t, p, "Pricing unit: per_hour")
	assert.Contains(t, p, "Base rate: $85.00")
	assert.Contains(t, p, "Notes: two coats standard")
}

func TestAssemble_ExamplesAreBounded(t *testing.T) {
	examples := []prompt.Example{
		{JobDescription: "job-1", QuotedTotal: 100, FinalTotal: 110},
		{JobDescription: "job-2", QuotedTotal: 200, FinalTotal: 220},
		{JobDescription: "job-3", QuotedTotal: 300, FinalTotal: 330},
		{JobDescription: "job-4", QuotedTotal: 400, FinalTotal: 440},
	}

	p := prompt.Assemble(prompt.AssembleInput{
		Description: "anything",
		Knowledge:   model.NewPricingKnowledge(),
		Examples:    examples,
		MaxExamples: 2,
	})

	assert.Contains(t, p, "job-1")
	assert.Contains(t, p, "job-2")
	assert.NotContains(t, p, "job-3")
	assert.NotContains(t, p, "job-4")
}
