// Package prompt deterministically assembles the quote-generation prompt
// from pricing knowledge.
package prompt

import (
	"fmt"
	"strings"

	"github.com/tinkerloft/quotecraft/internal/config"
	"github.com/tinkerloft/quotecraft/internal/model"
)

// DefaultMaxExamples bounds few-shot correction examples when the input does
// not set its own limit.
const DefaultMaxExamples = 3

// Example is one past correction rendered as a few-shot example.
type Example struct {
	JobDescription string
	QuotedTotal    float64
	FinalTotal     float64
}

// AssembleInput is everything the assembler needs. Assemble is a pure
// function of this value: identical inputs produce byte-identical prompts.
type AssembleInput struct {
	Description string
	CategoryKey string
	Knowledge   *model.PricingKnowledge
	// Examples are ordered most recent first; only the first MaxExamples
	// are rendered.
	Examples    []Example
	Terms       config.BusinessTerms
	MaxExamples int
}

// Assemble renders the generation prompt. Section order is fixed; sections
// with no content are omitted entirely rather than emitted empty.
func Assemble(in AssembleInput) string {
	var sb strings.Builder

	// 1. Task framing.
	sb.WriteString(templates["framing"])
	sb.WriteString("\n")

	// 2. The job description.
	sb.WriteString("\n## Job Description\n\n")
	sb.WriteString(strings.TrimSpace(in.Description))
	sb.WriteString("\n")

	cat := in.Knowledge.Category(in.CategoryKey)

	// 3. Learned adjustments, only when the category has at least one.
	if cat != nil && len(cat.LearnedAdjustments) > 0 {
		fmt.Fprintf(&sb, "\n## Learned Pricing Adjustments (%s)\n\n", cat.DisplayName)
		fmt.Fprintf(&sb, "Apply these adjustments, learned from %d past corrections by this contractor (confidence %.2f):\n", cat.Samples, cat.Confidence)
		for _, adj := range cat.LearnedAdjustments {
			sb.WriteString("- " + adj + "\n")
		}
	}

	// 4. Category pricing facts.
	if cat != nil {
		writeCategoryFacts(&sb, cat)
	}

	// 5. Contractor-wide rules, independent of category.
	if in.Knowledge != nil && len(in.Knowledge.GlobalRules) > 0 {
		sb.WriteString("\n## Contractor Pricing Rules\n\n")
		for _, rule := range in.Knowledge.GlobalRules {
			sb.WriteString("- " + rule + "\n")
		}
	}

	// 6. Business terms.
	writeBusinessTerms(&sb, in.Terms)

	// 7. Few-shot correction examples, most recent first, bounded.
	writeExamples(&sb, in.Examples, in.MaxExamples)

	// 8. Output-format instructions.
	sb.WriteString("\n")
	sb.WriteString(templates["output_format"])
	sb.WriteString("\n")

	return sb.String()
}

func writeCategoryFacts(sb *strings.Builder, cat *model.Category) {
	var facts []string
	if cat.TypicalPriceRange != nil {
		facts = append(facts, fmt.Sprintf("Typical price range: $%.2f - $%.2f", cat.TypicalPriceRange.Low, cat.TypicalPriceRange.High))
	}
	if cat.PricingUnit != "" {
		facts = append(facts, "Pricing unit: "+string(cat.PricingUnit))
	}
	if cat.BaseRate != nil {
		facts = append(facts, fmt.Sprintf("Base rate: $%.2f", *cat.BaseRate))
	}
	if cat.Notes != "" {
		facts = append(facts, "Notes: "+cat.Notes)
	}
	if len(facts) == 0 {
		return
	}

	fmt.Fprintf(sb, "\n## Category Pricing (%s)\n\n", cat.DisplayName)
	for _, f := range facts {
		sb.WriteString("- " + f + "\n")
	}
}

func writeBusinessTerms(sb *strings.Builder, terms config.BusinessTerms) {
	var lines []string
	if terms.CompanyName != "" {
		lines = append(lines, "Company: "+terms.CompanyName)
	}
	if terms.PaymentTerms != "" {
		lines = append(lines, "Payment terms: "+terms.PaymentTerms)
	}
	if terms.Warranty != "" {
		lines = append(lines, "Warranty: "+terms.Warranty)
	}
	if terms.QuoteValidDays > 0 {
		lines = append(lines, fmt.Sprintf("Quote valid for %d days", terms.QuoteValidDays))
	}
	if len(lines) == 0 {
		return
	}

	sb.WriteString("\n## Business Terms\n\n")
	for _, l := range lines {
		sb.WriteString("- " + l + "\n")
	}
}

func writeExamples(sb *strings.Builder, examples []Example, maxExamples int) {
	if maxExamples <= 0 {
		maxExamples = DefaultMaxExamples
	}
	if len(examples) > maxExamples {
		examples = examples[:maxExamples]
	}
	if len(examples) == 0 {
		return
	}

	sb.WriteString("\n## Past Corrections\n\n")
	sb.WriteString("This contractor corrected earlier quotes like this:\n")
	for _, ex := range examples {
		fmt.Fprintf(sb, "- Job: %s | quoted $%.2f, corrected to $%.2f\n", ex.JobDescription, ex.QuotedTotal, ex.FinalTotal)
	}
}
