// Package model contains data models for the QuoteCraft pricing engine.
package model

// PricingUnit describes how a category is priced.
type PricingUnit string

const (
	PricingUnitPerHour    PricingUnit = "per_hour"
	PricingUnitPerDay     PricingUnit = "per_day"
	PricingUnitPerProject PricingUnit = "per_project"
	PricingUnitPerUnit    PricingUnit = "per_unit"
	PricingUnitFlat       PricingUnit = "flat"
)

// PriceRange is a typical low/high price band for a category.
type PriceRange struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// Category is one pricing category with its accumulated learning history.
// Key is unique within a contractor's knowledge. Confidence is derived from
// Samples by the knowledge store and is never set directly.
type Category struct {
	Key                string      `json:"key" yaml:"key"`
	DisplayName        string      `json:"display_name" yaml:"display_name"`
	TypicalPriceRange  *PriceRange `json:"typical_price_range,omitempty" yaml:"typical_price_range,omitempty"`
	PricingUnit        PricingUnit `json:"pricing_unit,omitempty" yaml:"pricing_unit,omitempty"`
	BaseRate           *float64    `json:"base_rate,omitempty" yaml:"base_rate,omitempty"`
	Notes              string      `json:"notes,omitempty" yaml:"notes,omitempty"`
	LearnedAdjustments []string    `json:"learned_adjustments" yaml:"learned_adjustments"`
	Samples            int         `json:"samples" yaml:"samples"`
	Confidence         float64     `json:"confidence" yaml:"confidence"`
}

// PricingKnowledge is the full pricing knowledge for one contractor.
// It is owned exclusively by its contractor and mutated only through the
// knowledge store.
type PricingKnowledge struct {
	Categories  map[string]*Category `json:"categories" yaml:"categories"`
	GlobalRules []string             `json:"global_rules" yaml:"global_rules"`
}

// NewPricingKnowledge returns an empty knowledge aggregate.
func NewPricingKnowledge() *PricingKnowledge {
	return &PricingKnowledge{Categories: map[string]*Category{}}
}

// Category returns the category for key, or nil if absent.
func (k *PricingKnowledge) Category(key string) *Category {
	if k == nil || k.Categories == nil {
		return nil
	}
	return k.Categories[key]
}

// CorrectionRecord is the structured output of one correction-extraction call.
// It is transient: consumed once by the adjustment merger, then discarded.
type CorrectionRecord struct {
	CategoryKey        string   `json:"category_key"`
	PricingAdjustments []string `json:"pricing_adjustments"`
	NewPricingRules    []string `json:"new_pricing_rules"`
	OverallTendency    string   `json:"overall_tendency"`
}

// IsEmpty reports whether the record carries nothing to learn.
func (r *CorrectionRecord) IsEmpty() bool {
	return r == nil ||
		(len(r.PricingAdjustments) == 0 && len(r.NewPricingRules) == 0 && r.OverallTendency == "")
}
