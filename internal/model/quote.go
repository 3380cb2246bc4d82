package model

import (
	"errors"
	"time"
)

// QuoteStatus represents the lifecycle state of a quote.
type QuoteStatus string

const (
	// QuoteStatusDraft is a freshly generated quote, untouched by the user.
	QuoteStatusDraft QuoteStatus = "draft"
	// QuoteStatusEdited means the user has finalized (possibly unchanged) line items.
	QuoteStatusEdited QuoteStatus = "edited"
	// QuoteStatusLearned is terminal: the correction has been processed.
	QuoteStatusLearned QuoteStatus = "learned"
)

// ErrInvalidTransition is returned when a quote status change violates the
// draft -> edited -> learned state machine.
var ErrInvalidTransition = errors.New("invalid quote status transition")

// CanTransitionTo reports whether moving from s to target is allowed.
// Learned is terminal, and a draft must pass through edited before learning.
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	switch s {
	case QuoteStatusDraft:
		return target == QuoteStatusEdited
	case QuoteStatusEdited:
		return target == QuoteStatusLearned
	default:
		return false
	}
}

// LineItem is a single priced line on a quote.
type LineItem struct {
	Description string  `json:"description" yaml:"description"`
	Quantity    float64 `json:"quantity" yaml:"quantity"`
	UnitPrice   float64 `json:"unit_price" yaml:"unit_price"`
	Total       float64 `json:"total" yaml:"total"`
}

// EditDetails holds the user-finalized version of a quote.
type EditDetails struct {
	LineItems []LineItem `json:"line_items" yaml:"line_items"`
	Total     float64    `json:"total" yaml:"total"`
	EditedAt  time.Time  `json:"edited_at" yaml:"edited_at"`
}

// Quote is a generated price quote. LineItems and Total are the AI-generated
// values; EditDetails carries the user's final version once edited. Content
// fields are immutable after the quote reaches learned.
type Quote struct {
	ID           string       `json:"id" yaml:"id"`
	ContractorID string       `json:"contractor_id" yaml:"contractor_id"`
	Description  string       `json:"description" yaml:"description"`
	CategoryKey  string       `json:"category_key,omitempty" yaml:"category_key,omitempty"`
	LineItems    []LineItem   `json:"line_items" yaml:"line_items"`
	Total        float64      `json:"total" yaml:"total"`
	Status       QuoteStatus  `json:"status" yaml:"status"`
	WasEdited    bool         `json:"was_edited" yaml:"was_edited"`
	EditDetails  *EditDetails `json:"edit_details,omitempty" yaml:"edit_details,omitempty"`
	CreatedAt    time.Time    `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" yaml:"updated_at"`
}

// FinalLineItems returns the user-finalized line items if the quote was
// edited, otherwise the AI-generated ones.
func (q *Quote) FinalLineItems() []LineItem {
	if q.EditDetails != nil {
		return q.EditDetails.LineItems
	}
	return q.LineItems
}

// FinalTotal returns the user-finalized total if the quote was edited,
// otherwise the AI-generated total.
func (q *Quote) FinalTotal() float64 {
	if q.EditDetails != nil {
		return q.EditDetails.Total
	}
	return q.Total
}
