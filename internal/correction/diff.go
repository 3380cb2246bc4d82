// Package correction turns user edits to generated quotes into structured
// corrections the knowledge store can learn from.
package correction

import (
	"fmt"
	"math"
	"strings"

	"github.com/tinkerloft/quotecraft/internal/model"
)

// priceEpsilon is the tolerance for treating two prices as equal.
const priceEpsilon = 0.005

// ChangeKind classifies one line-item change.
type ChangeKind string

const (
	ChangeAdded              ChangeKind = "added"
	ChangeRemoved            ChangeKind = "removed"
	ChangePriceChanged       ChangeKind = "price_changed"
	ChangeDescriptionChanged ChangeKind = "description_changed"
)

// LineChange is a single structural change between the generated and final
// line items.
type LineChange struct {
	Kind           ChangeKind
	Description    string
	OldDescription string
	OldTotal       float64
	NewTotal       float64
}

// QuoteDiff is the structural difference between an AI-generated quote and
// its user-finalized version.
type QuoteDiff struct {
	Lines    []LineChange
	OldTotal float64
	NewTotal float64
}

// Empty reports whether the user changed nothing. Equality is the common
// case of an unedited quote, not an error.
func (d *QuoteDiff) Empty() bool {
	return len(d.Lines) == 0 && priceEqual(d.OldTotal, d.NewTotal)
}

// Diff computes the structural diff between the quote's AI-generated line
// items and its user-finalized ones. Lines are paired by position; a line
// whose description and price both changed counts as a remove plus an add.
func Diff(q *model.Quote) *QuoteDiff {
	final := q.FinalLineItems()
	d := &QuoteDiff{OldTotal: q.Total, NewTotal: q.FinalTotal()}

	n := len(q.LineItems)
	if len(final) < n {
		n = len(final)
	}

	for i := 0; i < n; i++ {
		orig, fin := q.LineItems[i], final[i]
		sameDesc := strings.EqualFold(strings.TrimSpace(orig.Description), strings.TrimSpace(fin.Description))
		samePrice := priceEqual(orig.Total, fin.Total)

		switch {
		case sameDesc && samePrice:
			continue
		case sameDesc:
			d.Lines = append(d.Lines, LineChange{
				Kind:        ChangePriceChanged,
				Description: fin.Description,
				OldTotal:    orig.Total,
				NewTotal:    fin.Total,
			})
		case samePrice:
			d.Lines = append(d.Lines, LineChange{
				Kind:           ChangeDescriptionChanged,
				Description:    fin.Description,
				OldDescription: orig.Description,
				OldTotal:       orig.Total,
				NewTotal:       fin.Total,
			})
		default:
			d.Lines = append(d.Lines,
				LineChange{Kind: ChangeRemoved, Description: orig.Description, OldTotal: orig.Total},
				LineChange{Kind: ChangeAdded, Description: fin.Description, NewTotal: fin.Total},
			)
		}
	}

	for _, item := range q.LineItems[n:] {
		d.Lines = append(d.Lines, LineChange{Kind: ChangeRemoved, Description: item.Description, OldTotal: item.Total})
	}
	for _, item := range final[n:] {
		d.Lines = append(d.Lines, LineChange{Kind: ChangeAdded, Description: item.Description, NewTotal: item.Total})
	}

	return d
}

// Summary renders the diff as human-readable lines for the analysis prompt.
func (d *QuoteDiff) Summary() string {
	var sb strings.Builder
	for _, c := range d.Lines {
		switch c.Kind {
		case ChangeAdded:
			fmt.Fprintf(&sb, "- Added line %q at $%.2f\n", c.Description, c.NewTotal)
		case ChangeRemoved:
			fmt.Fprintf(&sb, "- Removed line %q ($%.2f)\n", c.Description, c.OldTotal)
		case ChangePriceChanged:
			fmt.Fprintf(&sb, "- Changed price of %q from $%.2f to $%.2f\n", c.Description, c.OldTotal, c.NewTotal)
		case ChangeDescriptionChanged:
			fmt.Fprintf(&sb, "- Renamed %q to %q\n", c.OldDescription, c.Description)
		}
	}
	if !priceEqual(d.OldTotal, d.NewTotal) {
		fmt.Fprintf(&sb, "- Changed quote total from $%.2f to $%.2f\n", d.OldTotal, d.NewTotal)
	}
	return sb.String()
}

func priceEqual(a, b float64) bool {
	return math.Abs(a-b) < priceEpsilon
}
