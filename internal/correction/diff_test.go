package correction_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinkerloft/quotecraft/internal/correction"
	"github.com/tinkerloft/quotecraft/internal/model"
)

func quoteWithEdits(orig, final []model.LineItem, origTotal, finalTotal float64) *model.Quote {
	return &model.Quote{
		ID:           "q1",
		ContractorID: "c1",
		Description:  "12x14 deck",
		CategoryKey:  "deck_construction",
		LineItems:    orig,
		Total:        origTotal,
		EditDetails: &model.EditDetails{
			LineItems: final,
			Total:     finalTotal,
			EditedAt:  time.Now(),
		},
	}
}

func TestDiff_Unchanged(t *testing.T) {
	items := []model.LineItem{{Description: "Framing", Total: 2400}}
	d := correction.Diff(quoteWithEdits(items, items, 2400, 2400))
	assert.True(t, d.Empty())
	assert.Empty(t, d.Summary())
}

func TestDiff_PriceChanged(t *testing.T) {
	orig := []model.LineItem{{Description: "Framing", Total: 2400}}
	final := []model.LineItem{{Description: "Framing", Total: 2800}}
	d := correction.Diff(quoteWithEdits(orig, final, 2400, 2800))

	require.False(t, d.Empty())
	require.Len(t, d.Lines, 1)
	assert.Equal(t, correction.ChangePriceChanged, d.Lines[0].Kind)
	assert.Equal(t, 2400.0, d.Lines[0].OldTotal)
	assert.Equal(t, 2800.0, d.Lines[0].NewTotal)

	summary := d.Summary()
	assert.Contains(t, summary, `Changed price of "Framing" from $2400.00 to $2800.00`)
	assert.Contains(t, summary, "Changed quote total from $2400.00 to $2800.00")
}

func TestDiff_AddedAndRemoved(t *testing.T) {
	orig := []model.LineItem{{Description: "Framing", Total: 2400}}
	final := []model.LineItem{
		{Description: "Framing", Total: 2400},
		{Description: "Disposal fee", Total: 150},
	}
	d := correction.Diff(quoteWithEdits(orig, final, 2400, 2550))

	require.Len(t, d.Lines, 1)
	assert.Equal(t, correction.ChangeAdded, d.Lines[0].Kind)
	assert.Equal(t, "Disposal fee", d.Lines[0].Description)

	shrunk := correction.Diff(quoteWithEdits(final, orig, 2550, 2400))
	require.Len(t, shrunk.Lines, 1)
	assert.Equal(t, correction.ChangeRemoved, shrunk.Lines[0].Kind)
}

func TestDiff_DescriptionChanged(t *testing.T) {
	orig := []model.LineItem{{Description: "Demo", Total: 500}}
	final := []model.LineItem{{Description: "Demolition and haul-away", Total: 500}}
	d := correction.Diff(quoteWithEdits(orig, final, 500, 500))

	require.Len(t, d.Lines, 1)
	assert.Equal(t, correction.ChangeDescriptionChanged, d.Lines[0].Kind)
	assert.Equal(t, "Demo", d.Lines[0].OldDescription)
}

func TestDiff_BothChanged_IsRemovePlusAdd(t *testing.T) {
	orig := []model.LineItem{{Description: "Labor", Total: 1000}}
	final := []model.LineItem{{Description: "Skilled labor", Total: 1500}}
	d := correction.Diff(quoteWithEdits(orig, final, 1000, 1500))

	require.Len(t, d.Lines, 2)
	assert.Equal(t, correction.ChangeRemoved, d.Lines[0].Kind)
	assert.Equal(t, correction.ChangeAdded, d.Lines[1].Kind)
}

func TestDiff_TotalOnlyChange(t *testing.T) {
	items := []model.LineItem{{Description: "Framing", Total: 2400}}
	d := correction.Diff(quoteWithEdits(items, items, 2400, 2200))
	assert.False(t, d.Empty())
	assert.Empty(t, d.Lines)
}

func TestDiff_CaseInsensitiveDescriptions(t *testing.T) {
	orig := []model.LineItem{{Description: "framing", Total: 2400}}
	final := []model.LineItem{{Description: "Framing", Total: 2400}}
	d := correction.Diff(quoteWithEdits(orig, final, 2400, 2400))
	assert.True(t, d.Empty())
}
