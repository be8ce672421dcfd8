package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricewatch/internal/types"
)

func TestTable_AlignsByDisplayWidth(t *testing.T) {
	out := Table([]string{"Store", "Price"}, [][]string{
		{"Argos", "£45.00"},
		{"ヨドバシ", "£1,049.99"},
	})

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	width := runewidth.StringWidth(lines[0])
	for _, line := range lines {
		assert.Equal(t, width, runewidth.StringWidth(line), line)
	}
	assert.Equal(t, "| Store    | Price     |", lines[0])
	assert.Equal(t, "| -------- | --------- |", lines[1])
}

func TestTable_TruncatesLongCells(t *testing.T) {
	out := Table([]string{"Title"}, [][]string{{strings.Repeat("a", 100)}})
	assert.Contains(t, out, "…")
	assert.NotContains(t, out, strings.Repeat("a", 60))
}

func TestAlternatives(t *testing.T) {
	var buf bytes.Buffer
	Alternatives(&buf, types.AlternativesResult{
		Alternatives: []types.MatchCandidate{
			{
				SearchResult:   types.SearchResult{Title: "Tefal AeroSteam", Price: types.Float(45), StoreName: "StoreB"},
				IsCheaper:      true,
				SavingsAmount:  types.Float(5),
				SavingsPercent: types.Float(10),
			},
			{
				SearchResult:     types.SearchResult{Title: "Tefal AeroSteam", Price: types.Float(55), StoreName: "StoreC"},
				ExtraCost:        types.Float(5),
				ExtraCostPercent: types.Float(10),
			},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "save £5.00 (10.0%)")
	assert.Contains(t, out, "+£5.00 (10.0%)")
	assert.NotContains(t, out, "best price")

	buf.Reset()
	Alternatives(&buf, types.AlternativesResult{HasBestPrice: true})
	assert.Equal(t, "No matching listings at other stores.\n", buf.String())
}

func TestBatch(t *testing.T) {
	var buf bytes.Buffer
	Batch(&buf, &types.BatchSummary{
		Checked: 2,
		Updated: 1,
		Errors:  1,
		Items: []types.PriceCheck{
			{ItemID: "1", URL: "https://a.example/p/1", OldPrice: types.Float(50), NewPrice: types.Float(45), Changed: true, ChangePercent: types.Float(-10)},
			{ItemID: "2", URL: "https://b.example/p/2", Error: "no price found"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "-10.0%")
	assert.Contains(t, out, "error: no price found")
	assert.Contains(t, out, "Checked 2, updated 1, errors 1")
}

func TestPrice(t *testing.T) {
	assert.Equal(t, "-", Price(nil))
	assert.Equal(t, "£9.99", Price(types.Float(9.99)))
}
