// Package report renders comparison and batch outcomes as aligned text
// tables for terminal output.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"pricewatch/internal/types"
)

const maxCellWidth = 48

// Table renders a markdown-style table whose columns are padded to the
// widest cell by display width, so wide runes and symbols like £ line up
func Table(headers []string, rows [][]string) string {
	colWidths := make([]int, len(headers))
	cells := make([][]string, 0, len(rows)+1)
	for _, row := range append([][]string{headers}, rows...) {
		truncated := make([]string, len(row))
		for i, cell := range row {
			truncated[i] = runewidth.Truncate(cell, maxCellWidth, "…")
			if i < len(colWidths) {
				colWidths[i] = max(colWidths[i], runewidth.StringWidth(truncated[i]))
			}
		}
		cells = append(cells, truncated)
	}
	for i := range colWidths {
		if colWidths[i] < 3 {
			colWidths[i] = 3
		}
	}

	var sb strings.Builder
	writeRow := func(row []string) {
		sb.WriteString("|")
		for j := range colWidths {
			content := ""
			if j < len(row) {
				content = row[j]
			}
			sb.WriteString(" ")
			sb.WriteString(runewidth.FillRight(content, colWidths[j]))
			sb.WriteString(" |")
		}
		sb.WriteString("\n")
	}

	writeRow(cells[0])
	sb.WriteString("|")
	for _, w := range colWidths {
		sb.WriteString(" " + strings.Repeat("-", w) + " |")
	}
	sb.WriteString("\n")
	for _, row := range cells[1:] {
		writeRow(row)
	}
	return sb.String()
}

// Alternatives writes ranked alternatives as a table
func Alternatives(w io.Writer, result types.AlternativesResult) {
	if len(result.Alternatives) == 0 {
		fmt.Fprintln(w, "No matching listings at other stores.")
		return
	}

	rows := make([][]string, 0, len(result.Alternatives))
	for i, alt := range result.Alternatives {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			alt.StoreName,
			Price(alt.Price),
			difference(alt),
			alt.Title,
		})
	}
	fmt.Fprint(w, Table([]string{"#", "Store", "Price", "Difference", "Title"}, rows))
	if result.HasBestPrice {
		fmt.Fprintln(w, "You already have the best price.")
	}
}

// Batch writes a batch summary as a table
func Batch(w io.Writer, summary *types.BatchSummary) {
	rows := make([][]string, 0, len(summary.Items))
	for _, item := range summary.Items {
		change := ""
		switch {
		case item.Error != "":
			change = "error: " + item.Error
		case item.ChangePercent != nil:
			change = fmt.Sprintf("%+.1f%%", *item.ChangePercent)
		case item.Changed:
			change = "new"
		}
		rows = append(rows, []string{item.ItemID, Price(item.OldPrice), Price(item.NewPrice), change, item.URL})
	}
	fmt.Fprint(w, Table([]string{"Item", "Old", "New", "Change", "URL"}, rows))
	fmt.Fprintf(w, "Checked %d, updated %d, errors %d\n", summary.Checked, summary.Updated, summary.Errors)
}

// Price formats an optional price
func Price(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("£%.2f", *p)
}

func difference(alt types.MatchCandidate) string {
	switch {
	case alt.SavingsAmount != nil:
		return fmt.Sprintf("save £%.2f (%.1f%%)", *alt.SavingsAmount, *alt.SavingsPercent)
	case alt.ExtraCost != nil:
		return fmt.Sprintf("+£%.2f (%.1f%%)", *alt.ExtraCost, *alt.ExtraCostPercent)
	default:
		return ""
	}
}
