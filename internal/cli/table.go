package cli

import (
	"fmt"
	"strings"
)

// RenderTable renders a simple fixed-width table with a styled header row.
// Cells longer than their column are truncated with an ellipsis.
func RenderTable(headers []string, rows [][]string, widths []int) string {
	var b strings.Builder

	headerCells := make([]string, len(headers))
	for i, h := range headers {
		headerCells[i] = TableHeaderStyle.Render(pad(h, widths[i]))
	}
	b.WriteString(strings.Join(headerCells, " "))
	b.WriteString("\n")

	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = TableCellStyle.Render(pad(cell, widths[i]))
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteString("\n")
	}

	return b.String()
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		if width <= 1 {
			return string(runes[:width])
		}
		return string(runes[:width-1]) + "…"
	}
	return fmt.Sprintf("%-*s", width, s)
}
