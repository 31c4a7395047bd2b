package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// PadRight pads or truncates a string to a fixed display width.
func PadRight(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w > width {
		return runewidth.Truncate(str, width, "...")
	}
	return str + strings.Repeat(" ", width-w)
}

// PadLeft right-aligns str in a field of the given display width. Longer
// strings are returned unchanged so numbers are never cut.
func PadLeft(str string, width int) string {
	w := runewidth.StringWidth(str)
	if w >= width {
		return str
	}
	return strings.Repeat(" ", width-w) + str
}

// Columns lays out rows so every column is as wide as its widest cell.
// Columns listed in rightAlign are padded on the left.
func Columns(rows [][]string, rightAlign ...int) []string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	right := make(map[int]bool, len(rightAlign))
	for _, i := range rightAlign {
		right[i] = true
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if right[i] {
				cells[i] = PadLeft(cell, widths[i])
			} else {
				cells[i] = PadRight(cell, widths[i])
			}
		}
		lines = append(lines, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
	return lines
}
