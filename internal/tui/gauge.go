package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// renderGauge draws a fixed-width confidence bar with a threshold
// marker. The caller styles the result.
func renderGauge(score, threshold float64, width int) string {
	if width < 4 {
		width = 4
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	filled := int(score * float64(width))
	if filled > width {
		filled = width
	}
	marker := int(threshold * float64(width))
	if marker >= width {
		marker = width - 1
	}
	cells := make([]byte, width)
	for i := range cells {
		switch {
		case i < filled:
			cells[i] = '#'
		case i == marker:
			cells[i] = '|'
		default:
			cells[i] = '.'
		}
	}
	return string(cells)
}

// truncate clips a line to the display width, appending an ellipsis
// when anything was cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	var b strings.Builder
	used := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if used+w > width-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + "…"
}
