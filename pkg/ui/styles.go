package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/smolder/pkg/heat"
)

// Tree branch glyphs.
const (
	glyphBar    = "│   "
	glyphGap    = "    "
	glyphTee    = "├── "
	glyphcorner = "└── "
)

// renderHeatBar draws the 6-cell heat bar colored by bucket.
func (t Theme) renderHeatBar(h float64) string {
	filled := heat.BarFill(h)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", heat.BarSegments-filled)
	return t.Renderer.NewStyle().Foreground(heat.Color(h)).Render(bar)
}

// branchPrefix assembles the tree prefix for a line from its precomputed
// ancestor-continuation vector. The vector's last entry is the line's own
// sibling level; earlier entries are bars for ancestor levels. Works even
// when ancestors were trimmed from the layout.
func branchPrefix(parentContinues []bool, isLast bool, depth int) string {
	if depth == 0 {
		return ""
	}
	var b strings.Builder
	for _, cont := range parentContinues[:len(parentContinues)-1] {
		if cont {
			b.WriteString(glyphBar)
		} else {
			b.WriteString(glyphGap)
		}
	}
	if isLast {
		b.WriteString(glyphcorner)
	} else {
		b.WriteString(glyphTee)
	}
	return b.String()
}

// truncateWidth truncates a styled-free string to a visual cell width,
// appending an ellipsis when something was cut.
func truncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth == 1 {
		return "…"
	}
	return runewidth.Truncate(s, maxWidth-1, "") + "…"
}
