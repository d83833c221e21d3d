package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Theme bundles the pre-computed styles for one renderer. Styles are
// created once at startup instead of per-frame.
type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary lipgloss.AdaptiveColor
	Subtext lipgloss.AdaptiveColor
	Muted   lipgloss.AdaptiveColor
	Danger  lipgloss.AdaptiveColor

	// Styles
	Header    lipgloss.Style
	Footer    lipgloss.Style
	Divider   lipgloss.Style
	Cursor    lipgloss.Style
	Branch    lipgloss.Style
	DirName   lipgloss.Style
	FileName  lipgloss.Style
	Annot     lipgloss.Style
	Match     lipgloss.Style
	ErrorText lipgloss.Style

	// Ghost fade styles indexed by ghost step (clamped to the last).
	GhostSteps []lipgloss.Style
}

// DefaultTheme returns the standard adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary: lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Subtext: lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Muted:   lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Danger:  lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
	}

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Footer = r.NewStyle().Foreground(t.Muted)
	t.Divider = r.NewStyle().Foreground(t.Muted)
	t.Cursor = r.NewStyle().Reverse(true).Bold(true)
	t.Branch = r.NewStyle().Foreground(t.Muted)
	t.DirName = r.NewStyle().Bold(true)
	t.FileName = r.NewStyle()
	t.Annot = r.NewStyle().Foreground(t.Subtext)
	t.Match = r.NewStyle().Foreground(t.Primary).Bold(true).Underline(true)
	t.ErrorText = r.NewStyle().Foreground(t.Danger)

	// Each fade step dims further; the last step is barely there.
	t.GhostSteps = []lipgloss.Style{
		r.NewStyle().Strikethrough(true),
		r.NewStyle().Strikethrough(true).Faint(true),
		r.NewStyle().Strikethrough(true).Faint(true).Foreground(t.Muted),
	}

	return t
}

// GhostStyle returns the fade style for a ghost step.
func (t Theme) GhostStyle(step int) lipgloss.Style {
	if step < 0 {
		step = 0
	}
	if step >= len(t.GhostSteps) {
		step = len(t.GhostSteps) - 1
	}
	return t.GhostSteps[step]
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
