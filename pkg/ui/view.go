package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/smolder/pkg/heat"
	"github.com/vanderheijden86/smolder/pkg/layout"
	"github.com/vanderheijden86/smolder/pkg/metrics"
)

// View renders the last layout pass. It reads only model fields: every
// line carries its own tree-prefix data, so no live parent lookups
// happen here even when ancestors were trimmed.
func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}
	defer metrics.Timer(metrics.UIRender)()

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	b.WriteString(m.dividerView())
	b.WriteString("\n")

	for i, line := range m.layout.Lines {
		b.WriteString(m.lineView(line, i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString(m.footerView())
	return b.String()
}

func (m Model) headerView() string {
	title := fmt.Sprintf("smolder %s", m.layout.RootPath)

	if ahead, behind := m.vcsSnap.AheadBehind(); ahead > 0 || behind > 0 {
		title += fmt.Sprintf("  ↑%d ↓%d", ahead, behind)
	}

	if m.filterMode {
		title += "  " + m.filterInput.View()
	} else if !m.filt.Empty() {
		title += fmt.Sprintf("  /%s", m.filt.Pattern())
	}

	return m.theme.Header.Width(m.width).Render(truncateWidth(title, m.width-2))
}

func (m Model) dividerView() string {
	if m.width <= 0 {
		return ""
	}
	return m.theme.Divider.Render(strings.Repeat("─", m.width))
}

// lineView renders one selected candidate line. Truncation happens on
// the plain name before any styling so ANSI sequences never count
// against the width budget.
func (m Model) lineView(l layout.Line, selected bool) string {
	n := l.Node

	prefixPlain := branchPrefix(l.ParentContinues, l.IsLast, l.Depth)
	prefix := m.theme.Branch.Render(prefixPlain)

	// VCS glyph column.
	status := " "
	if class, ok := m.vcsSnap.Status(n.Path, n.IsDir()); ok {
		status = m.theme.Renderer.NewStyle().
			Foreground(class.Color()).
			Render(class.Symbol())
	}

	name := n.Name
	if n.IsDir() {
		name += "/"
	}
	if g := eventGlyph(n.Event); g != "" && !n.EventTime.IsZero() {
		name = g + name
	}

	annot := ""
	if n.IsDir() && l.Depth > 0 {
		if count := m.state.ChangeCount(n); count > 0 {
			noun := "changes"
			if count == 1 {
				noun = "change"
			}
			annot = fmt.Sprintf(" (%d %s)", count, noun)
		}
	}

	// Cursor(2) + prefix + status(1) + spaces(2) + bar(6).
	fixed := 2 + runewidth.StringWidth(prefixPlain) + 1 + 2 + heat.BarSegments
	if budget := m.width - fixed - runewidth.StringWidth(annot); budget > 0 {
		name = truncateWidth(name, budget)
	}

	nameStyle := m.theme.FileName
	switch {
	case n.Ghost:
		nameStyle = m.ghostStyleFor(n)
	case l.FilterMatch != nil:
		nameStyle = m.theme.Match
	case n.IsDir():
		nameStyle = m.theme.DirName
	}
	if heat.IsHot(n.Heat) && !n.Ghost && l.FilterMatch == nil {
		nameStyle = nameStyle.Foreground(heat.Color(n.Heat))
	}

	body := nameStyle.Render(name)
	if annot != "" {
		body += m.theme.Annot.Render(annot)
	}

	bar := m.theme.renderHeatBar(n.Heat)

	out := fmt.Sprintf("%s%s %s %s", prefix, status, body, bar)
	if selected {
		return m.theme.Cursor.Render("▸ ") + out
	}
	return "  " + out
}

func (m Model) footerView() string {
	hints := "↑/↓ move · enter open · / filter · y copy · q quit"
	if m.filterMode {
		hints = "esc clear · enter open · type to filter"
	}

	parts := []string{hints}
	if m.layout.Collapsed {
		parts = append(parts, fmt.Sprintf("%d/%d shown", len(m.layout.Lines), m.layout.TotalRows))
	}
	plain := strings.Join(parts, "  ·  ")

	if m.watchErr != nil {
		errText := truncateWidth(fmt.Sprintf("watch: %v", m.watchErr), m.width)
		return m.theme.ErrorText.Render(errText)
	}
	return m.theme.Footer.Render(truncateWidth(plain, m.width))
}
