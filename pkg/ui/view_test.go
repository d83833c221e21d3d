package ui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/vanderheijden86/smolder/pkg/heat"

	tea "github.com/charmbracelet/bubbletea"
)

// containsPlain reports whether the rendered view contains s. Styling
// wraps whole fragments, so a contiguous plain substring survives.
func containsPlain(view, s string) bool {
	return strings.Contains(view, s)
}

func TestView_NotReadyBeforeFirstSize(t *testing.T) {
	m := newTestModel(t)
	m.ready = false
	if view := m.View(); !containsPlain(view, "Initializing") {
		t.Error("unready view should show the init placeholder")
	}
}

func TestView_ShowsTreeLines(t *testing.T) {
	m := newTestModel(t, "src/main.go", "readme.md")

	view := m.View()
	for _, want := range []string{"smolder", "/watch", "src/", "main.go", "readme.md"} {
		if !containsPlain(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	// Tree branches drawn from the prefix vectors.
	if !containsPlain(view, "└──") && !containsPlain(view, "├──") {
		t.Error("view missing branch glyphs")
	}
}

func TestView_CollapsedFooterCount(t *testing.T) {
	m := newTestModel(t)
	for i := 0; i < 40; i++ {
		m = update(t, m, BatchMsg{{Kind: heat.EventAdd, Path: fmt.Sprintf("/watch/f%02d.txt", i)}})
	}
	m = update(t, m, tea.WindowSizeMsg{Width: 80, Height: 10})

	if !m.Layout().Collapsed {
		t.Fatal("expected a collapsed layout")
	}
	if view := m.View(); !containsPlain(view, "shown") {
		t.Error("collapsed layout should show the N/M footer")
	}
}

func TestView_DirectoryChangeAnnotation(t *testing.T) {
	m := newTestModel(t, "pkg/one.go", "pkg/two.go")
	m = update(t, m, BatchMsg{
		{Kind: heat.EventChange, Path: "/watch/pkg/one.go"},
		{Kind: heat.EventChange, Path: "/watch/pkg/two.go"},
	})

	if view := m.View(); !containsPlain(view, "changes)") {
		t.Errorf("hot directory should carry a change annotation:\n%s", view)
	}
}

func TestView_GhostDrawnWhileFading(t *testing.T) {
	m := newTestModel(t, "a.txt", "b.txt")
	m = update(t, m, BatchMsg{{Kind: heat.EventUnlink, Path: "/watch/a.txt"}})

	n := m.state.Lookup("/watch/a.txt")
	if n == nil || !n.Ghost {
		t.Fatal("expected ghost node")
	}
	// The ghost is still drawn while fading.
	if view := m.View(); !containsPlain(view, "a.txt") {
		t.Error("fading ghost should still render")
	}
}

func TestView_FilterModeFooterHints(t *testing.T) {
	m := newTestModel(t, "alpha.txt")
	m = update(t, m, keyMsg("/"))
	m = update(t, m, keyMsg("a"))

	view := m.View()
	if !containsPlain(view, "type to filter") {
		t.Error("filter-mode footer hints missing")
	}
}

func TestBranchPrefix(t *testing.T) {
	tests := []struct {
		name      string
		continues []bool
		isLast    bool
		depth     int
		want      string
	}{
		{"root", nil, true, 0, ""},
		{"mid child", []bool{true}, false, 1, "├── "},
		{"last child", []bool{false}, true, 1, "└── "},
		{"nested with bar", []bool{true, false}, true, 2, "│   └── "},
		{"nested without bar", []bool{false, true}, false, 2, "    ├── "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := branchPrefix(tt.continues, tt.isLast, tt.depth); got != tt.want {
				t.Errorf("branchPrefix = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"hello", 1, "…"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := truncateWidth(tt.in, tt.width); got != tt.want {
			t.Errorf("truncateWidth(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
