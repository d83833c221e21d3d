// Package ui is the Bubble Tea front end: it funnels watcher batches,
// timer ticks, resize, and keys into tree mutations followed by a single
// layout-and-render pass per message.
//
// Bubble Tea serializes Update and View on one task, which is the whole
// concurrency story: the watcher and the VCS source run goroutines, but
// their results only enter the model as messages.
package ui

import (
	"context"
	"os/exec"
	"runtime"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/smolder/pkg/config"
	"github.com/vanderheijden86/smolder/pkg/debug"
	"github.com/vanderheijden86/smolder/pkg/filter"
	"github.com/vanderheijden86/smolder/pkg/heat"
	"github.com/vanderheijden86/smolder/pkg/layout"
	"github.com/vanderheijden86/smolder/pkg/metrics"
	"github.com/vanderheijden86/smolder/pkg/tree"
	"github.com/vanderheijden86/smolder/pkg/vcs"
	"github.com/vanderheijden86/smolder/pkg/watcher"
)

// Timer periods.
const (
	ghostTickPeriod = time.Second
)

// BatchMsg delivers one debounced batch of filesystem events.
type BatchMsg []watcher.Event

// WatchErrMsg surfaces a transient watcher error in the footer.
type WatchErrMsg struct{ Err error }

// GhostTickMsg advances ghost fade-out once per second.
type GhostTickMsg time.Time

// BreatheTickMsg redraws periodically so heat decay stays visible
// between filesystem events.
type BreatheTickMsg time.Time

// VcsMsg carries a refreshed status snapshot.
type VcsMsg struct{ Snap *vcs.Snapshot }

// Model is the main Bubble Tea model for smolder.
type Model struct {
	state   *tree.State
	watcher *watcher.Watcher
	vcsSrc  *vcs.Source
	cfg     config.Config
	theme   Theme

	// Layout output of the last pass; View only reads this.
	layout  layout.Result
	vcsSnap *vcs.Snapshot

	// Interactive state
	keys        KeyMap
	cursor      int
	filterMode  bool
	filterInput textinput.Model
	filt        filter.Filter

	width    int
	height   int
	ready    bool
	watchErr error

	// now is the time source; tests pin it.
	now func() time.Time
}

// NewModel wires a model around an already-seeded tree state.
func NewModel(st *tree.State, w *watcher.Watcher, src *vcs.Source, cfg config.Config) Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.CharLimit = 128

	return Model{
		state:       st,
		watcher:     w,
		vcsSrc:      src,
		cfg:         cfg,
		theme:       DefaultTheme(lipgloss.DefaultRenderer()),
		keys:        DefaultKeyMap(),
		filterInput: ti,
		now:         time.Now,
	}
}

// Init starts the message sources.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		waitForBatchCmd(m.watcher),
		waitForWatchErrCmd(m.watcher),
		ghostTickCmd(),
		breatheTickCmd(m.cfg.Breathe()),
		refreshVcsCmd(m.vcsSrc),
	)
}

// waitForBatchCmd blocks until the next debounced batch.
func waitForBatchCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		batch, ok := <-w.Batches()
		if !ok {
			return nil
		}
		return BatchMsg(batch)
	}
}

// waitForWatchErrCmd blocks until the next transient watcher error.
func waitForWatchErrCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		err, ok := <-w.Errors()
		if !ok {
			return nil
		}
		return WatchErrMsg{Err: err}
	}
}

func ghostTickCmd() tea.Cmd {
	return tea.Tick(ghostTickPeriod, func(t time.Time) tea.Msg {
		return GhostTickMsg(t)
	})
}

func breatheTickCmd(period time.Duration) tea.Cmd {
	return tea.Tick(period, func(t time.Time) tea.Msg {
		return BreatheTickMsg(t)
	})
}

// refreshVcsCmd refreshes the status snapshot off the UI task. The
// source's TTL cache and singleflight keep this cheap to request often.
func refreshVcsCmd(src *vcs.Source) tea.Cmd {
	if src == nil {
		return nil
	}
	return func() tea.Msg {
		return VcsMsg{Snap: src.Refresh(context.Background())}
	}
}

// Update is the orchestrator: every message mutates state and ends in at
// most one relayout.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.relayout()
		return m, nil

	case BatchMsg:
		m.applyBatch(msg)
		m.relayout()
		return m, tea.Batch(waitForBatchCmd(m.watcher), refreshVcsCmd(m.vcsSrc))

	case WatchErrMsg:
		m.watchErr = msg.Err
		debug.Log("watch error: %v", msg.Err)
		return m, waitForWatchErrCmd(m.watcher)

	case GhostTickMsg:
		if m.state.GhostCount() > 0 {
			m.state.AdvanceGhosts()
			m.relayout()
		}
		return m, ghostTickCmd()

	case BreatheTickMsg:
		if m.state.HasHotItems() {
			m.relayout()
		}
		return m, breatheTickCmd(m.cfg.Breathe())

	case VcsMsg:
		if msg.Snap.Digest() != m.vcsSnap.Digest() {
			m.vcsSnap = msg.Snap
			m.relayout()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

// applyBatch replays a debounced batch onto the tree in arrival order.
func (m *Model) applyBatch(batch []watcher.Event) {
	defer debug.LogEnterExit("applyBatch")()
	defer metrics.Timer(metrics.BatchApply)()
	for _, e := range batch {
		kind := tree.File
		if e.IsDir {
			kind = tree.Dir
		}
		if e.Kind.IsRemoval() {
			m.state.RemoveNode(e.Path, e.Kind)
		} else {
			m.state.SetNode(e.Path, kind, e.Kind)
		}
	}
}

// relayout runs one layout pass and clamps the cursor to it.
func (m *Model) relayout() {
	m.layout = layout.Compute(m.state, m.vcsSnap, m.cfg.Weights, layout.Params{
		Rows:   m.height,
		Filter: m.filt,
		Now:    m.now(),
	})
	m.clampCursor()
}

func (m *Model) clampCursor() {
	if max := len(m.layout.Lines) - 1; m.cursor > max {
		m.cursor = max
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) && (!m.filterMode || msg.String() == "ctrl+c") {
		return m, tea.Quit
	}

	if m.filterMode {
		switch {
		case key.Matches(msg, m.keys.Escape):
			m.exitFilter(true)
			m.relayout()
			return m, nil

		case key.Matches(msg, m.keys.Open):
			cmd := m.openSelected()
			m.exitFilter(false)
			m.relayout()
			return m, cmd

		default:
			var cmd tea.Cmd
			m.filterInput, cmd = m.filterInput.Update(msg)
			m.applyFilterEdit()
			return m, cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.layout.Lines)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Open):
		return m, m.openSelected()

	case key.Matches(msg, m.keys.Filter):
		m.filterMode = true
		m.filterInput.SetValue("")
		m.filterInput.Focus()
		m.filt = filter.Filter{}
		m.relayout()

	case key.Matches(msg, m.keys.Escape):
		if !m.filt.Empty() {
			m.exitFilter(true)
			m.relayout()
		}

	case key.Matches(msg, m.keys.Copy):
		if n := m.selectedNode(); n != nil {
			// Fire and forget; clipboard failures are invisible.
			_ = clipboard.WriteAll(n.Path)
		}
	}
	// Unknown keys are a no-op.
	return m, nil
}

// applyFilterEdit recompiles the pattern after every edit, resets the
// cursor, and auto-jumps when exactly one line matches.
func (m *Model) applyFilterEdit() {
	m.filt = filter.New(m.filterInput.Value())
	m.cursor = 0
	m.relayout()

	matchIdx, matches := -1, 0
	for i, l := range m.layout.Lines {
		if l.FilterMatch != nil {
			matches++
			matchIdx = i
		}
	}
	if matches == 1 {
		m.cursor = matchIdx
	}
}

// exitFilter leaves filter mode, optionally clearing the pattern.
func (m *Model) exitFilter(clear bool) {
	m.filterMode = false
	m.filterInput.Blur()
	if clear {
		m.filterInput.SetValue("")
		m.filt = filter.Filter{}
		m.cursor = 0
	}
}

// selectedNode returns the node under the cursor, or nil.
func (m Model) selectedNode() *tree.Node {
	if m.cursor < 0 || m.cursor >= len(m.layout.Lines) {
		return nil
	}
	return m.layout.Lines[m.cursor].Node
}

// openSelected invokes the OS handler on the selection, fire-and-forget.
func (m Model) openSelected() tea.Cmd {
	n := m.selectedNode()
	if n == nil {
		return nil
	}
	path := n.Path
	return func() tea.Msg {
		_ = openPath(path)
		return nil
	}
}

// openPath hands a path to the platform opener.
func openPath(path string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", path).Start()
	case "windows":
		return exec.Command("cmd", "/c", "start", "", path).Start()
	default:
		return exec.Command("xdg-open", path).Start()
	}
}

// Stop releases the model's background resources.
func (m Model) Stop() {
	if m.watcher != nil {
		m.watcher.Stop()
	}
}

// Layout exposes the last layout pass (read-only, for tests and the
// robot snapshot).
func (m Model) Layout() layout.Result {
	return m.layout
}

// Cursor exposes the selection index.
func (m Model) Cursor() int {
	return m.cursor
}

// ghostStyleFor maps a node's fade progress onto theme styles; kept here
// so View stays a pure function of model fields.
func (m Model) ghostStyleFor(n *tree.Node) lipgloss.Style {
	return m.theme.GhostStyle(n.GhostStep)
}

// eventGlyph annotates the freshest event kinds in the line body.
func eventGlyph(e heat.Event) string {
	switch e {
	case heat.EventAdd, heat.EventAddDir:
		return "+"
	case heat.EventUnlink, heat.EventUnlinkDir:
		return "-"
	case heat.EventChange:
		return "~"
	default:
		return ""
	}
}
