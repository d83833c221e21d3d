package tree

import (
	"path/filepath"
	"time"

	"github.com/vanderheijden86/smolder/pkg/debug"
	"github.com/vanderheijden86/smolder/pkg/heat"
)

// Defaults for the tunables carried by State.
const (
	DefaultHistoryLimit = 4
	DefaultGhostSteps   = 3

	// parentRefreshWindow keeps a parent's own recent event timestamp
	// intact when a child fires right behind it; an older timestamp is
	// moved up to the child's event time.
	parentRefreshWindow = 100 * time.Millisecond

	// Ghost fade boost: a freshly deleted node scores at least
	// ghostBoostBase and loses ghostBoostDecay per completed fade step.
	ghostBoostBase  = 90.0
	ghostBoostDecay = 25.0
)

// Ghost tracks a deleted node through its fade-out.
type Ghost struct {
	Node      *Node
	DeathTime time.Time
	FadeStep  int
}

// Option configures a State.
type Option func(*State)

// WithHistoryLimit caps the rolling history length.
func WithHistoryLimit(n int) Option {
	return func(s *State) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithGhostSteps sets how many fade ticks a deleted node survives.
func WithGhostSteps(n int) Option {
	return func(s *State) {
		if n > 0 {
			s.ghostSteps = n
		}
	}
}

// WithWeights overrides the event-weight table.
func WithWeights(w heat.Weights) Option {
	return func(s *State) {
		s.weights = w
	}
}

// WithClock injects the time source. Tests use this to drive decay and
// fade deterministically.
func WithClock(clock func() time.Time) Option {
	return func(s *State) {
		s.clock = clock
	}
}

// State owns the node graph for one watched root.
type State struct {
	root    *Node
	index   map[string]*Node
	history []*Node
	ghosts  map[string]*Ghost

	historyLimit int
	ghostSteps   int
	weights      heat.Weights
	clock        func() time.Time

	// hasHot caches whether the last CalculateAllHeat pass saw any hot
	// node. Advisory only; drives the breath tick.
	hasHot bool
}

// NewState creates a State rooted at the given absolute directory path.
func NewState(rootPath string, opts ...Option) *State {
	s := &State{
		index:        make(map[string]*Node),
		ghosts:       make(map[string]*Ghost),
		historyLimit: DefaultHistoryLimit,
		ghostSteps:   DefaultGhostSteps,
		weights:      heat.DefaultWeights(),
		clock:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.root = newNode(filepath.Clean(rootPath), Dir)
	s.index[s.root.Path] = s.root
	return s
}

// Root returns the root directory node.
func (s *State) Root() *Node {
	return s.root
}

// Lookup returns the node for an absolute path, or nil.
func (s *State) Lookup(path string) *Node {
	return s.index[filepath.Clean(path)]
}

// Len returns the number of live nodes, the root included.
func (s *State) Len() int {
	return len(s.index)
}

// GhostCount returns how many deleted nodes are still fading.
func (s *State) GhostCount() int {
	return len(s.ghosts)
}

// GhostSteps returns the configured fade length.
func (s *State) GhostSteps() int {
	return s.ghostSteps
}

// SetNode applies an add/addDir/change event: it creates missing
// ancestors as event-less directories, creates or updates the node,
// stamps the event, clears any ghost state, records the node in history,
// and lights up the ancestor chain.
func (s *State) SetNode(path string, kind Kind, event heat.Event) *Node {
	path = filepath.Clean(path)
	now := s.clock()

	s.ensureParents(path)

	n, ok := s.index[path]
	if !ok {
		n = newNode(path, kind)
		s.index[path] = n
		if parent := s.parentOf(path); parent != nil {
			parent.Children[n.Name] = n
		}
	}

	if n.Kind != kind && n != s.root {
		// A path flipped between file and directory (delete + recreate
		// race). Trust the newest event.
		n.Kind = kind
		if kind == Dir && n.Children == nil {
			n.Children = make(map[string]*Node)
		}
	}

	n.Event = event
	n.EventTime = now
	s.resurrect(path)

	if event != heat.EventNone {
		s.pushHistory(n)
		s.propagateToParents(path, now)
	}
	return n
}

// RemoveNode applies an unlink/unlinkDir event: the node and all its
// descendants turn ghost and start fading; nothing is detached yet so the
// user sees the deletion before it disappears.
func (s *State) RemoveNode(path string, event heat.Event) {
	path = filepath.Clean(path)
	n, ok := s.index[path]
	if !ok || n == s.root {
		return
	}
	now := s.clock()

	n.walk(func(d *Node) {
		d.Ghost = true
		d.GhostStep = 0
	})
	n.Event = event
	n.EventTime = now

	s.ghosts[path] = &Ghost{Node: n, DeathTime: now}
	s.pushHistory(n)
	s.propagateToParents(path, now)
	debug.Log("ghost: %s (%s)", path, event)
}

// AdvanceGhosts moves every fading node one step and finalizes the ones
// that ran out of steps: they are detached from their parent and dropped
// from the index, the history, and the ghost table. Reports whether any
// ghost was finalized.
func (s *State) AdvanceGhosts() bool {
	finalized := false
	for path, g := range s.ghosts {
		g.FadeStep++
		g.Node.GhostStep = g.FadeStep
		if g.FadeStep < s.ghostSteps {
			continue
		}
		s.finalize(path, g.Node)
		delete(s.ghosts, path)
		finalized = true
	}
	return finalized
}

// finalize fully removes a faded subtree.
func (s *State) finalize(path string, n *Node) {
	n.walk(func(d *Node) {
		delete(s.index, d.Path)
		s.dropHistory(d.Path)
	})
	if parent := s.parentOf(path); parent != nil {
		delete(parent.Children, n.Name)
	}
	debug.Log("ghost finalized: %s", path)
}

// resurrect clears ghost state on the node at path and on any ghost
// ancestors. Re-creating a file inside a deleted directory brings the
// directory back.
func (s *State) resurrect(path string) {
	for p := path; ; p = filepath.Dir(p) {
		if n, ok := s.index[p]; ok && n.Ghost {
			n.Ghost = false
			n.GhostStep = 0
			delete(s.ghosts, p)
		}
		if p == s.root.Path || filepath.Dir(p) == p {
			return
		}
	}
}

// ensureParents creates any missing ancestor directories between the root
// and path, with no event attached.
func (s *State) ensureParents(path string) {
	parent := filepath.Dir(path)
	if parent == path || path == s.root.Path {
		return
	}
	if _, ok := s.index[parent]; ok {
		return
	}
	s.ensureParents(parent)
	n := newNode(parent, Dir)
	s.index[parent] = n
	if pp := s.parentOf(parent); pp != nil {
		pp.Children[n.Name] = n
	}
}

// parentOf resolves a node's parent through the path index.
func (s *State) parentOf(path string) *Node {
	if path == s.root.Path {
		return nil
	}
	return s.index[filepath.Dir(path)]
}

// propagateToParents lights up the ancestor chain of path. A parent's
// timestamp moves to now unless it already lies inside the refresh
// window. A parent with no event (or only childChange) is stamped
// childChange; a real event of its own keeps its kind.
func (s *State) propagateToParents(path string, now time.Time) {
	for p := filepath.Dir(path); ; p = filepath.Dir(p) {
		n, ok := s.index[p]
		if !ok {
			return
		}
		if n.EventTime.IsZero() || n.EventTime.Before(now.Add(-parentRefreshWindow)) {
			n.EventTime = now
		}
		if n.Event == heat.EventNone || n.Event == heat.EventChildChange {
			n.Event = heat.EventChildChange
		}
		if p == s.root.Path || filepath.Dir(p) == p {
			return
		}
	}
}

// pushHistory moves n to the front of the rolling history, deduped by
// path and truncated to the limit.
func (s *State) pushHistory(n *Node) {
	s.dropHistory(n.Path)
	s.history = append([]*Node{n}, s.history...)
	if len(s.history) > s.historyLimit {
		s.history = s.history[:s.historyLimit]
	}
}

func (s *State) dropHistory(path string) {
	for i, h := range s.history {
		if h.Path == path {
			s.history = append(s.history[:i], s.history[i+1:]...)
			return
		}
	}
}

// InHistory reports whether path is in the rolling history.
func (s *State) InHistory(path string) bool {
	for _, h := range s.history {
		if h.Path == path {
			return true
		}
	}
	return false
}

// History returns the recent-changes list, most recent first.
func (s *State) History() []*Node {
	out := make([]*Node, len(s.history))
	copy(out, s.history)
	return out
}

// ClearActivity wipes event state and history after the initial inventory
// seed, so pre-existing files don't show up as fresh activity.
func (s *State) ClearActivity() {
	s.root.walk(func(n *Node) {
		n.Event = heat.EventNone
		n.EventTime = time.Time{}
		n.Heat = 0
	})
	s.history = nil
	s.hasHot = false
}

// CalculateAllHeat recomputes every node's heat as of now, post-order so
// directories see their children's fresh scores. Fading ghosts get a
// floor that steps down with each fade tick, keeping deletions visible.
func (s *State) CalculateAllHeat(now time.Time) {
	s.hasHot = false
	s.calcHeat(s.root, now)
}

func (s *State) calcHeat(n *Node, now time.Time) float64 {
	own := heat.Score(s.weights, n.Event, n.EventTime, now)

	h := own
	if n.IsDir() && len(n.Children) > 0 {
		childHeats := make([]float64, 0, len(n.Children))
		for _, c := range n.Children {
			childHeats = append(childHeats, s.calcHeat(c, now))
		}
		h = heat.DirScore(childHeats, own)
	}

	if n.Ghost && n.GhostStep < s.ghostSteps {
		if boost := ghostBoostBase - ghostBoostDecay*float64(n.GhostStep); boost > h {
			h = boost
		}
	}

	n.Heat = h
	if heat.IsHot(h) {
		s.hasHot = true
	}
	return h
}

// HasHotItems reports whether the last heat pass saw any hot node, or any
// ghost is still fading. Drives the breath redraw timer.
func (s *State) HasHotItems() bool {
	return s.hasHot || len(s.ghosts) > 0
}

// ChangeCount counts descendants of dir whose current heat is hot. Used
// for the "(N changes)" directory annotation.
func (s *State) ChangeCount(dir *Node) int {
	if dir == nil || !dir.IsDir() {
		return 0
	}
	count := 0
	for _, c := range dir.Children {
		if heat.IsHot(c.Heat) {
			count++
		}
		if c.IsDir() {
			count += s.ChangeCount(c)
		}
	}
	return count
}
