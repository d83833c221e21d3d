// Package layout flattens the tree into an ordered list of candidate
// lines, ranks each with an additive weight, and selects the top-K that
// fit the terminal while preserving display order.
//
// The additive scheme (instead of priority tiers) gives smooth, tunable
// ranking: a staged file in a hot cooling directory naturally beats an
// untracked cold file, and the raw-heat tiebreaker keeps comparisons
// from ever landing exactly equal in practice.
package layout

import (
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/smolder/pkg/filter"
	"github.com/vanderheijden86/smolder/pkg/heat"
	"github.com/vanderheijden86/smolder/pkg/metrics"
	"github.com/vanderheijden86/smolder/pkg/tree"
	"github.com/vanderheijden86/smolder/pkg/vcs"
)

// Row budget around the line area.
const (
	HeaderRows = 2
	FooterRows = 1
	MinRows    = 5

	// heatDeadBand keeps siblings from swapping places on every decay
	// tick: heat only reorders when the difference exceeds this.
	heatDeadBand = 5.0
)

// LineKind leaves room for future non-node indicator lines.
type LineKind int

const (
	LineNode LineKind = iota
)

// Line is one display candidate. It carries everything the renderer
// needs, including the precomputed ancestor-continuation vector, so a
// selected line never requires a live parent lookup (its ancestors may
// have been trimmed away).
type Line struct {
	Kind         LineKind
	Node         *tree.Node
	DisplayOrder int
	Depth        int
	IsLast       bool
	// ParentContinues has one entry per level below the root, down to and
	// including this line's own: whether the node on the path at that
	// level has a later sibling (drawn as a vertical bar).
	ParentContinues []bool
	Weight          float64
	FilterMatch     *filter.Match
}

// Result is one layout pass.
type Result struct {
	Lines         []Line
	TotalRows     int
	AvailableRows int
	Collapsed     bool
	RootPath      string
}

// Params bundles the per-render inputs.
type Params struct {
	Rows   int
	Filter filter.Filter
	Now    time.Time
}

// Compute runs the full pipeline: heat pass, flatten, weigh, select.
func Compute(st *tree.State, snap *vcs.Snapshot, wt WeightTable, p Params) Result {
	defer metrics.Timer(metrics.LayoutPass)()

	heatDone := metrics.Timer(metrics.HeatPass)
	st.CalculateAllHeat(p.Now)
	heatDone()

	candidates := flatten(st, snap, p.Filter)
	for i := range candidates {
		candidates[i].Weight = weigh(st, snap, wt, &candidates[i])
	}

	budget := p.Rows - HeaderRows - FooterRows
	if budget < MinRows {
		budget = MinRows
	}

	lines := selectTop(candidates, budget)
	return Result{
		Lines:         lines,
		TotalRows:     len(candidates),
		AvailableRows: budget,
		Collapsed:     len(lines) < len(candidates),
		RootPath:      st.Root().Path,
	}
}

// flatten emits the preorder DFS of the tree with per-directory child
// ordering: directories first, then status-bearing nodes (when a
// snapshot is present), then heat outside the dead-band, then name.
func flatten(st *tree.State, snap *vcs.Snapshot, f filter.Filter) []Line {
	root := st.Root()
	var out []Line
	var prefix []bool

	var visit func(n *tree.Node, depth int, isLast bool)
	visit = func(n *tree.Node, depth int, isLast bool) {
		line := Line{
			Kind:            LineNode,
			Node:            n,
			DisplayOrder:    len(out),
			Depth:           depth,
			IsLast:          isLast,
			ParentContinues: append([]bool(nil), prefix...),
		}
		if !f.Empty() && n != root {
			rel := relPath(root.Path, n.Path)
			if m, ok := f.Match(n.Name, rel, n.IsDir()); ok {
				match := m
				line.FilterMatch = &match
			}
		}
		out = append(out, line)

		if !n.IsDir() || len(n.Children) == 0 {
			return
		}
		children := orderChildren(n, snap)
		prefix = append(prefix, false)
		for i, c := range children {
			last := i == len(children)-1
			prefix[len(prefix)-1] = !last
			visit(c, depth+1, last)
		}
		prefix = prefix[:len(prefix)-1]
	}

	visit(root, 0, true)
	return out
}

// orderChildren sorts a directory's children for display.
func orderChildren(n *tree.Node, snap *vcs.Snapshot) []*tree.Node {
	children := make([]*tree.Node, 0, len(n.Children))
	for _, c := range n.Children {
		children = append(children, c)
	}

	sort.SliceStable(children, func(i, j int) bool {
		a, b := children[i], children[j]

		if a.IsDir() != b.IsDir() {
			return a.IsDir()
		}

		if snap != nil {
			_, aHas := snap.Status(a.Path, a.IsDir())
			_, bHas := snap.Status(b.Path, b.IsDir())
			if aHas != bHas {
				return aHas
			}
		}

		if d := a.Heat - b.Heat; d > heatDeadBand || d < -heatDeadBand {
			return d > 0
		}

		an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if an != bn {
			return an < bn
		}
		return a.Name < b.Name
	})
	return children
}

// weigh sums the independent rank components for one candidate.
func weigh(st *tree.State, snap *vcs.Snapshot, wt WeightTable, l *Line) float64 {
	n := l.Node
	if l.Depth == 0 {
		return wt.Root
	}

	var w float64
	if n.IsDir() {
		w += wt.Directory
	} else {
		w += wt.File
	}

	if class, ok := snap.Status(n.Path, n.IsDir()); ok {
		w += wt.vcsWeight(class)
	}

	if heat.IsHot(n.Heat) {
		w += wt.Hot
	}

	switch n.Event {
	case heat.EventUnlink, heat.EventUnlinkDir:
		w += wt.Unlink
	case heat.EventAdd, heat.EventAddDir:
		w += wt.Add
	case heat.EventChange:
		w += wt.Change
	case heat.EventRename:
		w += wt.Rename
	}

	if n.IsDir() && st.ChangeCount(n) > 0 {
		w += wt.HotDirBonus
	}
	if st.InHistory(n.Path) {
		w += wt.History
	}
	if n.Ghost {
		w += wt.Ghost
	}
	if l.FilterMatch != nil {
		w += wt.FilterMatch
	}

	// Raw heat as tiebreaker keeps equal-component lines apart.
	return w + n.Heat
}

// selectTop keeps the budget's worth of highest-weight lines and restores
// their original display order. No attempt is made to keep ancestry
// closed; the renderer draws from each line's stored prefix vector.
func selectTop(candidates []Line, budget int) []Line {
	if len(candidates) <= budget {
		return candidates
	}

	byWeight := make([]int, len(candidates))
	for i := range byWeight {
		byWeight[i] = i
	}
	sort.SliceStable(byWeight, func(i, j int) bool {
		return candidates[byWeight[i]].Weight > candidates[byWeight[j]].Weight
	})

	keep := byWeight[:budget]
	sort.Ints(keep)

	out := make([]Line, 0, budget)
	for _, idx := range keep {
		out = append(out, candidates[idx])
	}
	return out
}

// relPath converts an absolute node path to the '/'-separated path
// relative to the watch root that the filter matches against.
func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
