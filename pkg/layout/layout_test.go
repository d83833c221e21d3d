package layout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/smolder/pkg/filter"
	"github.com/vanderheijden86/smolder/pkg/heat"
	"github.com/vanderheijden86/smolder/pkg/tree"
	"github.com/vanderheijden86/smolder/pkg/vcs"
)

var t0 = time.Unix(1700000000, 0)

func buildState(tb testing.TB, paths ...string) *tree.State {
	tb.Helper()
	st := tree.NewState("/watch", tree.WithClock(func() time.Time { return t0 }))
	for _, p := range paths {
		st.SetNode("/watch/"+p, tree.File, heat.EventNone)
	}
	st.ClearActivity()
	return st
}

func names(lines []Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Node.Name
	}
	return out
}

func find(lines []Line, name string) *Line {
	for i := range lines {
		if lines[i].Node.Name == name {
			return &lines[i]
		}
	}
	return nil
}

func TestCompute_SingleModification(t *testing.T) {
	// S1: a lone changed file fits easily and follows the root.
	st := buildState(t, "a.txt")
	st.SetNode("/watch/a.txt", tree.File, heat.EventChange)

	res := Compute(st, nil, DefaultWeightTable(), Params{Rows: 10, Now: t0})

	if res.TotalRows != 2 || len(res.Lines) != 2 {
		t.Fatalf("lines = %d/%d, want 2/2", len(res.Lines), res.TotalRows)
	}
	if res.Collapsed {
		t.Error("nothing should be trimmed")
	}
	if got := names(res.Lines); got[0] != "watch" || got[1] != "a.txt" {
		t.Errorf("order = %v, want [watch a.txt]", got)
	}
	if res.RootPath != "/watch" {
		t.Errorf("root path = %s", res.RootPath)
	}
}

func TestCompute_RootAlwaysPresentAndFirst(t *testing.T) {
	st := buildState(t)
	for i := 0; i < 50; i++ {
		st.SetNode(fmt.Sprintf("/watch/f%02d.txt", i), tree.File, heat.EventNone)
	}
	st.ClearActivity()

	res := Compute(st, nil, DefaultWeightTable(), Params{Rows: 8, Now: t0})

	if len(res.Lines) == 0 || res.Lines[0].Node.Path != "/watch" {
		t.Fatal("root must be the first selected line")
	}
	if res.Lines[0].Weight != DefaultWeightTable().Root {
		t.Errorf("root weight = %v, want %v", res.Lines[0].Weight, DefaultWeightTable().Root)
	}
}

func TestCompute_SpaceContention(t *testing.T) {
	// S3: 50 cold files, one hot, 8 terminal rows -> budget of 5.
	st := buildState(t)
	for i := 0; i < 50; i++ {
		st.SetNode(fmt.Sprintf("/watch/f%02d.txt", i), tree.File, heat.EventNone)
	}
	st.ClearActivity()
	st.SetNode("/watch/x.txt", tree.File, heat.EventChange)

	res := Compute(st, nil, DefaultWeightTable(), Params{Rows: 8, Now: t0})

	if res.AvailableRows != 5 {
		t.Fatalf("budget = %d, want 5", res.AvailableRows)
	}
	if len(res.Lines) != 5 {
		t.Fatalf("selected = %d, want 5", len(res.Lines))
	}
	if !res.Collapsed {
		t.Error("collapsed should be true")
	}
	if find(res.Lines, "watch") == nil {
		t.Error("root missing")
	}
	if find(res.Lines, "x.txt") == nil {
		t.Error("hot file missing")
	}
}

func TestCompute_TinyTerminalFloorsBudget(t *testing.T) {
	st := buildState(t, "a", "b", "c", "d", "e", "f", "g", "h")
	res := Compute(st, nil, DefaultWeightTable(), Params{Rows: 3, Now: t0})
	if res.AvailableRows != MinRows {
		t.Errorf("budget = %d, want floor %d", res.AvailableRows, MinRows)
	}
	if len(res.Lines) != MinRows {
		t.Errorf("selected = %d, want %d", len(res.Lines), MinRows)
	}
}

func TestCompute_FilterDominance(t *testing.T) {
	// S4: the filter match must survive any non-empty layout.
	st := buildState(t)
	for i := 0; i < 50; i++ {
		st.SetNode(fmt.Sprintf("/watch/f%02d.log", i), tree.File, heat.EventNone)
	}
	st.SetNode("/watch/x.txt", tree.File, heat.EventNone)
	st.ClearActivity()

	res := Compute(st, nil, DefaultWeightTable(), Params{
		Rows:   8,
		Filter: filter.New("x"),
		Now:    t0,
	})

	match := find(res.Lines, "x.txt")
	if match == nil {
		t.Fatal("filter match trimmed from layout")
	}
	if match.FilterMatch == nil || match.FilterMatch.Kind != filter.MatchText {
		t.Error("match descriptor missing or wrong kind")
	}
	if match.Weight < 9000 {
		t.Errorf("match weight = %v, want >= 9000", match.Weight)
	}
}

func TestCompute_AncestorsAreNotMatches(t *testing.T) {
	st := buildState(t, "src/deep/x.txt")
	res := Compute(st, nil, DefaultWeightTable(), Params{
		Rows:   20,
		Filter: filter.New("x.txt"),
		Now:    t0,
	})

	if l := find(res.Lines, "src"); l == nil || l.FilterMatch != nil {
		t.Error("ancestor should be drawn but not marked as a match")
	}
	if l := find(res.Lines, "x.txt"); l == nil || l.FilterMatch == nil {
		t.Error("leaf should be a match")
	}
}

func TestFlatten_VcsPrecedesHeat(t *testing.T) {
	// S5: status-bearing nodes sort before warmer status-less siblings.
	st := buildState(t, "a", "b")
	bn := st.Lookup("/watch/b")
	bn.Heat = 10 // warm but no status

	snap := vcsSnapshot(t, "?? a\n")
	lines := flatten(st, snap, filter.Filter{})

	if got := names(lines); got[1] != "a" || got[2] != "b" {
		t.Errorf("order = %v, want a before b", got)
	}
}

func TestFlatten_DirsBeforeFiles(t *testing.T) {
	st := buildState(t, "zz.txt", "dir/inner.txt", "aa.txt")
	lines := flatten(st, nil, filter.Filter{})
	got := names(lines)
	want := []string{"watch", "dir", "inner.txt", "aa.txt", "zz.txt"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestFlatten_HeatDeadBand(t *testing.T) {
	// Property 9: heat differences inside the dead-band keep the
	// alphabetical order.
	st := buildState(t, "alpha", "beta")
	st.Lookup("/watch/alpha").Heat = 10
	st.Lookup("/watch/beta").Heat = 14

	lines := flatten(st, nil, filter.Filter{})
	if got := names(lines); got[1] != "alpha" {
		t.Errorf("dead-band violated: %v", got)
	}

	// Push past the band and beta jumps ahead.
	st.Lookup("/watch/beta").Heat = 16
	lines = flatten(st, nil, filter.Filter{})
	if got := names(lines); got[1] != "beta" {
		t.Errorf("heat order not applied: %v", got)
	}
}

func TestFlatten_PrefixVectors(t *testing.T) {
	st := buildState(t, "a/x.txt", "a/y.txt", "b/z.txt")
	lines := flatten(st, nil, filter.Filter{})

	x := find(lines, "x.txt")
	if x == nil || len(x.ParentContinues) != 2 {
		t.Fatalf("x.txt prefix = %v, want len 2", x)
	}
	// Column 0: dir a has a later sibling (b), so the bar continues.
	// Column 1: x has a later sibling (y).
	if x.ParentContinues[0] != true || x.ParentContinues[1] != true {
		t.Errorf("x.txt prefix = %v, want [true true]", x.ParentContinues)
	}

	z := find(lines, "z.txt")
	if z == nil || !z.IsLast {
		t.Error("z.txt should be last among its siblings")
	}
	// Column 0: dir b is the last child of the root, no bar below.
	if z.ParentContinues[0] != false || z.ParentContinues[1] != false {
		t.Errorf("z.txt prefix = %v, want [false false]", z.ParentContinues)
	}
}

func TestWeigh_Components(t *testing.T) {
	wt := DefaultWeightTable()
	st := buildState(t, "plain.txt")
	st.SetNode("/watch/hot.txt", tree.File, heat.EventChange)
	st.CalculateAllHeat(t0)

	lines := flatten(st, nil, filter.Filter{})
	for i := range lines {
		lines[i].Weight = weigh(st, nil, wt, &lines[i])
	}

	hot := find(lines, "hot.txt")
	// file 50 + hot 350 + change 50 + history 100 + heat 60.
	if want := 50 + 350 + 50 + 100 + 60.0; hot.Weight != want {
		t.Errorf("hot file weight = %v, want %v", hot.Weight, want)
	}

	plain := find(lines, "plain.txt")
	if want := 50.0; plain.Weight != want {
		t.Errorf("plain file weight = %v, want %v", plain.Weight, want)
	}
}

func TestWeigh_VcsAndGhost(t *testing.T) {
	wt := DefaultWeightTable()
	st := buildState(t, "conflict.go", "gone.txt")
	st.RemoveNode("/watch/gone.txt", heat.EventUnlink)
	st.CalculateAllHeat(t0)

	snap := vcsSnapshot(t, "UU conflict.go\n")
	lines := flatten(st, snap, filter.Filter{})
	for i := range lines {
		lines[i].Weight = weigh(st, snap, wt, &lines[i])
	}

	c := find(lines, "conflict.go")
	// file 50 + conflict 800 + heat 0.
	if want := 850.0; c.Weight != want {
		t.Errorf("conflict weight = %v, want %v", c.Weight, want)
	}

	g := find(lines, "gone.txt")
	// file 50 + hot 350 + unlink 150 + history 100 + ghost 50 + heat 100
	// (a fresh unlink scores its full weight, above the ghost floor).
	if want := 50 + 350 + 150 + 100 + 50 + 100.0; g.Weight != want {
		t.Errorf("ghost weight = %v, want %v", g.Weight, want)
	}
}

func TestSelect_PropertyFitAndOrder(t *testing.T) {
	// Properties 6 and 7 over random trees and terminal sizes.
	rapid.Check(t, func(rt *rapid.T) {
		st := tree.NewState("/watch", tree.WithClock(func() time.Time { return t0 }))
		nFiles := rapid.IntRange(0, 60).Draw(rt, "files")
		for i := 0; i < nFiles; i++ {
			depth := rapid.IntRange(0, 3).Draw(rt, "depth")
			path := "/watch"
			for d := 0; d < depth; d++ {
				path += fmt.Sprintf("/d%d", rapid.IntRange(0, 2).Draw(rt, "dir"))
			}
			path += fmt.Sprintf("/f%d", i)
			ev := heat.EventNone
			if rapid.Bool().Draw(rt, "active") {
				ev = heat.EventChange
			}
			st.SetNode(path, tree.File, ev)
		}

		rows := rapid.IntRange(0, 40).Draw(rt, "rows")
		res := Compute(st, nil, DefaultWeightTable(), Params{Rows: rows, Now: t0})

		budget := rows - HeaderRows - FooterRows
		if budget < MinRows {
			budget = MinRows
		}
		if len(res.Lines) > budget {
			rt.Fatalf("selected %d lines for budget %d", len(res.Lines), budget)
		}
		if res.AvailableRows >= 1 && (len(res.Lines) == 0 || res.Lines[0].Node.Path != "/watch") {
			rt.Fatal("root missing from layout")
		}
		for i := 1; i < len(res.Lines); i++ {
			if res.Lines[i].DisplayOrder <= res.Lines[i-1].DisplayOrder {
				rt.Fatalf("display order not strictly increasing at %d", i)
			}
		}
		if res.Collapsed != (len(res.Lines) < res.TotalRows) {
			rt.Fatal("collapsed flag inconsistent")
		}
	})
}

// vcsSnapshot builds a snapshot from canned porcelain output via the
// public source API.
func vcsSnapshot(tb testing.TB, porcelain string) *vcs.Snapshot {
	tb.Helper()
	src := vcs.NewSource("/watch", false,
		vcs.WithRunner(func(ctx context.Context, args ...string) ([]byte, error) {
			if args[0] == "status" {
				return []byte(porcelain), nil
			}
			return []byte("0\t0\n"), nil
		}))
	return src.Refresh(context.Background())
}
