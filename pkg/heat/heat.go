// Package heat implements the activity scoring model: per-event weights,
// exponential time decay, and upward aggregation into directories.
//
// Heat is a score in [0, MaxHeat]. A fresh event starts at its event
// weight and halves every HalfLife. Directories combine their own heat
// with their children's so that both a single hot child and broad
// activity below push a directory up the ranking.
package heat

import (
	"math"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Tunables. Defaults are part of the display contract; overrides come in
// through config.
const (
	MaxHeat      = 100.0
	HotThreshold = 20.0
	HalfLife     = 10 * time.Second

	// ChildSumWeight is how much the sum of all child heats contributes
	// to a directory on top of its hottest child.
	ChildSumWeight = 0.1

	// BarSegments is the cell width of the heat bar.
	BarSegments = 6
)

// Event identifies the last filesystem event applied to a node.
type Event int

const (
	EventNone Event = iota
	EventAdd
	EventAddDir
	EventChange
	EventUnlink
	EventUnlinkDir
	EventRename
	EventChildChange
)

// String returns the short label used in debug output and robot snapshots.
func (e Event) String() string {
	switch e {
	case EventAdd:
		return "add"
	case EventAddDir:
		return "addDir"
	case EventChange:
		return "change"
	case EventUnlink:
		return "unlink"
	case EventUnlinkDir:
		return "unlinkDir"
	case EventRename:
		return "rename"
	case EventChildChange:
		return "childChange"
	default:
		return "none"
	}
}

// IsRemoval reports whether the event deletes the node it lands on.
func (e Event) IsRemoval() bool {
	return e == EventUnlink || e == EventUnlinkDir
}

// Weights maps an event kind to its initial heat. Exposed as data so the
// table can be retuned from config without touching ranking code.
type Weights struct {
	Unlink  float64 `yaml:"unlink"`
	Add     float64 `yaml:"add"`
	Change  float64 `yaml:"change"`
	Rename  float64 `yaml:"rename"`
	Default float64 `yaml:"default"`
}

// DefaultWeights returns the contract event-weight table.
func DefaultWeights() Weights {
	return Weights{
		Unlink:  100,
		Add:     80,
		Change:  60,
		Rename:  40,
		Default: 30,
	}
}

// For returns the initial heat for an event kind.
func (w Weights) For(e Event) float64 {
	switch e {
	case EventUnlink, EventUnlinkDir:
		return w.Unlink
	case EventAdd, EventAddDir:
		return w.Add
	case EventChange:
		return w.Change
	case EventRename:
		return w.Rename
	case EventNone:
		return 0
	default:
		return w.Default
	}
}

// Score computes the decayed heat of an event that happened at eventTime,
// observed at now. Zero-value eventTime means the node never saw an event
// and scores 0. The result is non-negative, clamped to MaxHeat, and
// monotonically non-increasing in now.
func Score(w Weights, e Event, eventTime, now time.Time) float64 {
	if e == EventNone || eventTime.IsZero() {
		return 0
	}
	age := now.Sub(eventTime)
	if age < 0 {
		age = 0
	}
	h := w.For(e) * math.Exp2(-float64(age)/float64(HalfLife))
	if h > MaxHeat {
		return MaxHeat
	}
	return h
}

// DirScore combines a directory's own heat with its children's. The
// hottest child dominates, the sum of all children adds a broad-activity
// bonus, and the directory's own events are never outranked by either.
func DirScore(childHeats []float64, ownHeat float64) float64 {
	if len(childHeats) == 0 {
		return ownHeat
	}
	maxChild, sum := 0.0, 0.0
	for _, h := range childHeats {
		if h > maxChild {
			maxChild = h
		}
		sum += h
	}
	h := maxChild + ChildSumWeight*sum
	if ownHeat > h {
		h = ownHeat
	}
	return math.Min(MaxHeat, h)
}

// IsHot reports whether a heat value counts as hot for ranking and the
// "(N changes)" annotation.
func IsHot(h float64) bool {
	return h >= HotThreshold
}

// Color buckets a heat value into the ANSI color used for bars and names.
func Color(h float64) lipgloss.Color {
	switch {
	case h >= 80:
		return lipgloss.Color("9") // bright red
	case h >= 60:
		return lipgloss.Color("1") // red
	case h >= 40:
		return lipgloss.Color("5") // magenta
	case h >= 20:
		return lipgloss.Color("6") // cyan
	default:
		return lipgloss.Color("4") // blue
	}
}

// BarFill returns how many of the BarSegments cells are lit for h.
func BarFill(h float64) int {
	if h <= 0 {
		return 0
	}
	if h >= MaxHeat {
		return BarSegments
	}
	return int(math.Round(h / MaxHeat * BarSegments))
}
