package ui

import (
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/smolder/pkg/config"
	"github.com/vanderheijden86/smolder/pkg/layout"
	"github.com/vanderheijden86/smolder/pkg/tree"
	"github.com/vanderheijden86/smolder/pkg/vcs"
)

// snapshotLine is the JSON shape of one layout line.
type snapshotLine struct {
	Path         string  `json:"path"`
	Name         string  `json:"name"`
	Kind         string  `json:"kind"`
	Depth        int     `json:"depth"`
	DisplayOrder int     `json:"display_order"`
	Weight       float64 `json:"weight"`
	Heat         float64 `json:"heat"`
	Event        string  `json:"event,omitempty"`
	Ghost        bool    `json:"ghost,omitempty"`
	VcsStatus    string  `json:"vcs_status,omitempty"`
	FilterMatch  string  `json:"filter_match,omitempty"`
}

// snapshot is the JSON shape of one full layout pass.
type snapshot struct {
	RootPath      string         `json:"root_path"`
	TotalRows     int            `json:"total_rows"`
	AvailableRows int            `json:"available_rows"`
	Collapsed     bool           `json:"collapsed"`
	Ahead         int            `json:"ahead,omitempty"`
	Behind        int            `json:"behind,omitempty"`
	Lines         []snapshotLine `json:"lines"`
}

// RobotSnapshot runs one layout pass and serializes it for non-TTY
// consumers (scripts, tests). This is the automation face of the same
// LayoutResult contract the renderer consumes.
func RobotSnapshot(st *tree.State, snap *vcs.Snapshot, cfg config.Config, rows int, now time.Time) ([]byte, error) {
	res := layout.Compute(st, snap, cfg.Weights, layout.Params{Rows: rows, Now: now})

	out := snapshot{
		RootPath:      res.RootPath,
		TotalRows:     res.TotalRows,
		AvailableRows: res.AvailableRows,
		Collapsed:     res.Collapsed,
		Lines:         make([]snapshotLine, 0, len(res.Lines)),
	}
	out.Ahead, out.Behind = snap.AheadBehind()

	for _, l := range res.Lines {
		n := l.Node
		sl := snapshotLine{
			Path:         n.Path,
			Name:         n.Name,
			Kind:         n.Kind.String(),
			Depth:        l.Depth,
			DisplayOrder: l.DisplayOrder,
			Weight:       l.Weight,
			Heat:         n.Heat,
			Ghost:        n.Ghost,
		}
		if !n.EventTime.IsZero() {
			sl.Event = n.Event.String()
		}
		if class, ok := snap.Status(n.Path, n.IsDir()); ok {
			sl.VcsStatus = class.String()
		}
		if l.FilterMatch != nil {
			sl.FilterMatch = l.FilterMatch.Kind.String()
		}
		out.Lines = append(out.Lines, sl)
	}

	return json.MarshalIndent(out, "", "  ")
}
