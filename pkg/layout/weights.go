package layout

import "github.com/vanderheijden86/smolder/pkg/vcs"

// WeightTable holds every additive component of a candidate line's rank.
// It is plain data so users can retune the ranking from config without a
// rebuild. Higher weights survive row trimming first.
type WeightTable struct {
	// Root pins the watch root into every layout.
	Root float64 `yaml:"root"`

	// Type component.
	File      float64 `yaml:"file"`
	Directory float64 `yaml:"directory"`

	// VCS component, ordered by severity.
	Conflict  float64 `yaml:"conflict"`
	Unstaged  float64 `yaml:"unstaged"`
	Both      float64 `yaml:"both"`
	Staged    float64 `yaml:"staged"`
	Untracked float64 `yaml:"untracked"`

	// Heat bucket.
	Hot float64 `yaml:"hot"`

	// Event kind component.
	Unlink float64 `yaml:"unlink"`
	Add    float64 `yaml:"add"`
	Change float64 `yaml:"change"`
	Rename float64 `yaml:"rename"`

	// Context component.
	HotDirBonus float64 `yaml:"hot_dir_bonus"`
	History     float64 `yaml:"history"`
	Ghost       float64 `yaml:"ghost"`

	// FilterMatch sits below Root and above everything else so matches
	// always survive trimming.
	FilterMatch float64 `yaml:"filter_match"`
}

// DefaultWeightTable returns the contract ranking weights.
func DefaultWeightTable() WeightTable {
	return WeightTable{
		Root:        10000,
		File:        50,
		Directory:   100,
		Conflict:    800,
		Unstaged:    700,
		Both:        650,
		Staged:      600,
		Untracked:   500,
		Hot:         350,
		Unlink:      150,
		Add:         75,
		Change:      50,
		Rename:      25,
		HotDirBonus: 200,
		History:     100,
		Ghost:       50,
		FilterMatch: 9000,
	}
}

// vcsWeight maps a status class to its ranking component.
func (t WeightTable) vcsWeight(c vcs.Class) float64 {
	switch c {
	case vcs.ClassConflict:
		return t.Conflict
	case vcs.ClassUnstaged:
		return t.Unstaged
	case vcs.ClassBoth:
		return t.Both
	case vcs.ClassStaged:
		return t.Staged
	case vcs.ClassUntracked:
		return t.Untracked
	default:
		return 0
	}
}
