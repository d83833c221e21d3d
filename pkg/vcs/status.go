// Package vcs supplies git working-tree status for the watched subtree:
// a per-path classification parsed from porcelain output, directory
// aggregation by severity, and the ahead/behind counters for the header.
//
// Everything here is best-effort. A missing git binary, a directory that
// is not a repository, a broken upstream, or oversized output all yield
// an empty or stale snapshot, never an error the caller has to handle.
package vcs

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/charmbracelet/lipgloss"
)

// Class orders working-tree states by severity. Higher wins when
// aggregating to directories.
type Class int

const (
	ClassNone      Class = 0
	ClassUntracked Class = 1
	ClassStaged    Class = 2
	ClassBoth      Class = 3
	ClassUnstaged  Class = 4
	ClassConflict  Class = 5
)

func (c Class) String() string {
	switch c {
	case ClassConflict:
		return "conflict"
	case ClassUnstaged:
		return "unstaged"
	case ClassBoth:
		return "both"
	case ClassStaged:
		return "staged"
	case ClassUntracked:
		return "untracked"
	default:
		return "none"
	}
}

// Symbol returns the one-cell glyph drawn next to a path. Both-changed
// files render with the unstaged glyph.
func (c Class) Symbol() string {
	switch c {
	case ClassConflict:
		return "✖"
	case ClassUnstaged, ClassBoth:
		return "●"
	case ClassStaged:
		return "✚"
	case ClassUntracked:
		return "?"
	default:
		return " "
	}
}

// Color returns the ANSI color for the glyph and the path name.
func (c Class) Color() lipgloss.Color {
	switch c {
	case ClassConflict:
		return lipgloss.Color("9")
	case ClassUnstaged, ClassBoth:
		return lipgloss.Color("3")
	case ClassStaged:
		return lipgloss.Color("2")
	case ClassUntracked:
		return lipgloss.Color("8")
	default:
		return lipgloss.Color("7")
	}
}

// Snapshot is one immutable status capture. Readers get either a complete
// snapshot or the previous one; never a half-built map.
type Snapshot struct {
	files  map[string]Class // absolute path -> class
	dirs   map[string]Class // absolute dir path -> max descendant class
	ahead  int
	behind int
	digest uint64
}

// FileStatus returns the class for an absolute file path. Safe on nil.
func (s *Snapshot) FileStatus(path string) (Class, bool) {
	if s == nil {
		return ClassNone, false
	}
	c, ok := s.files[path]
	return c, ok
}

// DirStatus returns the aggregated class for an absolute directory path.
// Safe on nil.
func (s *Snapshot) DirStatus(path string) (Class, bool) {
	if s == nil {
		return ClassNone, false
	}
	c, ok := s.dirs[path]
	return c, ok
}

// Status resolves either map depending on node kind. Safe on nil.
func (s *Snapshot) Status(path string, isDir bool) (Class, bool) {
	if isDir {
		return s.DirStatus(path)
	}
	return s.FileStatus(path)
}

// AheadBehind returns the commits ahead of and behind the upstream.
func (s *Snapshot) AheadBehind() (ahead, behind int) {
	if s == nil {
		return 0, 0
	}
	return s.ahead, s.behind
}

// Digest is a cheap fingerprint of the snapshot inputs, used to skip
// renders when nothing actually changed.
func (s *Snapshot) Digest() uint64 {
	if s == nil {
		return 0
	}
	return s.digest
}

// Empty reports whether the snapshot carries no per-path status.
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.files) == 0
}

// classify maps a two-character porcelain code to a Class.
func classify(code string) Class {
	if len(code) < 2 {
		return ClassNone
	}
	x, y := code[0], code[1]

	switch {
	case x == 'U' || y == 'U' || code == "AA" || code == "DD":
		return ClassConflict
	case code == "??":
		return ClassUntracked
	case x != ' ' && x != '?' && y != ' ' && y != '?':
		return ClassBoth
	case y != ' ':
		return ClassUnstaged
	case x != ' ':
		return ClassStaged
	default:
		return ClassNone
	}
}

// parsePorcelain builds a Snapshot from `git status --porcelain` output.
// Rename lines ("R  old -> new") contribute the right-hand path only.
func parsePorcelain(root string, porcelain []byte, ahead, behind int) *Snapshot {
	snap := &Snapshot{
		files:  make(map[string]Class),
		dirs:   make(map[string]Class),
		ahead:  ahead,
		behind: behind,
	}

	h := xxhash.New()
	_, _ = h.Write(porcelain)
	_, _ = h.WriteString("|" + strconv.Itoa(ahead) + "|" + strconv.Itoa(behind))
	snap.digest = h.Sum64()

	for _, line := range strings.Split(string(porcelain), "\n") {
		if len(line) < 4 {
			continue
		}
		class := classify(line[:2])
		if class == ClassNone {
			continue
		}

		path := line[3:]
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		path = strings.Trim(path, `"`)
		path = filepath.Join(root, filepath.FromSlash(strings.TrimSuffix(path, "/")))

		if prev, ok := snap.files[path]; !ok || class > prev {
			snap.files[path] = class
		}
	}

	// Aggregate to ancestors by max severity, stopping at the root.
	for path, class := range snap.files {
		for dir := filepath.Dir(path); strings.HasPrefix(dir, root); dir = filepath.Dir(dir) {
			if prev, ok := snap.dirs[dir]; !ok || class > prev {
				snap.dirs[dir] = class
			}
			if dir == root || filepath.Dir(dir) == dir {
				break
			}
		}
	}

	return snap
}
