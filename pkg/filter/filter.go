// Package filter turns the interactive filter pattern into a predicate
// over node names and root-relative paths.
//
// A pattern containing '*' or '?' is a glob (matched with doublestar so
// '**' crosses directory levels); anything else is a case-insensitive
// substring. A '/' anywhere in the pattern switches matching from the
// node name to the relative path.
package filter

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MatchKind tells the layout how a node matched.
type MatchKind int

const (
	MatchGlob MatchKind = iota
	MatchText
)

func (k MatchKind) String() string {
	if k == MatchGlob {
		return "glob"
	}
	return "text"
}

// Match describes a positive filter hit.
type Match struct {
	Kind MatchKind
}

// Filter is a compiled pattern. The zero value matches nothing.
type Filter struct {
	raw      string
	cleaned  string
	isGlob   bool
	pathMode bool
	deepPath bool // cleaned pattern still contains '/'
}

// New compiles a pattern string.
func New(pattern string) Filter {
	f := Filter{raw: pattern}
	if pattern == "" {
		return f
	}
	f.isGlob = strings.ContainsAny(pattern, "*?")
	f.pathMode = strings.Contains(pattern, "/")
	f.cleaned = strings.TrimPrefix(pattern, "/")
	f.deepPath = strings.Contains(f.cleaned, "/")
	return f
}

// Empty reports whether the filter matches nothing.
func (f Filter) Empty() bool {
	return f.raw == ""
}

// Pattern returns the raw pattern string.
func (f Filter) Pattern() string {
	return f.raw
}

// Match tests a node. relPath is the node's path relative to the watch
// root, '/'-separated, without a leading slash. A match never implies the
// node's ancestors match; they are drawn only to position the hit.
func (f Filter) Match(name, relPath string, isDir bool) (Match, bool) {
	if f.Empty() {
		return Match{}, false
	}

	if f.pathMode {
		rel := strings.ToLower(relPath)
		pat := strings.ToLower(f.cleaned)

		if f.isGlob {
			if ok, err := doublestar.Match(pat, rel); err == nil && ok {
				return Match{Kind: MatchGlob}, true
			}
			return Match{}, false
		}

		if !f.deepPath {
			// "/src" names one entry exactly, not its children.
			if rel == pat {
				return Match{Kind: MatchText}, true
			}
			return Match{}, false
		}

		// Inner slash: substring over the relative path, files only, so
		// directories never match just for containing a matching file.
		if !isDir && strings.Contains(rel, pat) {
			return Match{Kind: MatchText}, true
		}
		return Match{}, false
	}

	lowName := strings.ToLower(name)
	pat := strings.ToLower(f.raw)
	if f.isGlob {
		if ok, err := doublestar.Match(pat, lowName); err == nil && ok {
			return Match{Kind: MatchGlob}, true
		}
		return Match{}, false
	}
	if strings.Contains(lowName, pat) {
		return Match{Kind: MatchText}, true
	}
	return Match{}, false
}
