// Package tree maintains the mutable, ghost-aware state of the watched
// subtree: one node per tracked path, a rolling history of recently
// changed nodes, and a fade-out table for deleted paths.
//
// All mutation happens on the UI task; the watcher only hands over
// normalized event batches. Nodes hold no parent pointers; ancestor
// traversal goes through the path index, so ownership stays a strict
// tree.
package tree

import (
	"path/filepath"
	"time"

	"github.com/vanderheijden86/smolder/pkg/heat"
)

// Kind distinguishes files from directories.
type Kind int

const (
	File Kind = iota
	Dir
)

func (k Kind) String() string {
	if k == Dir {
		return "dir"
	}
	return "file"
}

// Node is one tracked path. Children are keyed by name; display order is
// decided at layout time, not here.
type Node struct {
	Path      string
	Name      string
	Kind      Kind
	Children  map[string]*Node
	Event     heat.Event
	EventTime time.Time

	// Heat is recomputed by CalculateAllHeat before every layout pass.
	Heat float64

	// Ghost marks a deleted node that is still fading out. GhostStep
	// counts completed fade ticks.
	Ghost     bool
	GhostStep int
}

func newNode(path string, kind Kind) *Node {
	n := &Node{
		Path: path,
		Name: filepath.Base(path),
		Kind: kind,
	}
	if kind == Dir {
		n.Children = make(map[string]*Node)
	}
	return n
}

// IsDir reports whether the node is a directory.
func (n *Node) IsDir() bool {
	return n.Kind == Dir
}

// walk visits n and every descendant in depth-first order.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}
