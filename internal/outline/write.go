package outline

import "github.com/dgallion1/docmark/internal/bookmark"

// Node is one outline entry in a Tree. Children hold indexes into Tree.Nodes.
type Node struct {
	Title    string `json:"title"`
	Level    int    `json:"level"`
	Page     int    `json:"page,omitempty"`
	HasDest  bool   `json:"has_dest"`
	Children []int  `json:"children,omitempty"`
}

// Tree is an outline hierarchy stored as an arena of nodes addressed by index.
type Tree struct {
	Nodes []Node `json:"nodes"`
	Roots []int  `json:"roots"`
}

// Write rebuilds the outline hierarchy of a pre-order leveled list.
//
// Each bookmark attaches under the most recently created node one level up,
// trying shallower levels when none exists, and falls back to the root when
// no ancestor is found. A node gets a destination only when its start page
// is within pageCount.
func Write(list []bookmark.Bookmark, pageCount int) Tree {
	t := Tree{Nodes: make([]Node, 0, len(list))}
	for _, b := range list {
		idx := len(t.Nodes)
		n := Node{Title: b.Title, Level: b.Level}
		if start := b.StartPage(); start >= 1 && start <= pageCount {
			n.Page = start
			n.HasDest = true
		}
		t.Nodes = append(t.Nodes, n)

		parent := -1
		if b.Level > 1 {
			parent = t.nearestAncestor(idx, b.Level)
		}
		if parent < 0 {
			t.Roots = append(t.Roots, idx)
		} else {
			t.Nodes[parent].Children = append(t.Nodes[parent].Children, idx)
		}
	}
	return t
}

// nearestAncestor searches nodes created before idx, closest level first and
// most recent first within a level.
func (t *Tree) nearestAncestor(idx, level int) int {
	for want := level - 1; want >= 1; want-- {
		for i := idx - 1; i >= 0; i-- {
			if t.Nodes[i].Level == want {
				return i
			}
		}
	}
	return -1
}

// Walk visits nodes depth-first in document order. depth is 1 for roots.
// Returning false from fn skips the node's children.
func (t Tree) Walk(fn func(n Node, depth int) bool) {
	var visit func(ids []int, depth int)
	visit = func(ids []int, depth int) {
		for _, id := range ids {
			n := t.Nodes[id]
			if fn(n, depth) {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(t.Roots, 1)
}

// Len returns the number of nodes in the tree.
func (t Tree) Len() int { return len(t.Nodes) }
