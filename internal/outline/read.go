// Package outline reconstructs bookmark hierarchies from flat outline data
// and re-projects them when documents are merged or split.
//
// Everything here is a pure function over bookmark lists. Document engines
// supply SourceNode trees on read and consume Tree values on write.
package outline

import "github.com/dgallion1/docmark/internal/bookmark"

// SourceNode is an outline node as reported by a document engine.
// Page is 1-based; a value <= 0 means the destination could not be resolved.
type SourceNode struct {
	Title    string
	Page     int
	Children []SourceNode
}

// Read flattens an outline into pre-order leveled bookmarks holding only
// their start page. Root nodes are level 1. Nodes without a resolvable
// destination are dropped while their children are still visited.
func Read(roots []SourceNode) []bookmark.Bookmark {
	var out []bookmark.Bookmark
	var walk func(nodes []SourceNode, level int)
	walk = func(nodes []SourceNode, level int) {
		for _, n := range nodes {
			if n.Page > 0 {
				out = append(out, bookmark.New(level, n.Title, []int{n.Page}))
			}
			walk(n.Children, level+1)
		}
	}
	walk(roots, 1)
	return out
}

// Leveled reads an outline and infers the full range of every bookmark.
func Leveled(roots []SourceNode, pageCount int) []bookmark.Bookmark {
	return Infer(Read(roots), pageCount)
}
