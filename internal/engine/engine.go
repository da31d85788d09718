// Package engine adapts PDF libraries to the operations the bookmark
// pipeline needs: reading and writing outlines, counting, merging and
// extracting pages.
package engine

import (
	"context"
	"errors"

	"github.com/dgallion1/docmark/internal/outline"
)

// ErrNoPages is returned when a page selection is empty.
var ErrNoPages = errors.New("no pages selected")

// Engine is implemented by document backends. Paths are local files;
// every write goes to out, and in is never modified unless in == out.
type Engine interface {
	PageCount(ctx context.Context, path string) (int, error)
	// Outline returns the document outline. Nodes whose destination cannot
	// be resolved have Page <= 0.
	Outline(ctx context.Context, path string) ([]outline.SourceNode, error)
	// Merge concatenates inputs in order.
	Merge(ctx context.Context, inputs []string, out string) error
	// ExtractPages copies the given ascending 1-based pages into out.
	ExtractPages(ctx context.Context, in, out string, pages []int) error
	// WriteOutline replaces the outline of in with tree.
	WriteOutline(ctx context.Context, in, out string, tree outline.Tree) error
	RemoveOutline(ctx context.Context, in, out string) error
	// AddPageNumbers stamps "page / total" on every page.
	AddPageNumbers(ctx context.Context, in, out string) error
}
