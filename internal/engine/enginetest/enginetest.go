// Package enginetest provides an engine.Engine over small JSON documents so
// orchestration code can be tested without real PDFs.
package enginetest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/dgallion1/docmark/internal/engine"
	"github.com/dgallion1/docmark/internal/outline"
)

// Doc is the on-disk form of a fake document. Each page holds a label so
// tests can see which source pages ended up where.
type Doc struct {
	Pages   []string             `json:"pages"`
	Outline []outline.SourceNode `json:"outline,omitempty"`
	// Tree is the last outline written by WriteOutline.
	Tree *outline.Tree `json:"tree,omitempty"`
	// Numbered is set once page numbers were stamped.
	Numbered bool `json:"numbered,omitempty"`
}

// Write stores doc at path.
func Write(path string, doc Doc) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Read loads the document at path.
func Read(path string) (Doc, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Doc{}, err
	}
	var doc Doc
	if err := json.Unmarshal(b, &doc); err != nil {
		return Doc{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return doc, nil
}

// Pages builds n labels "<prefix>1".."<prefix>n".
func Pages(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i+1)
	}
	return out
}

// Engine is a JSON-backed engine.Engine that records the operations it ran.
type Engine struct {
	mu    sync.Mutex
	calls []string

	// FailOn makes the named operation return an error.
	FailOn string
	// During, when set, runs inside every operation before it completes.
	During func(op string)
}

var _ engine.Engine = (*Engine)(nil)

// Calls returns the operations run so far in order.
func (e *Engine) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *Engine) record(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	e.calls = append(e.calls, op)
	e.mu.Unlock()
	if e.During != nil {
		e.During(op)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	if e.FailOn == op {
		return fmt.Errorf("%s: injected failure", op)
	}
	return nil
}

func (e *Engine) PageCount(ctx context.Context, path string) (int, error) {
	if err := e.record(ctx, "page_count"); err != nil {
		return 0, err
	}
	doc, err := Read(path)
	if err != nil {
		return 0, err
	}
	return len(doc.Pages), nil
}

func (e *Engine) Outline(ctx context.Context, path string) ([]outline.SourceNode, error) {
	if err := e.record(ctx, "outline"); err != nil {
		return nil, err
	}
	doc, err := Read(path)
	if err != nil {
		return nil, err
	}
	if doc.Tree != nil {
		return treeToSource(*doc.Tree), nil
	}
	return doc.Outline, nil
}

func treeToSource(t outline.Tree) []outline.SourceNode {
	var convert func(ids []int) []outline.SourceNode
	convert = func(ids []int) []outline.SourceNode {
		var out []outline.SourceNode
		for _, id := range ids {
			n := t.Nodes[id]
			out = append(out, outline.SourceNode{Title: n.Title, Page: n.Page, Children: convert(n.Children)})
		}
		return out
	}
	return convert(t.Roots)
}

func (e *Engine) Merge(ctx context.Context, inputs []string, out string) error {
	if err := e.record(ctx, "merge"); err != nil {
		return err
	}
	var merged Doc
	for _, in := range inputs {
		doc, err := Read(in)
		if err != nil {
			return err
		}
		merged.Pages = append(merged.Pages, doc.Pages...)
	}
	return Write(out, merged)
}

func (e *Engine) ExtractPages(ctx context.Context, in, out string, pages []int) error {
	if err := e.record(ctx, "extract"); err != nil {
		return err
	}
	if len(pages) == 0 {
		return engine.ErrNoPages
	}
	doc, err := Read(in)
	if err != nil {
		return err
	}
	var res Doc
	for _, p := range pages {
		if p < 1 || p > len(doc.Pages) {
			return fmt.Errorf("page %d out of range 1-%d", p, len(doc.Pages))
		}
		res.Pages = append(res.Pages, doc.Pages[p-1])
	}
	return Write(out, res)
}

func (e *Engine) WriteOutline(ctx context.Context, in, out string, tree outline.Tree) error {
	if err := e.record(ctx, "write_outline"); err != nil {
		return err
	}
	doc, err := Read(in)
	if err != nil {
		return err
	}
	doc.Outline = nil
	doc.Tree = &tree
	return Write(out, doc)
}

func (e *Engine) RemoveOutline(ctx context.Context, in, out string) error {
	if err := e.record(ctx, "remove_outline"); err != nil {
		return err
	}
	doc, err := Read(in)
	if err != nil {
		return err
	}
	doc.Outline, doc.Tree = nil, nil
	return Write(out, doc)
}

func (e *Engine) AddPageNumbers(ctx context.Context, in, out string) error {
	if err := e.record(ctx, "page_numbers"); err != nil {
		return err
	}
	doc, err := Read(in)
	if err != nil {
		return err
	}
	doc.Numbered = true
	return Write(out, doc)
}

// Titles flattens the written outline of doc as "title@page" strings with
// two spaces of indent per depth.
func Titles(doc Doc) []string {
	if doc.Tree == nil {
		return nil
	}
	var out []string
	doc.Tree.Walk(func(n outline.Node, depth int) bool {
		out = append(out, fmt.Sprintf("%s%s@%d", strings.Repeat("  ", depth-1), n.Title, n.Page))
		return true
	})
	return out
}
