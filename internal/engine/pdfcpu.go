package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/dgallion1/docmark/internal/bookmark"
	"github.com/dgallion1/docmark/internal/outline"
)

func init() {
	// pdfcpu's config dir is not safe to share between concurrent workers.
	api.DisableConfigDir()
}

// PDFCPU implements Engine with github.com/pdfcpu/pdfcpu.
type PDFCPU struct {
	// PageNumberStyle is the pdfcpu text watermark description used for
	// page numbers.
	PageNumberStyle string
	Log             *slog.Logger
}

const defaultPageNumberStyle = "font:Helvetica, points:10, pos:bc, off:0 12, scale:1 abs, rot:0, op:1"

// NewPDFCPU returns an engine with default styling.
func NewPDFCPU(log *slog.Logger) *PDFCPU {
	if log == nil {
		log = slog.Default()
	}
	return &PDFCPU{PageNumberStyle: defaultPageNumberStyle, Log: log}
}

func conf() *model.Configuration {
	c := model.NewDefaultConfiguration()
	c.CreateBookmarks = false
	return c
}

func (p *PDFCPU) PageCount(ctx context.Context, path string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("page count %s: %w", filepath.Base(path), err)
	}
	return n, nil
}

// Outline walks the document outline item by item. pdfcpu's own bookmark
// reader drops items without a GoTo destination together with their kids,
// so folders are resolved here and reported with Page 0.
func (p *PDFCPU) Outline(ctx context.Context, path string) ([]outline.SourceNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	c := conf()
	c.ValidationMode = model.ValidationRelaxed
	c.Cmd = model.LISTBOOKMARKS
	pctx, err := api.ReadValidateAndOptimize(f, c)
	if err != nil {
		return nil, fmt.Errorf("read outline %s: %w", filepath.Base(path), err)
	}
	if pctx.Outlines == nil {
		return nil, nil
	}
	if err := pctx.LocateNameTree("Dests", false); err != nil {
		return nil, fmt.Errorf("read named destinations %s: %w", filepath.Base(path), err)
	}
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	w := outlineWalker{ctx: pctx, seen: map[int]bool{}, log: log}
	roots, err := w.items(pctx.Outlines.IndirectRefEntry("First"))
	if err != nil {
		return nil, fmt.Errorf("read outline %s: %w", filepath.Base(path), err)
	}
	return roots, nil
}

type outlineWalker struct {
	ctx  *model.Context
	seen map[int]bool
	log  *slog.Logger
}

// items converts a First/Next chain of outline item dicts.
func (w *outlineWalker) items(first *types.IndirectRef) ([]outline.SourceNode, error) {
	var out []outline.SourceNode
	for ir := first; ir != nil; {
		nr := ir.ObjectNumber.Value()
		if w.seen[nr] {
			w.log.Warn("outline item visited twice", "object", nr)
			break
		}
		w.seen[nr] = true

		d, err := w.ctx.DereferenceDict(*ir)
		if err != nil {
			return nil, err
		}
		if d == nil {
			break
		}
		n := outline.SourceNode{Title: w.title(d), Page: w.page(d)}
		if n.Children, err = w.items(d.IndirectRefEntry("First")); err != nil {
			return nil, err
		}
		out = append(out, n)
		ir = d.IndirectRefEntry("Next")
	}
	return out, nil
}

func (w *outlineWalker) title(d types.Dict) string {
	o, err := w.ctx.Dereference(d["Title"])
	if err != nil || o == nil {
		return ""
	}
	s, err := model.Text(o)
	if err != nil {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < ' ' {
			return -1
		}
		return r
	}, s)
}

// page resolves the item's Dest entry or GoTo action. 0 means unresolved.
func (w *outlineWalker) page(d types.Dict) int {
	dest, ok := d["Dest"]
	if !ok {
		act, err := w.ctx.DereferenceDict(d["A"])
		if err != nil || act == nil {
			return 0
		}
		if s := act.NameEntry("S"); s == nil || *s != "GoTo" {
			return 0
		}
		dest = act["D"]
	}
	obj, err := w.ctx.Dereference(dest)
	if err != nil || obj == nil {
		return 0
	}
	if arr, ok := obj.(types.Array); ok && len(arr) == 0 {
		return 0
	}
	nr, err := pdfcpu.PageNrFromDestination(w.ctx, obj)
	if err != nil {
		return 0
	}
	return nr
}

func (p *PDFCPU) Merge(ctx context.Context, inputs []string, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(inputs) == 0 {
		return fmt.Errorf("merge: %w", ErrNoPages)
	}
	return withLock(ctx, out, func() error {
		if err := api.MergeCreateFile(inputs, out, false, conf()); err != nil {
			return fmt.Errorf("merge %d files: %w", len(inputs), err)
		}
		return nil
	})
}

func (p *PDFCPU) ExtractPages(ctx context.Context, in, out string, pages []int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel := bookmark.Selection(pages)
	if len(sel) == 0 {
		return fmt.Errorf("extract from %s: %w", filepath.Base(in), ErrNoPages)
	}
	return withLock(ctx, out, func() error {
		if err := api.TrimFile(in, out, sel, conf()); err != nil {
			return fmt.Errorf("extract pages %v from %s: %w", sel, filepath.Base(in), err)
		}
		return nil
	})
}

func (p *PDFCPU) WriteOutline(ctx context.Context, in, out string, tree outline.Tree) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tree.Len() == 0 {
		return p.RemoveOutline(ctx, in, out)
	}
	bms := toPDFCPU(tree)
	return withLock(ctx, out, func() error {
		if err := api.AddBookmarksFile(in, out, bms, true, conf()); err != nil {
			return fmt.Errorf("write outline to %s: %w", filepath.Base(out), err)
		}
		p.Log.Debug("outline written", "file", filepath.Base(out), "bookmarks", tree.Len())
		return nil
	})
}

// toPDFCPU converts an outline tree. pdfcpu needs a page on every entry,
// so nodes without a destination borrow the nearest preceding navigable
// page, or page 1 when there is none.
func toPDFCPU(tree outline.Tree) []pdfcpu.Bookmark {
	last := 1
	var convert func(ids []int) []pdfcpu.Bookmark
	convert = func(ids []int) []pdfcpu.Bookmark {
		if len(ids) == 0 {
			return nil
		}
		out := make([]pdfcpu.Bookmark, 0, len(ids))
		for _, id := range ids {
			n := tree.Nodes[id]
			page := last
			if n.HasDest {
				page = n.Page
				last = n.Page
			}
			bm := pdfcpu.Bookmark{Title: n.Title, PageFrom: page}
			bm.Kids = convert(n.Children)
			out = append(out, bm)
		}
		return out
	}
	return convert(tree.Roots)
}

func (p *PDFCPU) RemoveOutline(ctx context.Context, in, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return withLock(ctx, out, func() error {
		if err := api.RemoveBookmarksFile(in, out, conf()); err != nil {
			return fmt.Errorf("remove outline from %s: %w", filepath.Base(in), err)
		}
		return nil
	})
}

func (p *PDFCPU) AddPageNumbers(ctx context.Context, in, out string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	style := p.PageNumberStyle
	if style == "" {
		style = defaultPageNumberStyle
	}
	return withLock(ctx, out, func() error {
		if err := api.AddTextWatermarksFile(in, out, nil, true, "%p / %P", style, conf()); err != nil {
			return fmt.Errorf("add page numbers to %s: %w", filepath.Base(in), err)
		}
		return nil
	})
}
