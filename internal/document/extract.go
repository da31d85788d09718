package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgallion1/docmark/internal/bookmark"
	"github.com/dgallion1/docmark/internal/convert"
	"github.com/dgallion1/docmark/internal/engine"
	"github.com/dgallion1/docmark/internal/naming"
	"github.com/dgallion1/docmark/internal/outline"
	"github.com/dgallion1/docmark/internal/progress"
)

// FileSelection is a source document and the bookmarks to extract from it.
// Bookmarks carry full page ranges, as produced by ReadBookmarks or a catalog.
type FileSelection struct {
	Path      string              `json:"path"`
	Bookmarks []bookmark.Bookmark `json:"bookmarks"`
}

// ExtractOptions configures Extractor.Extract.
type ExtractOptions struct {
	Files       []FileSelection
	Destination Destination
	PdfA        bool
	// GroupByFiles adds a file-name bookmark above each source's entries
	// when extracting to a single file. ShouldGroup gives the usual default.
	GroupByFiles bool
	// NameTemplate names per-bookmark files; see naming.Template.
	NameTemplate string
	// DropRedundantFirst removes the extracted bookmark's own entry from a
	// per-bookmark file when it shares its first page with its first child.
	DropRedundantFirst bool
}

// ShouldGroup reports whether any source contributes more than one bookmark.
func ShouldGroup(files []FileSelection) bool {
	for _, f := range files {
		if len(f.Bookmarks) > 1 {
			return true
		}
	}
	return false
}

// Extractor copies bookmarked page ranges into new documents.
type Extractor struct {
	Engine engine.Engine
	// PDFA converts products when ExtractOptions.PdfA is set.
	PDFA    *convert.PDFA
	WorkDir string
	Log     *slog.Logger
}

type sourceDoc struct {
	marks     []bookmark.Bookmark
	pageCount int
}

// Extract writes the selected bookmarks to opts.Destination. On error or
// cancellation every file it created is removed again.
func (x *Extractor) Extract(ctx context.Context, opts ExtractOptions, sink progress.Sink) (res Result, err error) {
	defer func() { err = asCancelled(ctx, err) }()
	if opts.Destination.IsZero() {
		return Result{}, errors.New("extract: no destination")
	}
	if opts.PdfA && x.PDFA == nil {
		return Result{}, errors.New("extract: pdf/a conversion requested but not configured")
	}
	var n int
	for _, f := range opts.Files {
		n += len(f.Bookmarks)
	}
	if n == 0 {
		return Result{}, errors.New("extract: nothing selected")
	}

	ws, err := NewWorkspace(x.WorkDir)
	if err != nil {
		return Result{}, err
	}
	defer ws.Cleanup()

	if opts.Destination.IsDir() {
		res, err = x.toDirectory(ctx, ws, opts, n, sink)
	} else {
		res, err = x.toFile(ctx, ws, opts, sink)
	}
	if err != nil {
		return Result{}, err
	}
	ws.Keep()
	progress.Or(sink)(progress.Report{Percentage: 100, Phase: progress.Finished})
	x.logger().Info("extraction complete", "destination", opts.Destination.String(), "outputs", len(res.Outputs))
	return res, nil
}

func (x *Extractor) source(ctx context.Context, cache map[string]sourceDoc, path string) (sourceDoc, error) {
	if d, ok := cache[path]; ok {
		return d, nil
	}
	marks, count, err := ReadBookmarks(ctx, x.Engine, path)
	if err != nil {
		return sourceDoc{}, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	d := sourceDoc{marks: marks, pageCount: count}
	cache[path] = d
	return d, nil
}

func (x *Extractor) toDirectory(ctx context.Context, ws *Workspace, opts ExtractOptions, total int, sink progress.Sink) (Result, error) {
	dest := opts.Destination.Path()
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return Result{}, fmt.Errorf("create %s: %w", dest, err)
	}
	// With PDF/A the products are staged and converted into dest at the end.
	outDir := dest
	if opts.PdfA {
		var err error
		if outDir, err = ws.Subdir("products"); err != nil {
			return Result{}, err
		}
	}

	tmpl := naming.Template{Pattern: opts.NameTemplate}
	names := naming.Set{}
	cache := map[string]sourceDoc{}
	var outputs []string
	index := 0

	for _, f := range opts.Files {
		src, err := x.source(ctx, cache, f.Path)
		if err != nil {
			return Result{}, err
		}
		for _, b := range f.Bookmarks {
			if err := cancelled(ctx); err != nil {
				return Result{}, err
			}
			index++
			name := naming.Sanitize(tmpl.Render(naming.Fields{
				Bookmark: b.Title,
				File:     filepath.Base(f.Path),
				Index:    index,
				Last:     total,
			}))
			if name == "" {
				name = fmt.Sprintf("bookmark %d", index)
			}
			name = naming.Unique(name, names.Taken(naming.InDir(dest, ".pdf")))
			names.Add(name)

			out := filepath.Join(outDir, name+".pdf")
			if !opts.PdfA {
				ws.Track(out)
			}
			if err := x.extractOne(ctx, ws, f.Path, src, b, out, opts.DropRedundantFirst); err != nil {
				return Result{}, err
			}
			outputs = append(outputs, filepath.Join(dest, name+".pdf"))
			progress.Fraction(sink, progress.Extracting, index, total, b.Title)
		}
	}

	res := Result{Outputs: outputs}
	if opts.PdfA {
		for _, o := range outputs {
			ws.Track(o)
		}
		failed, err := x.deliverPdfA(ctx, outDir, dest)
		if err != nil {
			return Result{}, err
		}
		res.PdfAFailed = failed
	}
	return res, nil
}

// extractOne writes a single bookmark's pages with the part of the source
// outline that falls inside them.
func (x *Extractor) extractOne(ctx context.Context, ws *Workspace, path string, src sourceDoc, b bookmark.Bookmark, out string, dropRedundant bool) error {
	raw := ws.Path("raw.pdf")
	defer os.Remove(raw)
	if err := x.Engine.ExtractPages(ctx, path, raw, b.Pages); err != nil {
		return fmt.Errorf("extract %q: %w", b.Title, err)
	}

	children := outline.ReprojectExtract(src.marks, b.Pages)
	if len(children) > 1 {
		if dropRedundant {
			children = outline.DropRedundantContainer(children)
		}
		children = bookmark.AdjustLevels(children, 1-children[0].Level)
		count := len(b.Pages)
		tree := outline.Write(outline.Infer(children, count), count)
		return x.Engine.WriteOutline(ctx, raw, out, tree)
	}
	// A lone entry would only repeat the file name.
	return x.Engine.RemoveOutline(ctx, raw, out)
}

func (x *Extractor) toFile(ctx context.Context, ws *Workspace, opts ExtractOptions, sink progress.Sink) (Result, error) {
	dest := opts.Destination.Path()
	partsDir, err := ws.Subdir("parts")
	if err != nil {
		return Result{}, err
	}

	cache := map[string]sourceDoc{}
	var (
		parts []string
		marks []bookmark.Bookmark
		start = 1
	)
	for i, f := range opts.Files {
		if len(f.Bookmarks) == 0 {
			continue
		}
		if err := cancelled(ctx); err != nil {
			return Result{}, err
		}
		src, err := x.source(ctx, cache, f.Path)
		if err != nil {
			return Result{}, err
		}
		pages := bookmark.UniquePages(f.Bookmarks)
		part := filepath.Join(partsDir, fmt.Sprintf("%03d.pdf", i+1))
		if err := x.Engine.ExtractPages(ctx, f.Path, part, pages); err != nil {
			return Result{}, fmt.Errorf("extract from %s: %w", filepath.Base(f.Path), err)
		}
		parts = append(parts, part)

		products := singleFileOutline(src.marks, f.Bookmarks, pages)
		if opts.GroupByFiles {
			group := bookmark.New(1, baseName(f.Path), []int{1})
			products = append([]bookmark.Bookmark{group}, bookmark.AdjustLevels(products, 1)...)
		}
		marks = append(marks, outline.ReprojectMerge(products, start)...)
		start += len(pages)
		progress.Fraction(sink, progress.Extracting, i+1, len(opts.Files), filepath.Base(f.Path))
	}

	if err := cancelled(ctx); err != nil {
		return Result{}, err
	}
	progress.Or(sink)(progress.Report{Percentage: 100, Phase: progress.Merging})
	merged := ws.Path("merged.pdf")
	if err := x.Engine.Merge(ctx, parts, merged); err != nil {
		return Result{}, err
	}
	count := start - 1
	progress.Or(sink)(progress.Report{Percentage: 100, Phase: progress.AddingBookmarks})

	staged := ws.Path("final", filepath.Base(dest))
	if err := os.MkdirAll(filepath.Dir(staged), 0o755); err != nil {
		return Result{}, err
	}
	tree := outline.Write(outline.Infer(marks, count), count)
	if err := x.Engine.WriteOutline(ctx, merged, staged, tree); err != nil {
		return Result{}, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	ws.Track(dest)
	res := Result{Outputs: []string{dest}}
	if opts.PdfA {
		failed, err := x.deliverPdfA(ctx, filepath.Dir(staged), filepath.Dir(dest))
		if err != nil {
			return Result{}, err
		}
		res.PdfAFailed = failed
		return res, nil
	}
	if err := moveFile(staged, dest); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", dest, err)
	}
	return res, nil
}

// singleFileOutline gathers every selected bookmark with its descendants,
// renumbers them onto the extracted pages and levels them from 1.
func singleFileOutline(source, selected []bookmark.Bookmark, pages []int) []bookmark.Bookmark {
	var products []bookmark.Bookmark
	add := func(b bookmark.Bookmark) {
		for _, p := range products {
			if bookmark.Equal(p, b) && p.Level == b.Level {
				return
			}
		}
		products = append(products, b)
	}
	for _, sel := range selected {
		family := bookmark.ParentAndChildren(source, sel)
		if len(family) == 0 {
			add(sel)
			continue
		}
		for _, b := range family {
			add(b)
		}
	}
	products = outline.ReprojectExtract(products, pages)
	if len(products) == 0 {
		return nil
	}
	minLevel := products[0].Level
	for _, b := range products {
		minLevel = min(minLevel, b.Level)
	}
	return bookmark.AdjustLevels(products, 1-minLevel)
}

// deliverPdfA converts staged products into dest. When the converter
// fails, unconverted copies stand in for the files it could not produce
// and failed is true.
func (x *Extractor) deliverPdfA(ctx context.Context, staged, dest string) (failed bool, err error) {
	ok, err := x.PDFA.Convert(ctx, staged, dest)
	missing := errors.Is(err, convert.ErrToolMissing)
	switch {
	case ctx.Err() != nil:
		return false, cancelled(ctx)
	case err != nil && !missing:
		return false, err
	case ok:
		return false, nil
	}
	x.logger().Warn("pdf/a conversion failed, delivering unconverted files", "error", err)

	entries, err := os.ReadDir(staged)
	if err != nil {
		return true, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		target := filepath.Join(dest, e.Name())
		if _, statErr := os.Stat(target); statErr == nil && !missing {
			continue // converted
		}
		if err := copyFile(filepath.Join(staged, e.Name()), target); err != nil {
			return true, fmt.Errorf("copy %s: %w", e.Name(), err)
		}
	}
	return true, nil
}

func (x *Extractor) logger() *slog.Logger {
	if x.Log == nil {
		return slog.Default()
	}
	return x.Log
}
