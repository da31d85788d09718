package document

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docmark/internal/bookmark"
	"github.com/dgallion1/docmark/internal/convert"
	"github.com/dgallion1/docmark/internal/engine"
	"github.com/dgallion1/docmark/internal/outline"
	"github.com/dgallion1/docmark/internal/progress"
)

// MergeInput is one document to append. Title names its container
// bookmark and defaults to the file name; Level places the container in
// the merged outline, 1 being the top.
type MergeInput struct {
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
	Level int    `json:"level,omitempty"`
}

// MergeOptions configures Merger.Merge.
type MergeOptions struct {
	Inputs         []MergeInput
	Output         string
	AddPageNumbers bool
}

// Merger concatenates documents and rebuilds a combined outline.
type Merger struct {
	Engine engine.Engine
	// Word converts .doc/.docx inputs. Nil rejects Word inputs.
	Word    *convert.Word
	WorkDir string
	Log     *slog.Logger
}

type mergePart struct {
	input     MergeInput
	source    string // original path
	pdf       string // path handed to the engine
	pageCount int
	marks     []bookmark.Bookmark
}

// Merge writes the concatenation of opts.Inputs to opts.Output. Each input
// gets a container bookmark on its first page, with its own outline nested
// below it.
func (m *Merger) Merge(ctx context.Context, opts MergeOptions, sink progress.Sink) (res Result, err error) {
	defer func() { err = asCancelled(ctx, err) }()
	if len(opts.Inputs) == 0 {
		return Result{}, errors.New("merge: no inputs")
	}
	if opts.Output == "" {
		return Result{}, errors.New("merge: no output path")
	}
	log := m.logger().With("output", filepath.Base(opts.Output))

	ws, err := NewWorkspace(m.WorkDir)
	if err != nil {
		return Result{}, err
	}
	defer ws.Cleanup()

	total := 5
	if opts.AddPageNumbers {
		total++
	}
	stages := progress.Stages{Total: total, Sink: sink}

	parts, err := m.convertInputs(ctx, ws, opts.Inputs)
	if err != nil {
		return Result{}, err
	}
	stages.Next(progress.Converting, "")

	for i := range parts {
		if err := cancelled(ctx); err != nil {
			return Result{}, err
		}
		if err := m.readPart(ctx, &parts[i]); err != nil {
			return Result{}, err
		}
	}
	stages.Next(progress.GettingBookmarks, "")

	paths := make([]string, len(parts))
	for i, p := range parts {
		paths[i] = p.pdf
	}
	merged := ws.Path("merged.pdf")
	if err := m.Engine.Merge(ctx, paths, merged); err != nil {
		return Result{}, err
	}
	stages.Next(progress.Merging, "")

	count, err := m.Engine.PageCount(ctx, merged)
	if err != nil {
		return Result{}, err
	}
	marks := outline.Infer(combine(parts), count)
	withOutline := ws.Path("outlined.pdf")
	if err := m.Engine.WriteOutline(ctx, merged, withOutline, outline.Write(marks, count)); err != nil {
		return Result{}, err
	}
	stages.Next(progress.AddingBookmarks, "")

	final := withOutline
	if opts.AddPageNumbers {
		if err := cancelled(ctx); err != nil {
			return Result{}, err
		}
		final = ws.Path("numbered.pdf")
		if err := m.Engine.AddPageNumbers(ctx, withOutline, final); err != nil {
			return Result{}, err
		}
		stages.Next(progress.AddingPageNumbers, "")
	}

	if err := cancelled(ctx); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Output), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output dir: %w", err)
	}
	ws.Track(opts.Output)
	if err := moveFile(final, opts.Output); err != nil {
		return Result{}, fmt.Errorf("write %s: %w", opts.Output, err)
	}
	ws.Keep()
	stages.Done()

	log.Info("merge complete", "inputs", len(parts), "pages", count, "bookmarks", len(marks))
	return Result{Outputs: []string{opts.Output}}, nil
}

// convertInputs turns Word inputs into PDFs inside the workspace.
func (m *Merger) convertInputs(ctx context.Context, ws *Workspace, inputs []MergeInput) ([]mergePart, error) {
	parts := make([]mergePart, len(inputs))
	var words []convert.WordInput
	var wordIdx []int
	for i, in := range inputs {
		if in.Path == "" {
			return nil, fmt.Errorf("merge input %d: empty path", i+1)
		}
		parts[i] = mergePart{input: in, source: in.Path, pdf: in.Path}
		if convert.IsWord(in.Path) {
			words = append(words, convert.WordInput{
				InputPath: in.Path,
				FileName:  fmt.Sprintf("%03d-%s", i+1, baseName(in.Path)),
			})
			wordIdx = append(wordIdx, i)
		}
	}
	if len(words) == 0 {
		return parts, nil
	}
	if m.Word == nil {
		return nil, fmt.Errorf("merge: %s is a Word document and conversion is disabled", filepath.Base(words[0].InputPath))
	}
	dir, err := ws.Subdir("converted")
	if err != nil {
		return nil, err
	}
	converted, err := m.Word.Convert(ctx, words, dir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(ctx)
		}
		return nil, err
	}
	for j, idx := range wordIdx {
		parts[idx].pdf = converted[j]
	}
	return parts, nil
}

func (m *Merger) readPart(ctx context.Context, p *mergePart) error {
	marks, count, err := ReadBookmarks(ctx, m.Engine, p.pdf)
	if err != nil {
		return fmt.Errorf("read %s: %w", filepath.Base(p.source), err)
	}
	p.pageCount = count
	p.marks = marks
	if len(marks) == 0 && p.pdf != p.source && isDocx(p.source) {
		headings, err := convert.HeadingBookmarks(p.source, p.pdf)
		if err != nil {
			m.logger().Warn("heading bookmarks unavailable", "file", filepath.Base(p.source), "error", err)
			return nil
		}
		p.marks = outline.Infer(headings, count)
	}
	return nil
}

// combine lays the parts end to end: each part contributes its container
// bookmark and its own outline shifted below the container's level.
func combine(parts []mergePart) []bookmark.Bookmark {
	var out []bookmark.Bookmark
	start := 1
	for _, p := range parts {
		level := max(p.input.Level, 1)
		title := p.input.Title
		if title == "" {
			title = baseName(p.source)
		}
		out = append(out, bookmark.New(level, title, bookmark.Range(start, p.pageCount)))
		own := bookmark.AdjustLevels(p.marks, level)
		out = append(out, outline.ReprojectMerge(own, start)...)
		start += p.pageCount
	}
	return out
}

// isDocx reports whether path has headings go-docx can read.
func isDocx(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".docx")
}

func (m *Merger) logger() *slog.Logger {
	if m.Log == nil {
		return slog.Default()
	}
	return m.Log
}
