// Package document runs whole merge and extraction jobs: it converts
// inputs, drives the engine and re-projects bookmarks so every output
// carries a correct outline.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docmark/internal/bookmark"
	"github.com/dgallion1/docmark/internal/engine"
	"github.com/dgallion1/docmark/internal/outline"
)

// ErrCancelled is returned when the context is cancelled mid-operation.
// Partial outputs have been removed by then.
var ErrCancelled = errors.New("operation cancelled")

// Result describes the files an operation produced.
type Result struct {
	Outputs []string `json:"outputs"`
	// PdfAFailed is set when PDF/A conversion failed and the unconverted
	// files were delivered instead.
	PdfAFailed bool `json:"pdfa_failed,omitempty"`
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

// asCancelled reports any failure after ctx was cancelled as ErrCancelled,
// since engines and locks return the bare context error.
func asCancelled(ctx context.Context, err error) error {
	if err == nil || errors.Is(err, ErrCancelled) || ctx.Err() == nil {
		return err
	}
	return cancelled(ctx)
}

// ReadBookmarks returns the inferred leveled bookmarks of a document.
func ReadBookmarks(ctx context.Context, eng engine.Engine, path string) ([]bookmark.Bookmark, int, error) {
	count, err := eng.PageCount(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	roots, err := eng.Outline(ctx, path)
	if err != nil {
		return nil, 0, err
	}
	return outline.Leveled(roots, count), count, nil
}

// ApplyOutline writes list as the outline of in, storing the result at out.
// Ranges are re-inferred against the document's page count first.
func ApplyOutline(ctx context.Context, eng engine.Engine, in, out string, list []bookmark.Bookmark) error {
	count, err := eng.PageCount(ctx, in)
	if err != nil {
		return err
	}
	inferred := outline.Infer(list, count)
	return eng.WriteOutline(ctx, in, out, outline.Write(inferred, count))
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// moveFile renames src to dst, copying across devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
