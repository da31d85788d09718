package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/dgallion1/docmark/internal/bookmark"
)

func TestLocateHeadings(t *testing.T) {
	headings := []bookmark.Bookmark{
		bookmark.New(1, "Introduction", nil),
		bookmark.New(2, "Scope", nil),
		bookmark.New(1, "Results", nil),
		bookmark.New(2, "Missing heading", nil),
		bookmark.New(1, "Introduction", nil),
	}
	pages := []string{
		"Contents\nIntroduction 1\nResults 3",
		"INTRO\nDUCTION\nSome text. Scope of work",
		"Results\nTables",
		"Closing words",
	}
	got := locate(headings, pages)

	want := []int{1, 2, 3, 3, 3}
	for i, b := range got {
		if b.StartPage() != want[i] {
			t.Errorf("%s: page %d, want %d", b.Title, b.StartPage(), want[i])
		}
	}
	if got[1].Level != 2 {
		t.Errorf("level = %d, want 2", got[1].Level)
	}
}

func TestRetryable(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &RetryableError{Err: errors.New("busy")})
	if !IsRetryable(err) {
		t.Error("wrapped RetryableError should be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error should not be retryable")
	}
	for attempt := 0; attempt < 8; attempt++ {
		if d := Backoff(attempt); d <= 0 || d > 45*time.Second {
			t.Errorf("Backoff(%d) = %s", attempt, d)
		}
	}
}

func TestStatsSnapshotByTool(t *testing.T) {
	stats := NewStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record("soffice", ms)
	}
	stats.Record("gs", -5)

	snap := stats.Snapshot()
	s := snap["soffice"]
	if s.Count != 5 || s.MinMs != 100 || s.MaxMs != 500 || s.AvgMs != 300 {
		t.Fatalf("soffice snapshot = %+v", s)
	}
	if s.P50Ms != 300 || s.P95Ms != 480 {
		t.Errorf("percentiles p50=%f p95=%f", s.P50Ms, s.P95Ms)
	}
	if snap["gs"].MinMs != 0 {
		t.Errorf("negative duration not clamped: %+v", snap["gs"])
	}
}

func TestStatsPrunesExpiredSamples(t *testing.T) {
	stats := NewStats(10 * time.Millisecond)
	stats.Record("gs", 100)
	time.Sleep(25 * time.Millisecond)
	if n := len(stats.Snapshot()); n != 0 {
		t.Fatalf("expected empty snapshot after prune, got %d tools", n)
	}
}

func TestToolMissing(t *testing.T) {
	tool := &Tool{}
	err := tool.Run(context.Background(), []string{"docmark-no-such-binary"})
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("expected ErrToolMissing, got %v", err)
	}
}

func TestPDFA_ConvertDirectory(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses cp")
	}
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "out")
	for _, name := range []string{"a.pdf", "b.PDF", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(src, name), []byte(name), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	stats := NewStats(time.Hour)
	p := &PDFA{Command: "cp {in} {out}", Tool: &Tool{Stats: stats}}
	ok, err := p.Convert(context.Background(), src, dst)
	if err != nil || !ok {
		t.Fatalf("Convert = %v, %v", ok, err)
	}
	for _, name := range []string{"a.pdf", "b.PDF"} {
		if _, err := os.Stat(filepath.Join(dst, name)); err != nil {
			t.Errorf("%s not converted: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dst, "notes.txt")); !os.IsNotExist(err) {
		t.Error("non-pdf file should be skipped")
	}
	if stats.Snapshot()["cp"].Count != 2 {
		t.Errorf("expected 2 recorded runs, got %+v", stats.Snapshot())
	}
}

func TestPDFA_FailedRunReportsNotOK(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses false")
	}
	src := filepath.Join(t.TempDir(), "a.pdf")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	p := &PDFA{Command: "false {in} {out}"}
	ok, err := p.Convert(context.Background(), src, t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for failing converter")
	}
}

func TestPDFA_MissingSource(t *testing.T) {
	p := &PDFA{Command: "cp {in} {out}"}
	if _, err := p.Convert(context.Background(), filepath.Join(t.TempDir(), "nope"), t.TempDir()); err == nil {
		t.Error("expected error for missing source")
	}
}

func TestWord_PassThroughAndOrder(t *testing.T) {
	dir := t.TempDir()
	pdf := filepath.Join(dir, "plain.pdf")
	if err := os.WriteFile(pdf, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := &Word{SofficePath: "docmark-no-such-soffice"}
	got, err := w.Convert(context.Background(), []WordInput{{InputPath: pdf}, {InputPath: ""}}, dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != pdf || got[1] != "" {
		t.Errorf("Convert = %q", got)
	}
}

func TestWord_MissingSoffice(t *testing.T) {
	dir := t.TempDir()
	doc := filepath.Join(dir, "letter.docx")
	if err := os.WriteFile(doc, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := &Word{SofficePath: "docmark-no-such-soffice"}
	_, err := w.Convert(context.Background(), []WordInput{{InputPath: doc, FileName: "x1"}}, dir)
	if !errors.Is(err, ErrToolMissing) {
		t.Fatalf("expected ErrToolMissing, got %v", err)
	}
}

func TestIsWord(t *testing.T) {
	if !IsWord("a.DOCX") || !IsWord("b.doc") || IsWord("c.pdf") {
		t.Error("IsWord misclassified")
	}
}
