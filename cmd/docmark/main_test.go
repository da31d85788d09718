package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/docmark/internal/engine"
	"github.com/dgallion1/docmark/internal/engine/enginetest"
	"github.com/dgallion1/docmark/internal/outline"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	prev := newEngine
	newEngine = func(*slog.Logger) engine.Engine { return &enginetest.Engine{} }
	t.Cleanup(func() { newEngine = prev })
	t.Setenv("WORK_DIR", t.TempDir())

	var out, errOut bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.RunContext(context.Background(), append([]string{"docmark", "--quiet"}, args...))
	return out.String(), err
}

func guide(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "guide.pdf")
	require.NoError(t, enginetest.Write(path, enginetest.Doc{
		Pages: enginetest.Pages("g", 6),
		Outline: []outline.SourceNode{
			{Title: "Setup", Page: 1, Children: []outline.SourceNode{
				{Title: "Install", Page: 2},
			}},
			{Title: "Usage", Page: 4},
		},
	}))
	return path
}

func TestParseMergeInput(t *testing.T) {
	in, err := parseMergeInput("a.pdf:Annex A:2")
	require.NoError(t, err)
	assert.Equal(t, "a.pdf", in.Path)
	assert.Equal(t, "Annex A", in.Title)
	assert.Equal(t, 2, in.Level)

	in, err = parseMergeInput("b.pdf")
	require.NoError(t, err)
	assert.Empty(t, in.Title)
	assert.Zero(t, in.Level)

	_, err = parseMergeInput("c.pdf:C:zero")
	assert.Error(t, err)
	_, err = parseMergeInput(":title")
	assert.Error(t, err)
}

func TestBookmarksCommand(t *testing.T) {
	out, err := run(t, "bookmarks", guide(t, t.TempDir()))
	require.NoError(t, err)
	assert.Contains(t, out, "6 pages, 3 bookmarks")
	assert.Contains(t, out, "Setup [1-3]")
	assert.Contains(t, out, "  Install [2-3]")
	assert.Contains(t, out, "Usage [4-6]")
}

func TestBookmarksCommand_YAML(t *testing.T) {
	out, err := run(t, "bookmarks", "--yaml", guide(t, t.TempDir()))
	require.NoError(t, err)
	assert.Contains(t, out, "title: Setup")
}

func TestMergeCommand(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "all.pdf")

	out, err := run(t, "merge", "-o", target, guide(t, dir)+":User guide")
	require.NoError(t, err)
	assert.Equal(t, target, strings.TrimSpace(out))

	doc, err := enginetest.Read(target)
	require.NoError(t, err)
	assert.Equal(t, []string{"User guide@1", "  Setup@1", "    Install@2", "  Usage@4"}, enginetest.Titles(doc))
}

func TestExtractCommand(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "parts")

	out, err := run(t, "extract", "--dest", dest, "--select", "3", guide(t, dir))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "Usage.pdf"), strings.TrimSpace(out))

	doc, err := enginetest.Read(filepath.Join(dest, "Usage.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []string{"g4", "g5", "g6"}, doc.Pages)
}

func TestExtractCommand_NothingSelected(t *testing.T) {
	_, err := run(t, "extract", "--dest", t.TempDir(), "--select", "9", guide(t, t.TempDir()))
	assert.ErrorContains(t, err, "no bookmarks selected")
}

func TestApplyCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "plain.pdf")
	require.NoError(t, enginetest.Write(in, enginetest.Doc{Pages: enginetest.Pages("p", 4)}))
	spec := filepath.Join(dir, "toc.txt")
	require.NoError(t, os.WriteFile(spec, []byte("One .... 1\n  Two .... 3\n"), 0o644))
	out := filepath.Join(dir, "out.pdf")

	_, err := run(t, "apply", "--outline", spec, in, out)
	require.NoError(t, err)

	doc, err := enginetest.Read(out)
	require.NoError(t, err)
	assert.Equal(t, []string{"One@1", "  Two@3"}, enginetest.Titles(doc))
}
