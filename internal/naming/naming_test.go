package naming

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Chapter 1: Intro", "Chapter 1 Intro"},
		{"Q1/Q2 results", "Q1-Q2 results"},
		{`a*b?c"d<e>f|g\h`, "abcdefgh"},
		{"tab\there", "tabhere"},
		{"  padded  ", "padded"},
		{"Ålesund – rapport", "Ålesund – rapport"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "Sanitize(%q)", tt.in)
	}
}

func TestTemplate_Render(t *testing.T) {
	tmpl := Template{Pattern: "{number} {file} - {bookmark}"}
	got := tmpl.Render(Fields{Bookmark: "Summary", File: "report.pdf", Index: 7, Last: 120})
	assert.Equal(t, "007 report - Summary", got)

	got = tmpl.Render(Fields{Bookmark: "Summary", File: "report.pdf", Index: 12, Last: 12})
	assert.Equal(t, "12 report - Summary", got)
}

func TestTemplate_EmptyPatternUsesTitle(t *testing.T) {
	assert.Equal(t, "Intro", Template{}.Render(Fields{Bookmark: "Intro", Index: 1, Last: 3}))
}

func TestUnique(t *testing.T) {
	set := Set{}
	taken := set.Taken(nil)

	first := Unique("Intro", taken)
	set.Add(first)
	second := Unique("Intro", taken)
	set.Add(second)
	third := Unique("intro", taken)

	assert.Equal(t, "Intro", first)
	assert.Equal(t, "Intro 2", second)
	assert.Equal(t, "intro 3", third)
}

func TestUnique_InDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Intro.pdf"), []byte("x"), 0o644))

	assert.Equal(t, "Intro 2", Unique("Intro", InDir(dir, ".pdf")))
	assert.Equal(t, "Other", Unique("Other", InDir(dir, ".pdf")))
}
