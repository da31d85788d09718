package outlinefile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dgallion1/docmark/internal/bookmark"
)

func describe(list []bookmark.Bookmark) []string {
	out := make([]string, len(list))
	for i, b := range list {
		out[i] = b.String()
	}
	return out
}

func assertOutline(t *testing.T, got []bookmark.Bookmark, want []string) {
	t.Helper()
	d := describe(got)
	if len(d) != len(want) {
		t.Fatalf("got %d bookmarks %q, want %d %q", len(d), d, len(want), want)
	}
	for i := range want {
		if d[i] != want[i] {
			t.Errorf("bookmark %d = %q, want %q", i, d[i], want[i])
		}
	}
}

func TestForFile(t *testing.T) {
	for _, name := range []string{"toc.md", "toc.HTML", "toc.txt", "toc.csv", "toc.yml", "toc.docx"} {
		if _, err := ForFile(name); err != nil {
			t.Errorf("ForFile(%q): %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("IsSupportedExtension(%q) = false", name)
		}
	}
	if _, err := ForFile("toc.pdf"); err == nil {
		t.Error("expected error for .pdf")
	}
}

func TestSplitTitle(t *testing.T) {
	tests := []struct {
		in    string
		title string
		page  int
	}{
		{"Introduction ........ 3", "Introduction", 3},
		{"Results…12", "Results", 12},
		{"Appendix\t41", "Appendix", 41},
		{"Summary | 7", "Summary", 7},
		{"Methods   9", "Methods", 9},
		{"Chapter 12", "Chapter 12", 0},
		{"1984", "1984", 0},
	}
	for _, tt := range tests {
		title, page := splitTitle(tt.in)
		if title != tt.title || page != tt.page {
			t.Errorf("splitTitle(%q) = %q, %d; want %q, %d", tt.in, title, page, tt.title, tt.page)
		}
	}
}

func TestMarkdownParser_HeadingHierarchy(t *testing.T) {
	input := `# Report .... 1

Intro text.

## Section A .... 2

### Subsection A1 .... 3

## Section B .... 5

#### Deep jump .... 6
`
	got, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutline(t, got, []string{
		"Report [1-1]",
		"  Section A [2-2]",
		"    Subsection A1 [3-3]",
		"  Section B [5-5]",
		"    Deep jump [6-6]",
	})
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	got, err := (&MarkdownParser{}).Parse(strings.NewReader("Just text.\n\nMore text."), "plain.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no bookmarks, got %v", got)
	}
}

func TestHTMLParser(t *testing.T) {
	input := `<html><head><title>TOC</title><style>h1{}</style></head><body>
<h1>Part One ..... 1</h1>
<p>ignored</p>
<h2 data-page="4">Chapter <em>One</em></h2>
<h1>Part Two</h1>
</body></html>`
	got, err := (&HTMLParser{}).Parse(strings.NewReader(input), "toc.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutline(t, got, []string{
		"Part One [1-1]",
		"  Chapter One [4-4]",
		"Part Two [-]",
	})
}

func TestTextParser_Indentation(t *testing.T) {
	input := "Front matter ... 1\n" +
		"Body ... 3\n" +
		"  - Methods ... 3\n" +
		"  - Results ... 6\n" +
		"\tTables ... 7\n" +
		"\n" +
		"Appendix ... 10\n"
	got, err := (&TextParser{}).Parse(strings.NewReader(input), "toc.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutline(t, got, []string{
		"Front matter [1-1]",
		"Body [3-3]",
		"  Methods [3-3]",
		"  Results [6-6]",
		"    Tables [7-7]",
		"Appendix [10-10]",
	})
}

func TestCSVParser(t *testing.T) {
	input := "level,title,page\n1,Intro,1\n2,\"Scope, and goals\",2\n1,Unplaced,\n"
	got, err := (&CSVParser{}).Parse(strings.NewReader(input), "toc.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutline(t, got, []string{
		"Intro [1-1]",
		"  Scope, and goals [2-2]",
		"Unplaced [-]",
	})
}

func TestCSVParser_TwoColumns(t *testing.T) {
	got, err := (&CSVParser{}).Parse(strings.NewReader("Intro,1\nEnd,9\n"), "toc.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertOutline(t, got, []string{"Intro [1-1]", "End [9-9]"})
}

func TestCSVParser_BadLevel(t *testing.T) {
	_, err := (&CSVParser{}).Parse(strings.NewReader("1,Intro,1\nx,Broken,2\n"), "toc.csv")
	if err == nil {
		t.Fatal("expected error for non-numeric level")
	}
}

func TestYAML_RoundTrip(t *testing.T) {
	list := []bookmark.Bookmark{
		bookmark.New(1, "Intro", []int{1, 2}),
		bookmark.New(2, "Scope", []int{2}),
	}
	var buf bytes.Buffer
	if err := WriteYAML(&buf, list); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "pages: [1, 2]") {
		t.Errorf("expected flow-style pages, got:\n%s", buf.String())
	}

	got, err := (&YAMLParser{}).Parse(&buf, "out.yaml")
	if err != nil {
		t.Fatal(err)
	}
	assertOutline(t, got, []string{"Intro [1-2]", "  Scope [2-2]"})
}

func TestYAMLParser_Nested(t *testing.T) {
	input := `
- title: Part I
  page: 1
  children:
    - title: Chapter 1
      page: 2
- title: Part II
  page: 8
`
	got, err := (&YAMLParser{}).Parse(strings.NewReader(input), "toc.yaml")
	if err != nil {
		t.Fatal(err)
	}
	assertOutline(t, got, []string{"Part I [1-1]", "  Chapter 1 [2-2]", "Part II [8-8]"})
}

func TestYAMLParser_Empty(t *testing.T) {
	got, err := (&YAMLParser{}).Parse(strings.NewReader(""), "empty.yaml")
	if err != nil || got != nil {
		t.Errorf("got %v, %v; want nil, nil", got, err)
	}
}

func TestResolved(t *testing.T) {
	list := []bookmark.Bookmark{
		bookmark.New(1, "A", []int{1}),
		bookmark.New(1, "B", nil),
	}
	if got := Resolved(list); len(got) != 1 || got[0].Title != "A" {
		t.Errorf("Resolved = %v", got)
	}
}
