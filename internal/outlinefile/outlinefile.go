// Package outlinefile imports outlines from text-like files (tables of
// contents written in Markdown, HTML, plain text, CSV, YAML or Word) and
// exports leveled bookmarks as YAML.
//
// Parsed bookmarks carry their start page only. Entries without a page
// number have no pages; callers resolve or drop them before inference.
package outlinefile

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/docmark/internal/bookmark"
)

// Parser reads an outline from r.
type Parser interface {
	Parse(r io.Reader, filename string) ([]bookmark.Bookmark, error)
}

// SupportedExtensions lists file extensions outlines can be imported from.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".yaml":     true,
	".yml":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".yaml", ".yml":
		return &YAMLParser{}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported outline file extension: %s", ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// trailingPage matches a page number separated from its title by dot
// leaders, a tab, a pipe or at least two spaces: "Intro ..... 3".
var trailingPage = regexp.MustCompile(`^(.*?\S)(?:\s*(?:\.{2,}|…+)\s*|\t+\s*|\s*\|\s*|\s{2,})(\d+)$`)

// splitTitle separates a trailing page number from a title.
func splitTitle(s string) (string, int) {
	s = strings.TrimSpace(s)
	m := trailingPage.FindStringSubmatch(s)
	if m == nil {
		return s, 0
	}
	page, err := strconv.Atoi(m[2])
	if err != nil {
		return s, 0
	}
	return m[1], page
}

func entry(level int, raw string) bookmark.Bookmark {
	title, page := splitTitle(raw)
	return withPage(level, title, page)
}

func withPage(level int, title string, page int) bookmark.Bookmark {
	var pages []int
	if page > 0 {
		pages = []int{page}
	}
	return bookmark.New(level, title, pages)
}

// leveler turns raw heading levels into outline depths, so a document
// jumping from h1 to h3 still nests one level deeper.
type leveler struct {
	stack []int
}

func (l *leveler) depth(level int) int {
	for len(l.stack) > 0 && l.stack[len(l.stack)-1] >= level {
		l.stack = l.stack[:len(l.stack)-1]
	}
	l.stack = append(l.stack, level)
	return len(l.stack)
}

// Resolved keeps only bookmarks that have a start page.
func Resolved(list []bookmark.Bookmark) []bookmark.Bookmark {
	var out []bookmark.Bookmark
	for _, b := range list {
		if b.StartPage() > 0 {
			out = append(out, b)
		}
	}
	return out
}
