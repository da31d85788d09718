package convert

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/docmark/internal/bookmark"
	"github.com/dgallion1/docmark/internal/outlinefile"
)

// HeadingBookmarks builds an outline for a PDF converted from a Word
// document. Headings are read from the .docx and each is placed on the
// first page, at or after the previous heading's page, whose text
// contains it. Headings that cannot be found share the previous page.
func HeadingBookmarks(docxPath, pdfPath string) ([]bookmark.Bookmark, error) {
	f, err := os.Open(docxPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", docxPath, err)
	}
	headings, err := (&outlinefile.DOCXParser{}).Parse(f, docxPath)
	f.Close()
	if err != nil {
		return nil, err
	}
	if len(headings) == 0 {
		return nil, nil
	}

	pages, err := pageTexts(pdfPath)
	if err != nil {
		pages, err = pdftotextPages(pdfPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	return locate(headings, pages), nil
}

func locate(headings []bookmark.Bookmark, pages []string) []bookmark.Bookmark {
	norm := make([]string, len(pages))
	for i, p := range pages {
		norm[i] = normalize(p)
	}

	out := make([]bookmark.Bookmark, 0, len(headings))
	cursor := 0
	for _, h := range headings {
		needle := normalize(h.Title)
		for i := cursor; i < len(norm); i++ {
			if needle != "" && strings.Contains(norm[i], needle) {
				cursor = i
				break
			}
		}
		out = append(out, bookmark.New(h.Level, h.Title, []int{cursor + 1}))
	}
	return out
}

// normalize folds case and drops whitespace, since PDF text extraction
// rarely preserves the original spacing.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, s)
}

func pageTexts(path string) ([]string, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := reader.NumPage()
	pages := make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = text
	}
	return pages, nil
}

func pdftotextPages(path string) ([]string, error) {
	out, err := exec.Command("pdftotext", "-layout", path, "-").Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	pages := strings.Split(string(out), "\f")
	// pdftotext ends the last page with a form feed too.
	if len(pages) > 1 && strings.TrimSpace(pages[len(pages)-1]) == "" {
		pages = pages[:len(pages)-1]
	}
	return pages, nil
}
