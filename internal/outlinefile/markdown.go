package outlinefile

import (
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docmark/internal/bookmark"
)

// MarkdownParser reads headings with goldmark. "## Results .... 14" is a
// level-2 bookmark starting on page 14.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) ([]bookmark.Bookmark, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var (
		out []bookmark.Bookmark
		lv  leveler
	)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		raw := headingText(h, src)
		if raw == "" {
			continue
		}
		out = append(out, entry(lv.depth(h.Level), raw))
	}
	return out, nil
}

// headingText concatenates the raw segments of a heading's inline children.
func headingText(n ast.Node, src []byte) string {
	var buf []byte
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf = append(buf, t.Segment.Value(src)...)
			continue
		}
		buf = append(buf, headingText(c, src)...)
	}
	return string(buf)
}
