package outlinefile

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/docmark/internal/bookmark"
)

// HTMLParser reads h1-h6 elements. A data-page attribute wins over a
// trailing page number in the heading text.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) ([]bookmark.Bookmark, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var (
		out []bookmark.Bookmark
		lv  leveler
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				b := entry(lv.depth(level), textContent(n))
				if page := attrInt(n, "data-page"); page > 0 {
					b = withPage(b.Level, b.Title, page)
				}
				if b.Title != "" {
					out = append(out, b)
				}
				return
			}
			switch n.Data {
			case "script", "style":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return out, nil
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func attrInt(n *html.Node, key string) int {
	for _, a := range n.Attr {
		if a.Key == key {
			var v int
			if _, err := fmt.Sscanf(a.Val, "%d", &v); err == nil {
				return v
			}
		}
	}
	return 0
}
