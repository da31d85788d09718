package outlinefile

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docmark/internal/bookmark"
)

// TextParser reads one bookmark per non-blank line. Indentation sets the
// level: a line indented deeper than the one above is its child.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) ([]bookmark.Bookmark, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		out []bookmark.Bookmark
		lv  leveler
	)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \r")
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := indentWidth(line[:len(line)-len(trimmed)])
		trimmed = strings.TrimLeft(trimmed, "-*• ")
		out = append(out, entry(lv.depth(indent+1), trimmed))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// indentWidth counts a tab as four spaces.
func indentWidth(prefix string) int {
	n := 0
	for _, r := range prefix {
		if r == '\t' {
			n += 4
		} else {
			n++
		}
	}
	return n
}
