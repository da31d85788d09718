package outlinefile

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docmark/internal/bookmark"
)

// CSVParser reads rows of level,title,page. Two-column rows are
// title,page at level 1. A header row is skipped when its first cell is
// not a number.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename string) ([]bookmark.Bookmark, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	var out []bookmark.Bookmark
	for i, row := range records {
		if len(row) < 2 {
			continue
		}
		if i == 0 && isHeader(row) {
			continue
		}
		level, title, pageCell := 1, row[0], row[1]
		if len(row) >= 3 {
			n, err := strconv.Atoi(strings.TrimSpace(row[0]))
			if err != nil {
				return nil, fmt.Errorf("csv row %d: level %q: %w", i+1, row[0], err)
			}
			level, title, pageCell = max(n, 1), row[1], row[2]
		}
		page := 0
		if s := strings.TrimSpace(pageCell); s != "" {
			if page, err = strconv.Atoi(s); err != nil {
				return nil, fmt.Errorf("csv row %d: page %q: %w", i+1, pageCell, err)
			}
		}
		out = append(out, withPage(level, strings.TrimSpace(title), page))
	}
	return out, nil
}

func isHeader(row []string) bool {
	last := strings.TrimSpace(row[len(row)-1])
	_, err := strconv.Atoi(last)
	return err != nil && last != ""
}
