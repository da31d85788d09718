package bookmark

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// ErrNegativePageCount is returned when a range is built with a negative page count.
var ErrNegativePageCount = errors.New("page count must not be negative")

// Bookmark is a leveled outline entry owning a page range.
//
// Level 1 is the leftmost outline level. Pages is ascending and, once
// end pages have been inferred, contiguous. Values are treated as
// immutable: every transformation returns new bookmarks.
type Bookmark struct {
	Title string `json:"title" yaml:"title"`
	Level int    `json:"level" yaml:"level"`
	Pages []int  `json:"pages" yaml:"pages,flow"`
}

// New creates a bookmark owning a copy of pages.
func New(level int, title string, pages []int) Bookmark {
	return Bookmark{Title: title, Level: level, Pages: slices.Clone(pages)}
}

// NewRange creates a bookmark covering count pages starting at start.
func NewRange(level int, title string, start, count int) (Bookmark, error) {
	if count < 0 {
		return Bookmark{}, fmt.Errorf("bookmark %q: %w (%d)", title, ErrNegativePageCount, count)
	}
	return Bookmark{Title: title, Level: level, Pages: Range(start, count)}, nil
}

// Range returns count consecutive page numbers beginning at start.
func Range(start, count int) []int {
	pages := make([]int, count)
	for i := range pages {
		pages[i] = start + i
	}
	return pages
}

// StartPage is the first page of the range, or 0 when the range is empty.
func (b Bookmark) StartPage() int {
	if len(b.Pages) == 0 {
		return 0
	}
	return b.Pages[0]
}

// EndPage is the last page of the range, or 0 when the range is empty.
func (b Bookmark) EndPage() int {
	if len(b.Pages) == 0 {
		return 0
	}
	return b.Pages[len(b.Pages)-1]
}

// FormattedRange renders the range as "start-end", or "-" when empty.
func (b Bookmark) FormattedRange() string {
	if len(b.Pages) == 0 {
		return "-"
	}
	return strconv.Itoa(b.StartPage()) + "-" + strconv.Itoa(b.EndPage())
}

// Equal reports whether a and b share a title and page sequence. Levels are ignored.
func Equal(a, b Bookmark) bool {
	return a.Title == b.Title && slices.Equal(a.Pages, b.Pages)
}

// WithLevel returns a copy of b at the given level.
func (b Bookmark) WithLevel(level int) Bookmark {
	return New(level, b.Title, b.Pages)
}

// AdjustLevels shifts every level by delta. Levels never drop below 1, so a
// large negative delta flattens the list to the root level.
func AdjustLevels(list []Bookmark, delta int) []Bookmark {
	out := make([]Bookmark, 0, len(list))
	for _, b := range list {
		level := b.Level + delta
		if level < 1 {
			level = 1
		}
		out = append(out, b.WithLevel(level))
	}
	return out
}

// IsChildOf reports whether some bookmark in list has a lower level and a
// range containing b's range.
func IsChildOf(b Bookmark, list []Bookmark) bool {
	for _, other := range list {
		if b.Level > other.Level && b.StartPage() >= other.StartPage() && b.EndPage() <= other.EndPage() {
			return true
		}
	}
	return false
}

// ParentAndChildren collects parent and every bookmark at its level or deeper
// that lies inside its range. The first collected entry takes the parent's
// title, so a same-page ancestor entry is renamed rather than duplicated.
func ParentAndChildren(all []Bookmark, parent Bookmark) []Bookmark {
	var out []Bookmark
	for _, b := range all {
		if b.Level >= parent.Level && b.StartPage() >= parent.StartPage() && b.EndPage() <= parent.EndPage() {
			out = append(out, New(b.Level, b.Title, b.Pages))
		}
	}
	if len(out) > 0 {
		out[0].Title = parent.Title
	}
	return out
}

// UniquePages returns the sorted union of all pages in list.
func UniquePages(list []Bookmark) []int {
	seen := make(map[int]struct{})
	var pages []int
	for _, b := range list {
		for _, p := range b.Pages {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			pages = append(pages, p)
		}
	}
	slices.Sort(pages)
	return pages
}

// Selection compacts pages into range expressions such as "1-3" and "7".
// Duplicates are dropped and the result is ascending.
func Selection(pages []int) []string {
	if len(pages) == 0 {
		return nil
	}
	sorted := slices.Clone(pages)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	var out []string
	begin := sorted[0]
	for i := 1; i <= len(sorted); i++ {
		if i < len(sorted) && sorted[i] == sorted[i-1]+1 {
			continue
		}
		end := sorted[i-1]
		if begin == end {
			out = append(out, strconv.Itoa(begin))
		} else {
			out = append(out, strconv.Itoa(begin)+"-"+strconv.Itoa(end))
		}
		if i < len(sorted) {
			begin = sorted[i]
		}
	}
	return out
}

// String renders a one-line description used in logs and the CLI.
func (b Bookmark) String() string {
	return fmt.Sprintf("%s%s [%s]", strings.Repeat("  ", max(b.Level-1, 0)), b.Title, b.FormattedRange())
}
