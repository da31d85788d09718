// Package catalog keeps the bookmarks of one source document together with
// their identity, parentage and selection state.
package catalog

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/dgallion1/docmark/internal/bookmark"
	"github.com/dgallion1/docmark/internal/outline"
)

// Entry is a bookmark of a source file. ParentID is uuid.Nil for top-level
// bookmarks. Index is the 1-based position in the document outline.
type Entry struct {
	ID         uuid.UUID         `json:"id"`
	ParentID   uuid.UUID         `json:"parent_id"`
	Bookmark   bookmark.Bookmark `json:"bookmark"`
	SourceFile string            `json:"source_file"`
	Selected   bool              `json:"selected"`
	Index      int               `json:"index"`
}

// Catalog is the flat, pre-order entry list of one document.
type Catalog struct {
	SourceFile string  `json:"source_file"`
	PageCount  int     `json:"page_count"`
	Entries    []Entry `json:"entries"`

	byID map[uuid.UUID]int
}

// FromSource builds a catalog from an engine outline. Nodes without a
// destination are skipped; their children hang off the nearest resolved
// ancestor.
func FromSource(path string, roots []outline.SourceNode, pageCount int) *Catalog {
	var (
		marks   []bookmark.Bookmark
		ids     []uuid.UUID
		parents []uuid.UUID
	)
	var walk func(nodes []outline.SourceNode, level int, parent uuid.UUID)
	walk = func(nodes []outline.SourceNode, level int, parent uuid.UUID) {
		for _, n := range nodes {
			next := parent
			if n.Page > 0 {
				id := uuid.New()
				marks = append(marks, bookmark.New(level, n.Title, []int{n.Page}))
				ids = append(ids, id)
				parents = append(parents, parent)
				next = id
			}
			walk(n.Children, level+1, next)
		}
	}
	walk(roots, 1, uuid.Nil)

	inferred := outline.Infer(marks, pageCount)
	c := &Catalog{SourceFile: path, PageCount: pageCount, Entries: make([]Entry, len(inferred))}
	for i, b := range inferred {
		c.Entries[i] = Entry{
			ID:         ids[i],
			ParentID:   parents[i],
			Bookmark:   b,
			SourceFile: path,
			Index:      i + 1,
		}
	}
	c.reindex()
	return c
}

func (c *Catalog) reindex() {
	c.byID = make(map[uuid.UUID]int, len(c.Entries))
	for i, e := range c.Entries {
		c.byID[e.ID] = i
	}
}

// FileName is the source file name without directory or extension.
func (c *Catalog) FileName() string {
	base := filepath.Base(c.SourceFile)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FileEntry is a level-0 pseudo-bookmark covering the whole document.
func (c *Catalog) FileEntry() Entry {
	return Entry{
		Bookmark:   bookmark.New(0, c.FileName(), bookmark.Range(1, c.PageCount)),
		SourceFile: c.SourceFile,
		Selected:   c.allSelected(),
	}
}

func (c *Catalog) allSelected() bool {
	for _, e := range c.Entries {
		if !e.Selected {
			return false
		}
	}
	return len(c.Entries) > 0
}

// Get returns the entry with id.
func (c *Catalog) Get(id uuid.UUID) (Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.Entries[i], true
}

// Children returns the direct children of id in outline order.
func (c *Catalog) Children(id uuid.UUID) []Entry {
	var out []Entry
	for _, e := range c.Entries {
		if e.ParentID == id && e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

// Select marks id and all of its descendants as selected. Unknown ids are ignored.
func (c *Catalog) Select(id uuid.UUID) {
	c.setSubtree(id, true)
}

// Deselect clears id and its descendants, and clears its parent since the
// parent is no longer wholly selected.
func (c *Catalog) Deselect(id uuid.UUID) {
	i, ok := c.byID[id]
	if !ok {
		return
	}
	c.setSubtree(id, false)
	if p, ok := c.byID[c.Entries[i].ParentID]; ok {
		c.Entries[p].Selected = false
	}
}

func (c *Catalog) setSubtree(id uuid.UUID, selected bool) {
	if _, ok := c.byID[id]; !ok {
		return
	}
	marked := map[uuid.UUID]bool{id: true}
	// Pre-order guarantees parents precede their children.
	for i, e := range c.Entries {
		if marked[e.ID] || marked[e.ParentID] {
			marked[e.ID] = true
			c.Entries[i].Selected = selected
		}
	}
}

// SelectAll marks every entry as selected.
func (c *Catalog) SelectAll() {
	for i := range c.Entries {
		c.Entries[i].Selected = true
	}
}

// Selected returns the leveled bookmarks of selected entries in outline order.
func (c *Catalog) Selected() []bookmark.Bookmark {
	var out []bookmark.Bookmark
	for _, e := range c.Entries {
		if e.Selected {
			out = append(out, e.Bookmark)
		}
	}
	return out
}

// SelectedPages is the sorted set of pages covered by selected entries.
func (c *Catalog) SelectedPages() []int {
	return bookmark.UniquePages(c.Selected())
}

// TopSelected returns selected entries whose parent is not selected. These
// are the natural units of a per-bookmark extraction.
func (c *Catalog) TopSelected() []Entry {
	var out []Entry
	for _, e := range c.Entries {
		if !e.Selected {
			continue
		}
		if p, ok := c.Get(e.ParentID); ok && p.Selected {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Bookmarks returns all leveled bookmarks in outline order.
func (c *Catalog) Bookmarks() []bookmark.Bookmark {
	out := make([]bookmark.Bookmark, len(c.Entries))
	for i, e := range c.Entries {
		out[i] = e.Bookmark
	}
	return out
}

// Find returns ids of entries whose title contains query, case-insensitively.
func (c *Catalog) Find(query string) []uuid.UUID {
	q := strings.ToLower(query)
	var ids []uuid.UUID
	for _, e := range c.Entries {
		if strings.Contains(strings.ToLower(e.Bookmark.Title), q) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// SelectIndexes selects the entries at the given 1-based outline positions.
// Out-of-range positions are ignored.
func (c *Catalog) SelectIndexes(indexes []int) {
	want := make(map[int]bool, len(indexes))
	for _, i := range indexes {
		want[i] = true
	}
	for _, e := range c.Entries {
		if want[e.Index] {
			c.Select(e.ID)
		}
	}
}

// Extractable returns the bookmarks an extraction should receive. When each
// bookmark becomes its own file only the topmost selected entries are
// returned, since their files already cover the selected descendants.
func (c *Catalog) Extractable(perBookmark bool) []bookmark.Bookmark {
	if !perBookmark {
		return c.Selected()
	}
	var out []bookmark.Bookmark
	for _, e := range c.TopSelected() {
		out = append(out, e.Bookmark)
	}
	return out
}

// ParseIndexes parses 1-based outline positions such as "1,3,5-7".
// Positions above limit, usually the number of entries, are dropped so a
// range never expands past the outline.
func ParseIndexes(s string, limit int) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		from, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || from < 1 {
			return nil, fmt.Errorf("invalid index %q", part)
		}
		to := from
		if isRange {
			to, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || to < from {
				return nil, fmt.Errorf("invalid range %q", part)
			}
		}
		for i := from; i <= min(to, limit); i++ {
			out = append(out, i)
		}
	}
	return out, nil
}
