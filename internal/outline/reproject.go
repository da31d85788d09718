package outline

import "github.com/dgallion1/docmark/internal/bookmark"

// ReprojectMerge shifts every bookmark so that page 1 of its source document
// lands on startPageInOutput. Levels and page counts are preserved.
func ReprojectMerge(list []bookmark.Bookmark, startPageInOutput int) []bookmark.Bookmark {
	out := make([]bookmark.Bookmark, 0, len(list))
	for _, b := range list {
		start := startPageInOutput + b.StartPage() - 1
		out = append(out, bookmark.New(b.Level, b.Title, bookmark.Range(start, len(b.Pages))))
	}
	return out
}

// ReprojectExtract renumbers bookmarks against an ascending, distinct list of
// retained pages. A bookmark anchored on a retained page gets that page's
// 1-based rank as its only page; bookmarks anchored elsewhere are dropped.
// Output follows the order of extractedPages, then source order. Run Infer
// afterwards when full ranges are needed again.
func ReprojectExtract(list []bookmark.Bookmark, extractedPages []int) []bookmark.Bookmark {
	var out []bookmark.Bookmark
	for i, page := range extractedPages {
		for _, b := range list {
			if b.StartPage() != page {
				continue
			}
			out = append(out, bookmark.New(b.Level, b.Title, []int{rank(extractedPages, i)}))
		}
	}
	return out
}

// rank counts retained pages at or below extractedPages[i].
func rank(extractedPages []int, i int) int {
	n := 0
	for _, p := range extractedPages {
		if p <= extractedPages[i] {
			n++
		}
	}
	return n
}

// DropRedundantContainer removes the first entry when it shares its start
// page with the second one. Extraction callers use it when the entry for the
// extracted range itself would duplicate its first child.
func DropRedundantContainer(list []bookmark.Bookmark) []bookmark.Bookmark {
	if len(list) > 1 && list[0].StartPage() == list[1].StartPage() {
		return list[1:]
	}
	return list
}
