package outline

import "github.com/dgallion1/docmark/internal/bookmark"

// Infer computes the full page range of every bookmark in a pre-order list.
//
// A bookmark ends one page before the next later bookmark at the same or a
// shallower level whose start page is strictly greater; otherwise it runs to
// pageCount. Only start pages are read, so Infer(Infer(x)) == Infer(x).
func Infer(list []bookmark.Bookmark, pageCount int) []bookmark.Bookmark {
	out := make([]bookmark.Bookmark, 0, len(list))
	for i, b := range list {
		start := b.StartPage()
		end := pageCount
		for _, c := range list[i+1:] {
			if c.Level <= b.Level && c.StartPage() > start {
				end = c.StartPage() - 1
				break
			}
		}
		// Anchors past the document end keep their start page.
		end = max(end, start)
		out = append(out, bookmark.New(b.Level, b.Title, bookmark.Range(start, end-start+1)))
	}
	return out
}
