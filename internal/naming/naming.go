// Package naming turns bookmark titles into output file names.
package naming

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Placeholders understood by Template.
const (
	Bookmark = "{bookmark}"
	File     = "{file}"
	Number   = "{number}"
)

var illegal = strings.NewReplacer(
	":", "",
	"/", "-",
	"\\", "",
	"*", "",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
	"\x00", "",
)

// Sanitize makes name usable as a file name on every common platform.
// Colons are dropped, slashes become dashes and other reserved characters
// and control codes are removed.
func Sanitize(name string) string {
	name = illegal.Replace(name)
	name = strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(name)
}

// Template renders file names from a pattern such as "{number} {bookmark}".
// An empty pattern yields the bookmark title.
type Template struct {
	Pattern string
}

// Fields are the values substituted into a template.
type Fields struct {
	Bookmark string
	File     string
	// Index is 1-based; Last is the highest index in the batch and sets the
	// zero-padding width of {number}.
	Index int
	Last  int
}

// Render fills in the placeholders. The result is not sanitized.
func (t Template) Render(f Fields) string {
	if t.Pattern == "" {
		return f.Bookmark
	}
	file := strings.TrimSuffix(f.File, filepath.Ext(f.File))
	return strings.NewReplacer(
		Bookmark, f.Bookmark,
		File, file,
		Number, pad(f.Index, f.Last),
	).Replace(t.Pattern)
}

func pad(index, last int) string {
	s := strconv.Itoa(index)
	width := len(strconv.Itoa(max(last, index)))
	if len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// Unique returns name, or name followed by " N" when taken reports the base
// name as already used. N is one more than the number of earlier uses.
func Unique(name string, taken func(string) bool) string {
	if !taken(name) {
		return name
	}
	for n := 2; ; n++ {
		candidate := name + " " + strconv.Itoa(n)
		if !taken(candidate) {
			return candidate
		}
	}
}

// InDir reports whether dir already holds name+ext.
func InDir(dir, ext string) func(string) bool {
	return func(name string) bool {
		_, err := os.Stat(filepath.Join(dir, name+ext))
		return err == nil
	}
}

// Set is an in-memory name registry for names not yet on disk.
type Set map[string]struct{}

// Taken reports whether name was added, or exists according to fallback.
func (s Set) Taken(fallback func(string) bool) func(string) bool {
	return func(name string) bool {
		if _, ok := s[strings.ToLower(name)]; ok {
			return true
		}
		return fallback != nil && fallback(name)
	}
}

// Add records name. Names compare case-insensitively.
func (s Set) Add(name string) { s[strings.ToLower(name)] = struct{}{} }
