// Package progress carries stage reports from long-running document
// operations to whoever is watching them.
package progress

// Phase names the stage a merge or extraction is in.
type Phase int

const (
	Unassigned Phase = iota
	Converting
	Merging
	GettingBookmarks
	AddingBookmarks
	AddingPageNumbers
	Extracting
	Finished
)

var phaseNames = [...]string{
	Unassigned:        "unassigned",
	Converting:        "converting",
	Merging:           "merging",
	GettingBookmarks:  "getting_bookmarks",
	AddingBookmarks:   "adding_bookmarks",
	AddingPageNumbers: "adding_page_numbers",
	Extracting:        "extracting",
	Finished:          "finished",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// MarshalText lets phases appear by name in JSON payloads.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Report is a single progress update. Item is the file or bookmark being
// processed, when there is one.
type Report struct {
	Percentage int    `json:"percentage"`
	Phase      Phase  `json:"phase"`
	Item       string `json:"item,omitempty"`
}

// Sink receives reports. Implementations must not block for long; the
// operation calling them waits.
type Sink func(Report)

// Discard drops every report.
func Discard(Report) {}

// Or returns s, or Discard when s is nil.
func Or(s Sink) Sink {
	if s == nil {
		return Discard
	}
	return s
}

// Stages reports a fixed number of equal stages.
type Stages struct {
	Total int
	Sink  Sink
	done  int
}

// Next marks one more stage finished and reports it.
func (s *Stages) Next(phase Phase, item string) {
	s.done++
	pct := 100
	if s.Total > 0 {
		pct = min(s.done*100/s.Total, 100)
	}
	Or(s.Sink)(Report{Percentage: pct, Phase: phase, Item: item})
}

// Done reports completion regardless of how many stages ran.
func (s *Stages) Done() {
	s.done = s.Total
	Or(s.Sink)(Report{Percentage: 100, Phase: Finished})
}

// Fraction reports progress through n items, e.g. files of an extraction.
func Fraction(sink Sink, phase Phase, i, n int, item string) {
	pct := 100
	if n > 0 {
		pct = i * 100 / n
	}
	Or(sink)(Report{Percentage: pct, Phase: phase, Item: item})
}
