package convert

import (
	"sort"
	"sync"
	"time"
)

type sample struct {
	timestamp  time.Time
	tool       string
	durationMs int64
}

// StatsSnapshot is a point-in-time aggregate of converter run latencies.
type StatsSnapshot struct {
	Count int     `json:"count"`
	MinMs int64   `json:"min_ms"`
	MaxMs int64   `json:"max_ms"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
}

// Stats tracks recent converter runs per tool within a rolling window.
type Stats struct {
	mu      sync.Mutex
	samples []sample
	maxAge  time.Duration
}

func NewStats(maxAge time.Duration) *Stats {
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Stats{samples: make([]sample, 0, 64), maxAge: maxAge}
}

func (s *Stats) Record(tool string, durationMs int64) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(now)
	s.samples = append(s.samples, sample{timestamp: now, tool: tool, durationMs: max(durationMs, 0)})
}

// Snapshot aggregates the window by tool name.
func (s *Stats) Snapshot() map[string]StatsSnapshot {
	now := time.Now()
	s.mu.Lock()
	byTool := make(map[string][]int64)
	s.pruneLocked(now)
	for _, sm := range s.samples {
		byTool[sm.tool] = append(byTool[sm.tool], sm.durationMs)
	}
	s.mu.Unlock()

	out := make(map[string]StatsSnapshot, len(byTool))
	for tool, values := range byTool {
		out[tool] = aggregate(values)
	}
	return out
}

func aggregate(values []int64) StatsSnapshot {
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	var sum int64
	for _, v := range values {
		sum += v
	}
	return StatsSnapshot{
		Count: len(values),
		MinMs: values[0],
		MaxMs: values[len(values)-1],
		AvgMs: float64(sum) / float64(len(values)),
		P50Ms: percentile(values, 50),
		P95Ms: percentile(values, 95),
	}
}

func (s *Stats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.maxAge)
	kept := s.samples[:0]
	for _, sm := range s.samples {
		if !sm.timestamp.Before(cutoff) {
			kept = append(kept, sm)
		}
	}
	s.samples = kept
}

func percentile(sorted []int64, pct float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	index := (float64(len(sorted)-1) * pct) / 100.0
	lower := int(index)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	weight := index - float64(lower)
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*weight
}
