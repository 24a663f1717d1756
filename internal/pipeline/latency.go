package pipeline

import (
	"math"
	"time"
)

// LatencyStats is a point-in-time view of detector latency and
// throughput.
type LatencyStats struct {
	Count            uint64  `json:"count"`
	TotalMs          uint64  `json:"total_ms"`
	MinMs            uint64  `json:"min_ms"`
	MaxMs            uint64  `json:"max_ms"`
	MeanMs           float64 `json:"mean_ms"`
	FramesThisSecond uint32  `json:"-"`
	LastFPS          uint32  `json:"fps"`
}

// LatencyTracker aggregates per-call detector durations and samples
// throughput once per second. Advisory state: it informs the overlay
// and metrics, never scheduling decisions.
//
// Not safe for concurrent use on its own; the processor serializes
// Record, Tick, Reset and Snapshot under its mutex.
type LatencyTracker struct {
	count   uint64
	totalMs uint64
	minMs   uint64
	maxMs   uint64

	window  uint32 // completions in the current 1s window
	lastFPS uint32
}

// NewLatencyTracker creates a tracker. Min is seeded with the maximum
// representable value so the first sample always wins.
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{minMs: math.MaxUint64}
}

// Record folds one detector call duration into the aggregate.
func (t *LatencyTracker) Record(d time.Duration) {
	ms := uint64(d.Milliseconds())
	t.count++
	t.totalMs += ms
	if ms < t.minMs {
		t.minMs = ms
	}
	if ms > t.maxMs {
		t.maxMs = ms
	}
	t.window++
}

// Tick closes the current 1-second window: the completion count becomes
// the published FPS and the window restarts. This is the only place
// LastFPS changes. Returns the new FPS value.
func (t *LatencyTracker) Tick() uint32 {
	t.lastFPS = t.window
	t.window = 0
	return t.lastFPS
}

// Reset zeroes count and sum for a new detector instance. Min, max and
// FPS deliberately survive: they describe the whole pipeline lifetime,
// not the active detector.
func (t *LatencyTracker) Reset() {
	t.count = 0
	t.totalMs = 0
}

// Snapshot returns a copy of the current aggregates.
func (t *LatencyTracker) Snapshot() LatencyStats {
	s := LatencyStats{
		Count:            t.count,
		TotalMs:          t.totalMs,
		MaxMs:            t.maxMs,
		FramesThisSecond: t.window,
		LastFPS:          t.lastFPS,
	}
	if t.minMs != math.MaxUint64 {
		s.MinMs = t.minMs
	}
	if t.count > 0 {
		s.MeanMs = float64(t.totalMs) / float64(t.count)
	}
	return s
}
