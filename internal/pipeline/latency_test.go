package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyTracker_Aggregation(t *testing.T) {
	tr := NewLatencyTracker()

	tr.Record(10 * time.Millisecond)
	tr.Record(30 * time.Millisecond)
	tr.Record(20 * time.Millisecond)

	s := tr.Snapshot()
	assert.Equal(t, uint64(3), s.Count)
	assert.Equal(t, uint64(60), s.TotalMs)
	assert.Equal(t, uint64(10), s.MinMs)
	assert.Equal(t, uint64(30), s.MaxMs)
	assert.Equal(t, 20.0, s.MeanMs)
}

func TestLatencyTracker_FirstSampleWinsMin(t *testing.T) {
	tr := NewLatencyTracker()

	// Min is seeded with the maximum representable value, so even a
	// large first sample becomes the minimum.
	tr.Record(5 * time.Second)

	s := tr.Snapshot()
	assert.Equal(t, uint64(5000), s.MinMs)
	assert.Equal(t, uint64(5000), s.MaxMs)
}

func TestLatencyTracker_EmptySnapshot(t *testing.T) {
	tr := NewLatencyTracker()

	s := tr.Snapshot()
	assert.Equal(t, uint64(0), s.Count)
	assert.Equal(t, uint64(0), s.MinMs)
	assert.Equal(t, uint64(0), s.MaxMs)
	assert.Equal(t, 0.0, s.MeanMs)
}

func TestLatencyTracker_ResetKeepsMinMaxFPS(t *testing.T) {
	tr := NewLatencyTracker()

	tr.Record(10 * time.Millisecond)
	tr.Record(30 * time.Millisecond)
	tr.Tick()

	tr.Reset()

	s := tr.Snapshot()
	assert.Equal(t, uint64(0), s.Count)
	assert.Equal(t, uint64(0), s.TotalMs)
	assert.Equal(t, 0.0, s.MeanMs)
	// Lifetime aggregates survive the reset.
	assert.Equal(t, uint64(10), s.MinMs)
	assert.Equal(t, uint64(30), s.MaxMs)
	assert.Equal(t, uint32(2), s.LastFPS)
}

func TestLatencyTracker_TickWindow(t *testing.T) {
	tr := NewLatencyTracker()

	tr.Record(time.Millisecond)
	tr.Record(time.Millisecond)
	tr.Record(time.Millisecond)

	assert.Equal(t, uint32(3), tr.Tick())

	s := tr.Snapshot()
	assert.Equal(t, uint32(3), s.LastFPS)
	assert.Equal(t, uint32(0), s.FramesThisSecond)

	// An empty window publishes zero FPS.
	assert.Equal(t, uint32(0), tr.Tick())
	assert.Equal(t, uint32(0), tr.Snapshot().LastFPS)
}

func TestLatencyTracker_TickIsOnlyFPSWriter(t *testing.T) {
	tr := NewLatencyTracker()

	tr.Record(time.Millisecond)
	// Recording alone never changes the published FPS.
	assert.Equal(t, uint32(0), tr.Snapshot().LastFPS)
	assert.Equal(t, uint32(1), tr.Snapshot().FramesThisSecond)
}
