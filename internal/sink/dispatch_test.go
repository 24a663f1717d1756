package sink

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vispipe/vispipe/internal/logger"
	"github.com/vispipe/vispipe/internal/pipeline"
)

// recordingSink captures delivered annotations and can be gated to
// simulate a slow consumer.
type recordingSink struct {
	mu        sync.Mutex
	delivered []string
	gate      chan struct{}
	closed    atomic.Bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(ctx context.Context, a pipeline.Annotation) error {
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	s.delivered = append(s.delivered, a.FrameID)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.delivered...)
}

func TestDispatcher_DeliversInOrder(t *testing.T) {
	rs := &recordingSink{}
	d := NewDispatcher(rs, DispatcherConfig{}, logger.NewNullLogger())

	for _, id := range []string{"a", "b", "c"} {
		d.Enqueue(pipeline.Annotation{FrameID: id})
	}

	require.Eventually(t, func() bool { return len(rs.ids()) == 3 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "b", "c"}, rs.ids())
	assert.Zero(t, d.Dropped())

	require.NoError(t, d.Close())
	assert.True(t, rs.closed.Load())
}

func TestDispatcher_EvictsOldestWhenFull(t *testing.T) {
	gate := make(chan struct{})
	rs := &recordingSink{gate: gate}
	d := NewDispatcher(rs, DispatcherConfig{QueueDepth: 2}, logger.NewNullLogger())

	// The worker blocks on the first delivery; two more fill the queue
	// and the fourth must evict the oldest queued entry.
	d.Enqueue(pipeline.Annotation{FrameID: "a"})
	require.Eventually(t, func() bool { return len(d.queue) == 0 },
		time.Second, time.Millisecond) // worker picked up "a"

	d.Enqueue(pipeline.Annotation{FrameID: "b"})
	d.Enqueue(pipeline.Annotation{FrameID: "c"})
	d.Enqueue(pipeline.Annotation{FrameID: "d"})

	assert.Equal(t, uint64(1), d.Dropped())

	close(gate)
	require.Eventually(t, func() bool { return len(rs.ids()) == 3 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a", "c", "d"}, rs.ids())
	require.NoError(t, d.Close())
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	rs := &recordingSink{}
	d := NewDispatcher(rs, DispatcherConfig{QueueDepth: 16}, logger.NewNullLogger())

	for i := 0; i < 5; i++ {
		d.Enqueue(pipeline.Annotation{FrameID: "f"})
	}
	require.NoError(t, d.Close())
	assert.Len(t, rs.ids(), 5)

	// Idempotent; post-close enqueues are ignored.
	require.NoError(t, d.Close())
	d.Enqueue(pipeline.Annotation{FrameID: "late"})
	assert.Len(t, rs.ids(), 5)
}

func TestDispatcher_RateLimit(t *testing.T) {
	rs := &recordingSink{}
	d := NewDispatcher(rs, DispatcherConfig{QueueDepth: 16, MaxRate: 1000}, logger.NewNullLogger())

	d.Enqueue(pipeline.Annotation{FrameID: "a"})
	require.Eventually(t, func() bool { return len(rs.ids()) == 1 },
		2*time.Second, time.Millisecond)
	require.NoError(t, d.Close())
}
