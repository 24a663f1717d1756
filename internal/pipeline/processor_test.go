package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vispipe/vispipe/internal/errors"
	"github.com/vispipe/vispipe/internal/logger"
	"github.com/vispipe/vispipe/internal/pixel"
)

// releasableFrame returns a 2x2 NV21 frame whose release callback counts
// invocations.
func releasableFrame(id string, released *atomic.Int32) *pixel.Frame {
	f := &pixel.Frame{
		ID:     id,
		Width:  2,
		Height: 2,
		Format: pixel.FormatNV21,
		Planes: []pixel.Plane{{Bytes: make([]byte, 6), RowStride: 2, PixelStride: 1}},
	}
	if released != nil {
		f.OnRelease(func() { released.Add(1) })
	}
	return f
}

// gatedDetector blocks each Detect call until the test releases it, and
// records the order in which frames arrive.
type gatedDetector struct {
	started chan string
	release chan struct{}

	mu   sync.Mutex
	seen []string
}

func newGatedDetector() *gatedDetector {
	return &gatedDetector{
		started: make(chan string, 16),
		release: make(chan struct{}),
	}
}

func (d *gatedDetector) Detect(ctx context.Context, f *pixel.Frame) (Detection, error) {
	d.mu.Lock()
	d.seen = append(d.seen, f.ID)
	d.mu.Unlock()
	d.started <- f.ID
	<-d.release
	return Detection{}, nil
}

func (d *gatedDetector) order() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.seen...)
}

func waitFor(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case id := <-ch:
		assert.Equal(t, want, id)
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for detector to start frame %q", want)
	}
}

func TestProcessor_DropsSupersededPending(t *testing.T) {
	det := newGatedDetector()
	anns := make(chan Annotation, 8)
	p := NewProcessor(Config{LiveViewport: true}, det,
		func(a Annotation) { anns <- a }, logger.NewNullLogger())

	var rel1, rel2, rel3 atomic.Int32
	p.Submit(releasableFrame("1", &rel1))
	waitFor(t, det.started, "1")

	// 2 parks as pending; 3 supersedes it before the detector is free.
	p.Submit(releasableFrame("2", &rel2))
	p.Submit(releasableFrame("3", &rel3))
	assert.Equal(t, int32(1), rel2.Load())

	det.release <- struct{}{}
	waitFor(t, det.started, "3")
	det.release <- struct{}{}

	for i := 0; i < 2; i++ {
		select {
		case <-anns:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for annotation")
		}
	}

	assert.Equal(t, []string{"1", "3"}, det.order())
	assert.Equal(t, int32(1), rel1.Load())
	assert.Equal(t, int32(1), rel3.Load())
	require.Eventually(t, func() bool { return p.State() == StateIdle },
		time.Second, 5*time.Millisecond)
}

func TestProcessor_SingleInFlight(t *testing.T) {
	var inFlight, violations, completed atomic.Int32
	det := DetectorFunc(func(ctx context.Context, f *pixel.Frame) (Detection, error) {
		if inFlight.Add(1) > 1 {
			violations.Add(1)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		return Detection{}, nil
	})
	p := NewProcessor(Config{LiveViewport: true}, det,
		func(Annotation) { completed.Add(1) }, logger.NewNullLogger())

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				p.Submit(releasableFrame("f", nil))
				time.Sleep(100 * time.Microsecond)
			}
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return p.State() == StateIdle },
		2*time.Second, 5*time.Millisecond)
	assert.Zero(t, violations.Load())
	assert.Greater(t, completed.Load(), int32(0))
}

func TestProcessor_StateTransitions(t *testing.T) {
	det := newGatedDetector()
	p := NewProcessor(Config{LiveViewport: true}, det, nil, logger.NewNullLogger())

	assert.Equal(t, StateIdle, p.State())

	p.Submit(releasableFrame("a", nil))
	waitFor(t, det.started, "a")
	assert.Equal(t, StateInFlight, p.State())

	p.Submit(releasableFrame("b", nil))
	assert.Equal(t, StateInFlightWithPending, p.State())

	det.release <- struct{}{}
	waitFor(t, det.started, "b")
	assert.Equal(t, StateInFlight, p.State())

	det.release <- struct{}{}
	require.Eventually(t, func() bool { return p.State() == StateIdle },
		time.Second, 5*time.Millisecond)
}

func TestProcessor_ShutdownReleasesPendingOnce(t *testing.T) {
	det := newGatedDetector()
	var delivered atomic.Int32
	p := NewProcessor(Config{LiveViewport: true}, det,
		func(Annotation) { delivered.Add(1) }, logger.NewNullLogger())

	var relA, relB atomic.Int32
	p.Submit(releasableFrame("a", &relA))
	waitFor(t, det.started, "a")
	p.Submit(releasableFrame("b", &relB))

	p.Shutdown()
	p.Shutdown() // idempotent

	assert.Equal(t, StateShutDown, p.State())
	assert.Equal(t, int32(1), relB.Load())

	// The in-flight call finishes after shutdown; its result is swallowed
	// and the frame still comes back exactly once.
	det.release <- struct{}{}
	require.Eventually(t, func() bool { return relA.Load() == 1 },
		time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, delivered.Load())
}

func TestProcessor_RejectsAfterShutdown(t *testing.T) {
	var calls atomic.Int32
	det := DetectorFunc(func(ctx context.Context, f *pixel.Frame) (Detection, error) {
		calls.Add(1)
		return Detection{}, nil
	})
	p := NewProcessor(Config{LiveViewport: true}, det, nil, logger.NewNullLogger())
	p.Shutdown()

	var rel atomic.Int32
	p.Submit(releasableFrame("late", &rel))

	assert.Equal(t, int32(1), rel.Load())
	assert.Zero(t, calls.Load())
	assert.Equal(t, StateShutDown, p.State())
}

func TestProcessor_DetectorFailureKeepsPipelineMoving(t *testing.T) {
	det := DetectorFunc(func(ctx context.Context, f *pixel.Frame) (Detection, error) {
		return Detection{}, assert.AnError
	})
	anns := make(chan Annotation, 8)
	p := NewProcessor(Config{LiveViewport: true}, det,
		func(a Annotation) { anns <- a }, logger.NewNullLogger())

	for i := 0; i < 3; i++ {
		var rel atomic.Int32
		p.Submit(releasableFrame("f", &rel))

		select {
		case a := <-anns:
			require.Error(t, a.Err)
			assert.True(t, errors.IsDetectorError(a.Err))
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for failure annotation")
		}
		require.Eventually(t, func() bool { return rel.Load() == 1 },
			time.Second, 5*time.Millisecond)
	}

	// Failures still count toward latency aggregates.
	assert.Equal(t, uint64(3), p.Stats().Count)
	require.Eventually(t, func() bool { return p.State() == StateIdle },
		time.Second, 5*time.Millisecond)
}

func TestProcessor_AnnotationCarriesPreview(t *testing.T) {
	det := DetectorFunc(func(ctx context.Context, f *pixel.Frame) (Detection, error) {
		return Detection{Boxes: []Box{{Label: "cat", Score: 0.9}}}, nil
	})
	anns := make(chan Annotation, 1)
	p := NewProcessor(Config{}, det,
		func(a Annotation) { anns <- a }, logger.NewNullLogger())

	p.Submit(releasableFrame("f", nil))

	select {
	case a := <-anns:
		assert.Equal(t, "f", a.FrameID)
		require.Len(t, a.Detection.Boxes, 1)
		assert.Equal(t, "cat", a.Detection.Boxes[0].Label)
		// 2x2 NV21 preview: 4 luma + 2 chroma bytes.
		assert.Len(t, a.Preview, 6)
		assert.Equal(t, uint64(1), a.Latency.Count)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for annotation")
	}
}

func TestProcessor_LiveViewportSkipsPreview(t *testing.T) {
	det := DetectorFunc(func(ctx context.Context, f *pixel.Frame) (Detection, error) {
		return Detection{}, nil
	})
	anns := make(chan Annotation, 1)
	p := NewProcessor(Config{LiveViewport: true}, det,
		func(a Annotation) { anns <- a }, logger.NewNullLogger())

	p.Submit(releasableFrame("f", nil))

	select {
	case a := <-anns:
		assert.Nil(t, a.Preview)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for annotation")
	}
}

func TestProcessor_DetectorTimeout(t *testing.T) {
	det := DetectorFunc(func(ctx context.Context, f *pixel.Frame) (Detection, error) {
		select {
		case <-ctx.Done():
			return Detection{}, ctx.Err()
		case <-time.After(5 * time.Second):
			return Detection{}, nil
		}
	})
	anns := make(chan Annotation, 1)
	p := NewProcessor(Config{LiveViewport: true, DetectorTimeout: 10 * time.Millisecond}, det,
		func(a Annotation) { anns <- a }, logger.NewNullLogger())

	p.Submit(releasableFrame("f", nil))

	select {
	case a := <-anns:
		require.Error(t, a.Err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for annotation")
	}
}

func TestProcessor_ResetStats(t *testing.T) {
	det := DetectorFunc(func(ctx context.Context, f *pixel.Frame) (Detection, error) {
		time.Sleep(2 * time.Millisecond)
		return Detection{}, nil
	})
	done := make(chan struct{}, 4)
	p := NewProcessor(Config{LiveViewport: true}, det,
		func(Annotation) { done <- struct{}{} }, logger.NewNullLogger())

	p.Submit(releasableFrame("f", nil))
	<-done

	require.Equal(t, uint64(1), p.Stats().Count)
	p.ResetStats()
	s := p.Stats()
	assert.Zero(t, s.Count)
	assert.Zero(t, s.MeanMs)
}
