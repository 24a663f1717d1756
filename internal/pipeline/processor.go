package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/vispipe/vispipe/internal/errors"
	"github.com/vispipe/vispipe/internal/logger"
	"github.com/vispipe/vispipe/internal/metrics"
	"github.com/vispipe/vispipe/internal/pixel"
)

// State is the processor's position in the submission/completion
// protocol.
type State uint8

const (
	StateIdle State = iota
	StateInFlight
	StateInFlightWithPending
	StateShutDown
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInFlight:
		return "in_flight"
	case StateInFlightWithPending:
		return "in_flight_with_pending"
	case StateShutDown:
		return "shut_down"
	default:
		return "unknown"
	}
}

// Config configures a frame processor.
type Config struct {
	// LiveViewport skips preview materialization when the display
	// surface composites camera frames itself. Optimization only; the
	// detector always receives the raw frame.
	LiveViewport bool
	// DetectorTimeout bounds a single detector call. Zero means the
	// processor imposes no deadline.
	DetectorTimeout time.Duration
}

// Processor schedules camera frames onto a slow asynchronous detector.
// At most one detector call is outstanding at a time; a frame arriving
// while one is in flight parks in the pending slot and any frame
// already parked there is dropped. Freshness over completeness.
type Processor struct {
	cfg      Config
	detector Detector
	sink     SinkFunc
	logger   logger.Logger
	dropLog  *logger.Sampled

	mu      sync.Mutex
	state   State
	slot    Slot
	tracker *LatencyTracker

	// ctx gates the tick loop only. Detector calls deliberately run on
	// a separate context: shutdown is cooperative and lets in-flight
	// work finish.
	ctx    context.Context
	cancel context.CancelFunc
}

// NewProcessor creates a frame processor. The sink receives one
// annotation per completed detection and may be nil.
func NewProcessor(cfg Config, detector Detector, sink SinkFunc, log logger.Logger) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	l := log.WithField("component", "frame_processor")
	return &Processor{
		cfg:      cfg,
		detector: detector,
		sink:     sink,
		logger:   l,
		dropLog:  logger.NewSampled(l, time.Second),
		state:    StateIdle,
		tracker:  NewLatencyTracker(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the 1 Hz throughput tick loop.
func (p *Processor) Start() {
	go p.tickLoop()
}

func (p *Processor) tickLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Submit hands a camera frame to the pipeline. Never blocks: the frame
// is either promoted straight to the detector, parked as pending
// (superseding any frame already parked), or released immediately if
// the processor has shut down.
func (p *Processor) Submit(f *pixel.Frame) {
	if f == nil {
		return
	}
	metrics.IncFramesSubmitted()

	p.mu.Lock()
	if p.state == StateShutDown {
		p.mu.Unlock()
		// Release straight away so the upstream buffer pool is not
		// starved during teardown.
		f.Release()
		metrics.IncFramesDropped(metrics.DropReasonShutdown)
		return
	}
	promoted, dropped := p.slot.Offer(f)
	if promoted {
		p.state = StateInFlight
	} else {
		p.state = StateInFlightWithPending
	}
	p.mu.Unlock()

	if dropped != nil {
		dropped.Release()
		metrics.IncFramesDropped(metrics.DropReasonSuperseded)
		p.dropLog.Info(map[string]interface{}{"frame_id": dropped.ID}, "Pending frame superseded")
	}
	if promoted {
		go p.run(f)
	}
}

// run executes one detector call and feeds the completion back into the
// state machine. Exactly one run goroutine exists per in-flight frame.
func (p *Processor) run(f *pixel.Frame) {
	var preview []byte
	if !p.cfg.LiveViewport {
		b, err := pixel.FrameToNV21(f)
		metrics.IncConversion("frame_to_nv21", err)
		if err != nil {
			p.logger.WithError(err).WithField("frame_id", f.ID).Warn("Preview conversion failed")
		} else {
			preview = b
		}
	}

	ctx := context.Background()
	cancel := func() {}
	if p.cfg.DetectorTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, p.cfg.DetectorTimeout)
	}

	// Latency measures detector wall time only, excluding any time the
	// frame spent parked as pending.
	start := time.Now()
	det, err := p.detector.Detect(ctx, f)
	cancel()
	p.complete(f, det, err, preview, time.Since(start))
}

// complete is the single completion entry point for success and failure
// alike. It records latency, delivers the tagged result, and promotes
// the pending frame if one is waiting.
func (p *Processor) complete(f *pixel.Frame, det Detection, detErr error, preview []byte, dur time.Duration) {
	p.mu.Lock()
	if p.state == StateShutDown {
		p.mu.Unlock()
		// Late completion after shutdown: swallow the result, release
		// the frame, promote nothing.
		f.Release()
		return
	}
	p.tracker.Record(dur)
	next := p.slot.Complete()
	if next != nil {
		p.state = StateInFlight
	} else {
		p.state = StateIdle
	}
	stats := p.tracker.Snapshot()
	p.mu.Unlock()

	f.Release()
	metrics.ObserveDetection(dur.Seconds(), detErr != nil)

	if detErr != nil && !errors.IsDetectorError(detErr) {
		detErr = errors.NewDetectorError(detErr)
	}
	if p.sink != nil {
		p.sink(Annotation{
			FrameID:   f.ID,
			Detection: det,
			Err:       detErr,
			Preview:   preview,
			Latency:   stats,
		})
	}

	if next != nil {
		go p.run(next)
	}
}

// Tick closes the current throughput window. Serialized with submit and
// completion through the processor mutex.
func (p *Processor) Tick() {
	p.mu.Lock()
	if p.state == StateShutDown {
		p.mu.Unlock()
		return
	}
	fps := p.tracker.Tick()
	p.mu.Unlock()

	metrics.SetPipelineFPS(float64(fps))
}

// Shutdown stops accepting frames and releases the pending frame, if
// any. Cooperative: an in-flight detector call is allowed to finish but
// its result is swallowed. Idempotent.
func (p *Processor) Shutdown() {
	p.mu.Lock()
	if p.state == StateShutDown {
		p.mu.Unlock()
		return
	}
	pending := p.slot.Drain()
	p.state = StateShutDown
	p.mu.Unlock()

	p.cancel()
	if pending != nil {
		pending.Release()
		metrics.IncFramesDropped(metrics.DropReasonShutdown)
	}
	p.logger.Info("Frame processor shut down")
}

// Stats returns a snapshot of latency and throughput aggregates.
func (p *Processor) Stats() LatencyStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tracker.Snapshot()
}

// ResetStats zeroes the per-detector aggregates. Min, max and FPS
// survive, matching the stats-across-detector-lifetime contract.
func (p *Processor) ResetStats() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracker.Reset()
}

// State returns the processor's current protocol state.
func (p *Processor) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}
