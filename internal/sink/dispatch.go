package sink

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/vispipe/vispipe/internal/logger"
	"github.com/vispipe/vispipe/internal/metrics"
	"github.com/vispipe/vispipe/internal/pipeline"
)

// Dispatcher decouples pipeline completion goroutines from sink
// latency. Annotations land in a bounded memory queue and a single
// worker drains it; when the queue is full the oldest annotation is
// dropped, keeping delivery fresh rather than complete. A rate limiter
// caps delivery pressure on the backing service.
type Dispatcher struct {
	sink    Sink
	logger  logger.Logger
	queue   chan pipeline.Annotation
	limiter *rate.Limiter

	closed  atomic.Bool
	closeCh chan struct{}
	dropped atomic.Uint64
	wg      sync.WaitGroup
}

// DispatcherConfig tunes a Dispatcher. Zero values select the defaults.
type DispatcherConfig struct {
	QueueDepth int
	// MaxRate caps deliveries per second. Zero means unlimited.
	MaxRate float64
}

const defaultQueueDepth = 64

// errDropped tags queue evictions in the delivery metric.
var errDropped = errors.New("annotation queue full")

// NewDispatcher creates a dispatcher and starts its delivery worker.
func NewDispatcher(s Sink, cfg DispatcherConfig, log logger.Logger) *Dispatcher {
	depth := cfg.QueueDepth
	if depth <= 0 {
		depth = defaultQueueDepth
	}
	limit := rate.Inf
	if cfg.MaxRate > 0 {
		limit = rate.Limit(cfg.MaxRate)
	}

	d := &Dispatcher{
		sink:    s,
		logger:  log.WithField("component", "dispatcher").WithField("sink", s.Name()),
		queue:   make(chan pipeline.Annotation, depth),
		limiter: rate.NewLimiter(limit, 1),
		closeCh: make(chan struct{}),
	}
	d.wg.Add(1)
	go d.worker()
	return d
}

// Enqueue accepts one annotation for asynchronous delivery. Never
// blocks: a full queue evicts the oldest entry to make room.
func (d *Dispatcher) Enqueue(a pipeline.Annotation) {
	if d.closed.Load() {
		return
	}
	for {
		select {
		case d.queue <- a:
			return
		default:
		}
		select {
		case old := <-d.queue:
			d.dropped.Add(1)
			metrics.IncAnnotationDelivered(d.sink.Name(), errDropped)
			d.logger.WithField("frame_id", old.FrameID).Debug("Annotation evicted from full queue")
		default:
		}
	}
}

// Bind adapts the dispatcher to the pipeline's completion callback.
func (d *Dispatcher) Bind() pipeline.SinkFunc {
	return d.Enqueue
}

// Dropped returns the number of annotations evicted so far.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

// Close stops accepting annotations, drains the queue, and closes the
// underlying sink. Idempotent.
func (d *Dispatcher) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	close(d.closeCh)
	d.wg.Wait()
	return d.sink.Close()
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case a := <-d.queue:
			d.deliver(a)
		case <-d.closeCh:
			// Deliver whatever was queued before the close.
			for {
				select {
				case a := <-d.queue:
					d.deliver(a)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(a pipeline.Annotation) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if err := d.limiter.Wait(ctx); err != nil {
		return
	}

	err := d.sink.Deliver(ctx, a)
	metrics.IncAnnotationDelivered(d.sink.Name(), err)
	if err != nil {
		d.logger.WithError(err).WithField("frame_id", a.FrameID).Error("Annotation delivery failed")
	}
}
