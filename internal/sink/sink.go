package sink

import (
	"context"
	"time"

	"github.com/vispipe/vispipe/internal/config"
	"github.com/vispipe/vispipe/internal/errors"
	"github.com/vispipe/vispipe/internal/logger"
	"github.com/vispipe/vispipe/internal/metrics"
	"github.com/vispipe/vispipe/internal/pipeline"
)

// Sink delivers completed annotations to an external consumer.
type Sink interface {
	// Deliver publishes one annotation. Called from pipeline completion
	// goroutines, so implementations must be safe for concurrent use.
	Deliver(ctx context.Context, a pipeline.Annotation) error
	Name() string
	Close() error
}

// deliverTimeout bounds a single delivery so a stalled consumer cannot
// hold a pipeline completion goroutine.
const deliverTimeout = 5 * time.Second

// New creates the sink named by the configuration.
func New(cfg config.SinkConfig, log logger.Logger) (Sink, error) {
	switch cfg.Kind {
	case "log":
		return NewLogSink(log), nil
	case "redis":
		return NewRedisSink(cfg.Redis, log), nil
	default:
		return nil, errors.NewValidationError("unknown sink kind " + cfg.Kind)
	}
}

// Bind adapts a Sink to the pipeline's completion callback, attaching
// delivery metrics and error logging.
func Bind(s Sink, log logger.Logger) pipeline.SinkFunc {
	l := log.WithField("component", "sink").WithField("sink", s.Name())
	return func(a pipeline.Annotation) {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()

		err := s.Deliver(ctx, a)
		metrics.IncAnnotationDelivered(s.Name(), err)
		if err != nil {
			l.WithError(err).WithField("frame_id", a.FrameID).Error("Annotation delivery failed")
		}
	}
}

// event is the wire form of an annotation. The preview image is
// deliberately omitted: consumers wanting pixels subscribe to the frame
// transport, not the annotation channel.
type event struct {
	FrameID   string         `json:"frame_id"`
	Boxes     []pipeline.Box `json:"boxes,omitempty"`
	Error     string         `json:"error,omitempty"`
	MeanMs    float64        `json:"latency_mean_ms"`
	FPS       uint32         `json:"fps"`
	Timestamp time.Time      `json:"timestamp"`
}

func newEvent(a pipeline.Annotation) event {
	e := event{
		FrameID:   a.FrameID,
		Boxes:     a.Detection.Boxes,
		MeanMs:    a.Latency.MeanMs,
		FPS:       a.Latency.LastFPS,
		Timestamp: time.Now().UTC(),
	}
	if a.Err != nil {
		e.Error = a.Err.Error()
	}
	return e
}
