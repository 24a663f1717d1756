package sink

import (
	"context"

	"github.com/vispipe/vispipe/internal/logger"
	"github.com/vispipe/vispipe/internal/pipeline"
)

// LogSink writes each annotation to the structured log. The default
// sink for local runs and the fallback when no broker is configured.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log.WithField("component", "log_sink")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Deliver(_ context.Context, a pipeline.Annotation) error {
	fields := logger.Fields{
		"frame_id": a.FrameID,
		"boxes":    len(a.Detection.Boxes),
		"mean_ms":  a.Latency.MeanMs,
		"fps":      a.Latency.LastFPS,
	}
	if a.Err != nil {
		s.logger.WithFields(fields).WithError(a.Err).Warn("Detection failed")
		return nil
	}
	s.logger.WithFields(fields).Info("Frame annotated")
	return nil
}

func (s *LogSink) Close() error { return nil }
