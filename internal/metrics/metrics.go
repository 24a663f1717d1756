package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Frame pipeline metrics
	framesSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pipeline_frames_submitted_total",
		Help: "Total frames submitted to the processor",
	})

	framesDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_frames_dropped_total",
		Help: "Total frames dropped before reaching the detector",
	}, []string{"reason"})

	framesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pipeline_frames_processed_total",
		Help: "Total frames whose detector call completed",
	}, []string{"status"})

	detectorLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_detector_latency_seconds",
		Help:    "Wall time of individual detector calls",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
	})

	pipelineFPS = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pipeline_fps",
		Help: "Completed detections per second, sampled at 1 Hz",
	})

	// Converter metrics
	conversionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pixel_conversions_total",
		Help: "Total pixel format conversions",
	}, []string{"kind", "status"})

	// Sink metrics
	annotationsDeliveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sink_annotations_delivered_total",
		Help: "Total annotations delivered to the result sink",
	}, []string{"sink", "status"})
)

// Drop reasons.
const (
	DropReasonSuperseded = "superseded"
	DropReasonShutdown   = "shutdown"
)

// IncFramesSubmitted increments the submitted-frame counter.
func IncFramesSubmitted() {
	framesSubmittedTotal.Inc()
}

// IncFramesDropped increments the dropped-frame counter for a reason.
func IncFramesDropped(reason string) {
	framesDroppedTotal.WithLabelValues(reason).Inc()
}

// ObserveDetection records a completed detector call.
func ObserveDetection(seconds float64, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	framesProcessedTotal.WithLabelValues(status).Inc()
	detectorLatency.Observe(seconds)
}

// SetPipelineFPS updates the 1 Hz throughput gauge.
func SetPipelineFPS(fps float64) {
	pipelineFPS.Set(fps)
}

// IncConversion records a pixel conversion attempt.
func IncConversion(kind string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	conversionsTotal.WithLabelValues(kind, status).Inc()
}

// IncAnnotationDelivered records a sink delivery attempt.
func IncAnnotationDelivered(sink string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	annotationsDeliveredTotal.WithLabelValues(sink, status).Inc()
}
