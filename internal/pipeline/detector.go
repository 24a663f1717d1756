package pipeline

import (
	"context"

	"github.com/vispipe/vispipe/internal/pixel"
)

// Detector runs inference on a single frame. Implementations may block
// for an unbounded, workload-dependent time; the processor guarantees a
// detector is never invoked concurrently with itself.
type Detector interface {
	Detect(ctx context.Context, frame *pixel.Frame) (Detection, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, frame *pixel.Frame) (Detection, error)

// Detect implements Detector.
func (f DetectorFunc) Detect(ctx context.Context, frame *pixel.Frame) (Detection, error) {
	return f(ctx, frame)
}

// Detection is the output of one detector call.
type Detection struct {
	Boxes []Box `json:"boxes"`
}

// Box is a single labeled detection, coordinates normalized to frame
// dimensions.
type Box struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	W     float64 `json:"w"`
	H     float64 `json:"h"`
}

// Annotation is delivered to the result sink once per completed
// detection, success or failure.
type Annotation struct {
	FrameID   string
	Detection Detection
	Err       error
	// Preview holds the frame's NV21 bytes for manual compositing. Nil
	// when the live viewport handles display itself.
	Preview []byte
	Latency LatencyStats
}

// SinkFunc receives annotations from the processor. Called from the
// detector completion goroutine; implementations that block delay
// promotion of the next frame.
type SinkFunc func(Annotation)
