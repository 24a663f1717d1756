package pixel

import "sync"

// Format identifies the pixel layout of a frame.
type Format uint8

const (
	// FormatYUV420 is a generic three-plane 4:2:0 layout where each plane
	// carries independent row and pixel strides.
	FormatYUV420 Format = iota
	// FormatNV21 is a single buffer: all Y samples, then interleaved V,U
	// byte pairs subsampled 2x in both axes.
	FormatNV21
	// FormatYV12 is a single buffer: Y plane, contiguous V plane, then
	// contiguous U plane.
	FormatYV12
	// FormatARGB is one packed 32-bit word per pixel.
	FormatARGB
)

// String returns the string representation of Format
func (f Format) String() string {
	switch f {
	case FormatYUV420:
		return "yuv420"
	case FormatNV21:
		return "nv21"
	case FormatYV12:
		return "yv12"
	case FormatARGB:
		return "argb"
	default:
		return "unknown"
	}
}

// Plane is one plane of a planar image. RowStride is the byte distance
// between consecutive rows, PixelStride between consecutive samples
// within a row; either may exceed the logical width to accommodate
// padding.
type Plane struct {
	Bytes       []byte
	RowStride   int
	PixelStride int
}

// Frame is an immutable camera frame. The buffer backing Planes belongs
// to the upstream source; Release hands it back and must fire exactly
// once per frame no matter which path the frame takes through the
// pipeline.
type Frame struct {
	ID       string
	Width    int
	Height   int
	Rotation int // 0, 90, 180 or 270 degrees clockwise
	Format   Format
	Planes   []Plane

	releaseOnce sync.Once
	release     func()
}

// OnRelease registers the callback invoked when the frame's buffers can
// be returned to the source's pool.
func (f *Frame) OnRelease(fn func()) {
	f.release = fn
}

// Release returns the frame's buffers to the source. Safe to call more
// than once; the callback fires only on the first call.
func (f *Frame) Release() {
	f.releaseOnce.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}

// NV21Size returns the byte length of an NV21 or YV12 buffer for the
// given dimensions: width*height luma plus two chroma channels
// subsampled 2x2 with ceiling division.
func NV21Size(width, height int) int {
	cw, ch := chromaDims(width, height)
	return width*height + 2*cw*ch
}

// chromaDims returns the sample counts of one subsampled chroma channel.
func chromaDims(width, height int) (int, int) {
	return (width + 1) / 2, (height + 1) / 2
}
