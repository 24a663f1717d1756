package source

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vispipe/vispipe/internal/config"
	"github.com/vispipe/vispipe/internal/logger"
	"github.com/vispipe/vispipe/internal/pixel"
)

// Handler receives each produced frame. It must not block: the camera
// paces itself with a rate limiter and a slow handler would skew the
// frame clock.
type Handler func(*pixel.Frame)

// planeLayout selects how the camera lays out frame memory.
type planeLayout uint8

const (
	// layoutInterleaved emits three yuv420 planes whose U and V alias a
	// single VU buffer, the layout tightly-packed camera HALs deliver.
	layoutInterleaved planeLayout = iota
	// layoutPlanar emits three independent planes with row padding, the
	// layout that forces per-sample unpacking downstream.
	layoutPlanar
	// layoutNV21 emits a single pre-interleaved buffer.
	layoutNV21
)

// Camera is a synthetic frame source. It produces strided 4:2:0 frames
// at a fixed rate and hands each to the registered handler. Buffers are
// pooled; the pipeline returns them through Frame.Release.
type Camera struct {
	cfg     config.CameraConfig
	handler Handler
	logger  logger.Logger
	limiter *rate.Limiter
	layout  planeLayout

	lumaPool   *bufferPool
	chromaPool *bufferPool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	seq atomic.Uint64
}

const poolDepth = 8

// NewCamera creates a camera source delivering frames to handler.
func NewCamera(cfg config.CameraConfig, handler Handler, log logger.Logger) *Camera {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Camera{
		cfg:     cfg,
		handler: handler,
		logger:  log.WithField("component", "camera"),
		limiter: rate.NewLimiter(rate.Limit(cfg.FPS), 1),
		ctx:     ctx,
		cancel:  cancel,
	}

	w, h := cfg.Width, cfg.Height
	cw, ch := (w+1)/2, (h+1)/2
	switch {
	case cfg.Format == "nv21":
		c.layout = layoutNV21
		c.lumaPool = newBufferPool(pixel.NV21Size(w, h), poolDepth)
	case cfg.RowPadding == 0 && w%2 == 0 && h%2 == 0:
		c.layout = layoutInterleaved
		c.lumaPool = newBufferPool(w*h, poolDepth)
		c.chromaPool = newBufferPool(w*h/2, poolDepth)
	default:
		c.layout = layoutPlanar
		c.lumaPool = newBufferPool((w+cfg.RowPadding)*h, poolDepth)
		c.chromaPool = newBufferPool((cw+cfg.RowPadding)*ch, poolDepth)
	}
	return c
}

// Start launches the frame production loop.
func (c *Camera) Start() {
	c.wg.Add(1)
	go c.loop()
	c.logger.WithFields(logger.Fields{
		"width":  c.cfg.Width,
		"height": c.cfg.Height,
		"fps":    c.cfg.FPS,
		"format": c.cfg.Format,
	}).Info("Camera source started")
}

// Stop halts production and waits for the loop to exit. Frames already
// handed off stay valid until the pipeline releases them.
func (c *Camera) Stop() {
	c.cancel()
	c.wg.Wait()
	c.logger.WithField("frames", c.seq.Load()).Info("Camera source stopped")
}

// Produced returns the number of frames emitted so far.
func (c *Camera) Produced() uint64 {
	return c.seq.Load()
}

func (c *Camera) loop() {
	defer c.wg.Done()
	for {
		if err := c.limiter.Wait(c.ctx); err != nil {
			return
		}
		c.handler(c.nextFrame())
	}
}

// nextFrame builds one synthetic frame: a moving luma gradient over
// neutral chroma, so consecutive frames differ and conversions have
// non-trivial input.
func (c *Camera) nextFrame() *pixel.Frame {
	n := c.seq.Add(1)
	f := &pixel.Frame{
		ID:     uuid.NewString(),
		Width:  c.cfg.Width,
		Height: c.cfg.Height,
		Format: pixel.FormatYUV420,
	}

	switch c.layout {
	case layoutNV21:
		c.fillNV21(f, n)
	case layoutInterleaved:
		c.fillInterleaved(f, n)
	default:
		c.fillPlanar(f, n)
	}
	return f
}

func (c *Camera) fillNV21(f *pixel.Frame, n uint64) {
	w, h := c.cfg.Width, c.cfg.Height
	buf := c.lumaPool.Get()
	imageSize := w * h
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			buf[row*w+col] = byte(uint64(row+col) + n)
		}
	}
	for i := imageSize; i < len(buf); i++ {
		buf[i] = 128
	}

	f.Format = pixel.FormatNV21
	f.Planes = []pixel.Plane{{Bytes: buf, RowStride: w, PixelStride: 1}}
	f.OnRelease(func() { c.lumaPool.Put(buf) })
}

func (c *Camera) fillInterleaved(f *pixel.Frame, n uint64) {
	w, h := c.cfg.Width, c.cfg.Height
	y := c.lumaPool.Get()
	vu := c.chromaPool.Get()

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			y[row*w+col] = byte(uint64(row+col) + n)
		}
	}
	for i := range vu {
		vu[i] = 128
	}

	f.Planes = []pixel.Plane{
		{Bytes: y, RowStride: w, PixelStride: 1},
		// U and V alias the shared VU buffer one byte apart, the NV21
		// interleaving downstream conversion detects and bulk-copies.
		{Bytes: vu[1:], RowStride: w, PixelStride: 2},
		{Bytes: vu[:len(vu)-1], RowStride: w, PixelStride: 2},
	}
	f.OnRelease(func() {
		c.lumaPool.Put(y)
		c.chromaPool.Put(vu)
	})
}

func (c *Camera) fillPlanar(f *pixel.Frame, n uint64) {
	w, h := c.cfg.Width, c.cfg.Height
	cw, ch := (w+1)/2, (h+1)/2
	yStride := w + c.cfg.RowPadding
	cStride := cw + c.cfg.RowPadding

	y := c.lumaPool.Get()
	u := c.chromaPool.Get()
	v := c.chromaPool.Get()

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			y[row*yStride+col] = byte(uint64(row+col) + n)
		}
	}
	for row := 0; row < ch; row++ {
		for col := 0; col < cw; col++ {
			u[row*cStride+col] = 128
			v[row*cStride+col] = 128
		}
	}

	f.Planes = []pixel.Plane{
		{Bytes: y, RowStride: yStride, PixelStride: 1},
		{Bytes: u, RowStride: cStride, PixelStride: 1},
		{Bytes: v, RowStride: cStride, PixelStride: 1},
	}
	f.OnRelease(func() {
		c.lumaPool.Put(y)
		c.chromaPool.Put(u)
		c.chromaPool.Put(v)
	})
}
