package source

// bufferPool recycles fixed-size plane buffers between the camera and
// the pipeline. Frames returned via Release put their buffers back;
// when the free list is full the buffer is dropped and the GC reclaims
// it.
type bufferPool struct {
	size     int
	freeList chan []byte
}

func newBufferPool(size, depth int) *bufferPool {
	p := &bufferPool{
		size:     size,
		freeList: make(chan []byte, depth),
	}
	// Pre-allocate half the depth so startup does not thrash the
	// allocator.
	for i := 0; i < depth/2; i++ {
		p.freeList <- make([]byte, size)
	}
	return p
}

// Get returns a buffer of the pool's size, recycled when one is free.
// Contents are unspecified; the caller overwrites every byte.
func (p *bufferPool) Get() []byte {
	select {
	case b := <-p.freeList:
		return b
	default:
		return make([]byte, p.size)
	}
}

// Put returns a buffer to the pool. Buffers of the wrong size are
// discarded.
func (p *bufferPool) Put(b []byte) {
	if len(b) != p.size {
		return
	}
	select {
	case p.freeList <- b:
	default:
	}
}

// Free returns the number of buffers currently idle in the pool.
func (p *bufferPool) Free() int {
	return len(p.freeList)
}
