package buffer

import (
	"github.com/valyala/bytebufferpool"
)

// Pool hands out reusable byte buffers for reading upstream response bodies.
// Manifests are small but fetched on every playlist refresh, and passthrough
// payloads can reach segment size, so pooling keeps allocation churn down on
// the hot serving path.
type Pool struct {
	pool *bytebufferpool.Pool
}

// NewPool creates an empty buffer pool ready for use.
func NewPool() *Pool {
	return &Pool{pool: &bytebufferpool.Pool{}}
}

// Get retrieves a reset buffer from the pool.
func (p *Pool) Get() *bytebufferpool.ByteBuffer {
	buf := p.pool.Get()
	buf.Reset()
	return buf
}

// Put returns a buffer to the pool. The buffer must not be used afterwards.
func (p *Pool) Put(buf *bytebufferpool.ByteBuffer) {
	p.pool.Put(buf)
}
