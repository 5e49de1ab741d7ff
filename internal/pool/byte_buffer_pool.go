// Package pool provides pooled scratch buffers for data-segment reads.
//
// Event reads repeatedly allocate a raw byte buffer of rows × bytes-per-event
// before decoding into typed columns; pooling those buffers keeps repeated
// slice reads from churning the allocator.
package pool

import "sync"

const (
	// eventBufferDefaultSize is the initial capacity of pooled buffers,
	// sized for a few thousand events of typical 4-byte channels.
	eventBufferDefaultSize = 64 * 1024

	// eventBufferMaxThreshold caps the capacity of buffers returned to the
	// pool; oversized one-off reads are left for the garbage collector.
	eventBufferMaxThreshold = 8 * 1024 * 1024
)

var bufferPool = sync.Pool{
	New: func() any {
		return &buffer{b: make([]byte, 0, eventBufferDefaultSize)}
	},
}

type buffer struct {
	b []byte
}

// GetBuffer returns a byte slice of exactly size bytes and a cleanup
// function that returns the backing buffer to the pool. The slice contents
// are unspecified; callers must fully overwrite it before use. The slice
// must not be retained after cleanup is called.
func GetBuffer(size int) ([]byte, func()) {
	buf, _ := bufferPool.Get().(*buffer)
	if cap(buf.b) < size {
		buf.b = make([]byte, size)
	}
	buf.b = buf.b[:size]

	return buf.b, func() {
		if cap(buf.b) <= eventBufferMaxThreshold {
			buf.b = buf.b[:0]
			bufferPool.Put(buf)
		}
	}
}
