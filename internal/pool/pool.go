// Package pool provides reusable scratch buffers for the hashing hot path
// of the apply engine and proof generator, adapted from the teacher's
// BigIntPool/ByteSlicePool (sync.Pool wrappers sized for a fixed-width
// value) to the 32-byte hash buffers this tree hashes constantly.
package pool

import "sync"

// HashBufferPool pools reusable 32-byte buffers, avoiding an allocation
// per node hash computed during apply and proof generation.
type HashBufferPool struct {
	pool sync.Pool
}

// NewHashBufferPool creates a new HashBufferPool.
func NewHashBufferPool() *HashBufferPool {
	return &HashBufferPool{
		pool: sync.Pool{
			New: func() interface{} {
				return new([32]byte)
			},
		},
	}
}

// Get retrieves a zeroed 32-byte buffer from the pool.
func (p *HashBufferPool) Get() *[32]byte {
	buf := p.pool.Get().(*[32]byte)
	*buf = [32]byte{}
	return buf
}

// Put returns buf to the pool.
func (p *HashBufferPool) Put(buf *[32]byte) {
	if buf != nil {
		p.pool.Put(buf)
	}
}

// GlobalHashBufferPool is shared across callers that don't need an
// isolated pool of their own.
var GlobalHashBufferPool = NewHashBufferPool()
