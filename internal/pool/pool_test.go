package pool

import "testing"

func TestHashBufferPoolGetIsZeroed(t *testing.T) {
	p := NewHashBufferPool()
	buf := p.Get()
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("expected a freshly-gotten buffer to be zeroed, byte %d = %d", i, b)
		}
	}
}

func TestHashBufferPoolReuseIsZeroedAgain(t *testing.T) {
	p := NewHashBufferPool()
	buf := p.Get()
	buf[0] = 0xFF
	buf[31] = 0xAA
	p.Put(buf)

	buf2 := p.Get()
	for i, b := range buf2 {
		if b != 0 {
			t.Fatalf("expected a reused buffer handed back out to be re-zeroed, byte %d = %d", i, b)
		}
	}
}

func TestHashBufferPoolPutNilIsSafe(t *testing.T) {
	p := NewHashBufferPool()
	p.Put(nil)
}
