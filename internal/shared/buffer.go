package shared

import (
	"errors"
	"sync/atomic"
)

// ErrReleased is returned when dropping a reference from a buffer that has
// already been freed.
var ErrReleased = errors.New("shared: buffer already released")

// Buffer is a reference-counted byte region.
type Buffer struct {
	data    []byte
	refs    atomic.Int64
	freed   atomic.Bool
	release func() error
}

// New returns a buffer over data holding refs references.
// release may be nil for heap memory that the garbage collector reclaims.
func New(data []byte, refs int, release func() error) *Buffer {
	if refs < 1 {
		refs = 1
	}
	b := &Buffer{data: data, release: release}
	b.refs.Store(int64(refs))
	return b
}

// Bytes returns the region, or nil once the buffer has been freed.
func (b *Buffer) Bytes() []byte {
	if b.freed.Load() {
		return nil
	}
	return b.data
}

// Len returns the size of the region in bytes.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Refs returns the number of outstanding references.
func (b *Buffer) Refs() int64 {
	return b.refs.Load()
}

// Freed reports whether the release function has run.
func (b *Buffer) Freed() bool {
	return b.freed.Load()
}

// Retain adds a reference. It fails if the buffer has already been freed.
func (b *Buffer) Retain() error {
	for {
		n := b.refs.Load()
		if n <= 0 {
			return ErrReleased
		}
		if b.refs.CompareAndSwap(n, n+1) {
			return nil
		}
	}
}

// Release drops one reference. It reports whether this call freed the
// buffer. If the release function fails, the last reference is kept and the
// error returned, so Release may be called again.
func (b *Buffer) Release() (bool, error) {
	n := b.refs.Add(-1)
	switch {
	case n > 0:
		return false, nil
	case n < 0:
		b.refs.Add(1)
		return false, ErrReleased
	}

	b.freed.Store(true)
	if b.release != nil {
		if err := b.release(); err != nil {
			// The memory is still held; restore the last reference so the
			// caller can retry.
			b.freed.Store(false)
			b.refs.Add(1)
			return false, err
		}
	}
	return true, nil
}
