package mmap

import (
	"io"
	"os"
	"sync/atomic"
)

// File is the subset of *os.File needed to map a file.
type File interface {
	io.ReaderAt
	Stat() (os.FileInfo, error)
	Fd() uintptr
}

// Mapping represents a memory-mapped region.
// It owns the underlying byte slice and is responsible for unmapping it.
type Mapping struct {
	data   []byte // at least size+pad bytes; the whole unmappable region
	size   int
	pad    int
	closed atomic.Bool
	// unmap is the platform-specific function to unmap the memory.
	unmap func([]byte) error
}

// Open maps the file at path into memory.
// The file is mapped as read-only and the descriptor is closed before
// returning.
func Open(path string) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return OpenPadded(f, 0)
}

// OpenPadded maps f read-only followed by pad readable zero bytes.
//
// The caller keeps ownership of f; the mapping stays valid after f is closed.
func OpenPadded(f File, pad int) (*Mapping, error) {
	if pad < 0 {
		return nil, ErrInvalidSize
	}

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size := fi.Size()
	if size < 0 || size > int64(maxInt-pad) {
		return nil, ErrInvalidSize
	}
	if size == 0 && pad == 0 {
		return &Mapping{}, nil
	}

	data, unmapFunc, err := osMapPadded(f, int(size), pad)
	if err != nil {
		return nil, err
	}

	return &Mapping{
		data:  data,
		size:  int(size),
		pad:   pad,
		unmap: unmapFunc,
	}, nil
}

// MapAnon creates a zero-filled read-write anonymous mapping of size bytes.
// The region is page aligned.
func MapAnon(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	data, unmapFunc, err := osMapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Mapping{
		data:  data[:size],
		size:  size,
		unmap: unmapFunc,
	}, nil
}

// Close unmaps the memory. It is idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil // Already closed
	}
	if m.unmap != nil && m.data != nil {
		if err := m.unmap(m.data); err != nil {
			// Still mapped; allow another attempt.
			m.closed.Store(false)
			return err
		}
	}
	return nil
}

// Closed reports whether Close has been called.
func (m *Mapping) Closed() bool {
	return m.closed.Load()
}

// Bytes returns the mapped content, excluding the padding.
// Warning: The slice is valid only until Close() is called.
// Accessing the slice after Close() results in undefined behavior (likely a crash).
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() || m.data == nil {
		return nil
	}
	return m.data[:m.size:m.size]
}

// Padded returns the mapped content followed by the zero padding.
// The same validity rules as Bytes apply.
func (m *Mapping) Padded() []byte {
	if m.closed.Load() || m.data == nil {
		return nil
	}
	n := m.size + m.pad
	return m.data[:n:n]
}

// Size returns the size of the mapped content in bytes.
func (m *Mapping) Size() int {
	return m.size
}

// Pad returns the number of readable bytes past the content.
func (m *Mapping) Pad() int {
	return m.pad
}

// Advise provides hints to the kernel about how the memory will be accessed.
func (m *Mapping) Advise(pattern AccessPattern) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.data == nil {
		return nil
	}
	return osAdvise(m.data, pattern)
}

// ReadAt implements io.ReaderAt over the content.
func (m *Mapping) ReadAt(p []byte, off int64) (n int, err error) {
	if m.closed.Load() {
		return 0, ErrClosed
	}
	if off < 0 {
		return 0, ErrInvalidOffset
	}
	if off >= int64(m.size) {
		return 0, io.EOF
	}
	n = copy(p, m.data[off:m.size])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
