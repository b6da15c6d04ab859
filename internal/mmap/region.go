package mmap

// Region represents a subsection of a memory mapping, padding included.
// It does not own the memory; the parent Mapping does.
type Region struct {
	parent *Mapping
	offset int
	size   int
}

// Region creates a new view into the mapping.
// The view may extend into the padding.
func (m *Mapping) Region(offset, size int) (*Region, error) {
	if m.closed.Load() {
		return nil, ErrClosed
	}
	if offset < 0 || size < 0 || offset+size > m.size+m.pad {
		return nil, ErrOutOfBounds
	}
	return &Region{
		parent: m,
		offset: offset,
		size:   size,
	}, nil
}

// Bytes returns the byte slice for this region.
// Warning: The slice is valid only until the parent Mapping is closed.
func (r *Region) Bytes() []byte {
	if r.parent.closed.Load() {
		return nil
	}
	end := r.offset + r.size
	return r.parent.data[r.offset:end:end]
}

// Advise provides hints to the kernel about how this region will be accessed.
func (r *Region) Advise(pattern AccessPattern) error {
	if r.parent.closed.Load() {
		return ErrClosed
	}
	return osAdvise(r.parent.data[r.offset:r.offset+r.size], pattern)
}
