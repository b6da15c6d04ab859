package mem

import (
	"unsafe"
)

// Alignment is the byte alignment of corpus buffers (one AVX-512 vector, one cache line).
const Alignment = 64

// AllocAligned allocates a byte slice of the given size with 64-byte alignment.
// The returned slice is guaranteed to start at a memory address divisible by 64.
//
// Note: This function allocates slightly more memory than requested to ensure alignment.
// The underlying array is kept alive by the returned slice.
func AllocAligned(size int) []byte {
	if size <= 0 {
		return nil
	}

	// We need enough space to shift the start pointer up to Alignment-1 bytes
	totalSize := size + Alignment
	buf := make([]byte, totalSize)

	ptr := unsafe.Pointer(&buf[0]) //nolint:gosec // unsafe is required for memory alignment
	addr := uintptr(ptr)
	offset := (Alignment - (addr & (Alignment - 1))) & (Alignment - 1)

	return buf[offset : offset+uintptr(size) : offset+uintptr(size)]
}

// IsAligned reports whether b starts at an address divisible by alignment.
// Empty slices are considered aligned.
func IsAligned(b []byte, alignment int) bool {
	if len(b) == 0 {
		return true
	}
	addr := uintptr(unsafe.Pointer(&b[0])) //nolint:gosec // address inspection only
	return addr&uintptr(alignment-1) == 0
}
