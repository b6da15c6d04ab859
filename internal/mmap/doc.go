// Package mmap provides memory-mapped file access for zero-copy loading.
//
// # Overview
//
// Memory mapping exposes file contents without copying them through kernel
// buffers. Loaded JSON documents are scanned in fixed 64-byte strides, so a
// mapping can carry an explicit over-read margin: OpenPadded reserves a
// zero-filled anonymous region first and maps the file over its head, which
// makes the bytes past end-of-file addressable regardless of page rounding.
//
// # Usage
//
//	m, err := mmap.OpenPadded(f, 65)
//	if err != nil { ... }
//	defer m.Close()
//
//	content := m.Bytes()  // file content only
//	padded := m.Padded()  // content followed by 65 zero bytes
//
//	m.Advise(mmap.AccessSequential)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with MAP_FIXED overlay and madvise(2)
//   - Windows: the file is copied into a VirtualAlloc region (madvise is a no-op)
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent read access. Close is idempotent
// and protected by atomic operations. Callers must ensure no goroutine
// touches Bytes after Close returns.
//
// # Anonymous Mappings
//
// MapAnon creates read-write anonymous mappings for off-heap buffers.
package mmap
