//go:build windows

package mmap

import (
	"io"
	"unsafe"

	"golang.org/x/sys/windows"
)

// osMapPadded copies the file into a VirtualAlloc region of size+pad bytes.
// Windows cannot overlay a file view onto a reserved range without
// placeholder APIs, so the margin is provided by a private copy instead.
func osMapPadded(f File, size, pad int) ([]byte, func([]byte) error, error) {
	data, unmap, err := osMapAnon(size + pad)
	if err != nil {
		return nil, nil, err
	}
	if size > 0 {
		if _, err := io.ReadFull(io.NewSectionReader(f, 0, int64(size)), data[:size]); err != nil {
			_ = unmap(data)
			return nil, nil, err
		}
	}
	return data, unmap, nil
}

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	// MEM_RESERVE|MEM_COMMIT is demand-paged, like an anonymous mmap on Unix.
	addr, err := windows.VirtualAlloc(0, uintptr(size),
		windows.MEM_RESERVE|windows.MEM_COMMIT, windows.PAGE_READWRITE)
	if err != nil {
		return nil, nil, err
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)

	return data, func([]byte) error {
		return windows.VirtualFree(addr, 0, windows.MEM_RELEASE)
	}, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	// No madvise equivalent; the page cache handles sequential access well.
	_ = data
	_ = pattern
	return nil
}
