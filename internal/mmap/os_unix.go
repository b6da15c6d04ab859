//go:build unix

package mmap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// osMapPadded reserves a zero-filled anonymous region large enough for
// size+pad bytes (rounded up to whole pages, all of which are returned) and maps the file over its head
// with MAP_FIXED. Everything past end-of-file stays readable: the tail of the
// last file page reads as zeros and the remaining pages belong to the
// anonymous reservation.
func osMapPadded(f File, size, pad int) ([]byte, func([]byte) error, error) {
	pageSize := os.Getpagesize()
	total := size + pad
	reserved := (total + pageSize - 1) &^ (pageSize - 1)

	region, err := unix.Mmap(-1, 0, reserved, unix.PROT_READ, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}

	if size > 0 {
		// The overlay covers ceil(size/page) pages, which never exceeds the
		// reservation because reserved >= size.
		_, err = unix.MmapPtr(int(f.Fd()), 0, unsafe.Pointer(&region[0]), uintptr(size),
			unix.PROT_READ, unix.MAP_PRIVATE|unix.MAP_FIXED)
		if err != nil {
			_ = unix.Munmap(region)
			return nil, nil, err
		}
	}

	// Munmap rejects slices whose length differs from the mapped length, so
	// the whole reservation is returned; Mapping slices the padded view.
	return region, unix.Munmap, nil
}

func osMapAnon(size int) ([]byte, func([]byte) error, error) {
	prot := unix.PROT_READ | unix.PROT_WRITE
	flags := unix.MAP_ANON | unix.MAP_PRIVATE

	data, err := unix.Mmap(-1, 0, size, prot, flags)
	if err != nil {
		return nil, nil, err
	}

	return data, unix.Munmap, nil
}

func osAdvise(data []byte, pattern AccessPattern) error {
	if len(data) == 0 {
		return nil
	}

	var advice int
	switch pattern {
	case AccessSequential:
		advice = unix.MADV_SEQUENTIAL
	case AccessRandom:
		advice = unix.MADV_RANDOM
	case AccessWillNeed:
		advice = unix.MADV_WILLNEED
	case AccessDontNeed:
		advice = unix.MADV_DONTNEED
	default:
		advice = unix.MADV_NORMAL
	}

	// madvise requires page-aligned addresses; regions inside a mapping
	// usually are not. The hint is advisory, so EINVAL is ignored.
	err := unix.Madvise(data, advice)
	if err == unix.EINVAL {
		return nil
	}
	return err
}
