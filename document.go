package jsonload

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/jsonload/internal/mmap"
	"github.com/hupe1980/jsonload/internal/shared"
)

// LoadDocument memory-maps the file at path as a single record.
//
// The record starts at offset 0, its Len is the file size plus MaxPad+1, and
// every byte of that range is readable; the bytes past the content read as
// zero. The record owns the mapping. The file descriptor is closed before
// LoadDocument returns.
func (l *Loader) LoadDocument(ctx context.Context, path string) (rec *Record, err error) {
	start := time.Now()
	size := 0
	defer func() {
		l.metrics.RecordLoadDocument(size, time.Since(start), err)
		l.logger.LogLoadDocument(ctx, path, size, err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", translateError(err))
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat document: %w", translateError(err))
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("open document %s: is a directory", path)
	}
	size = int(fi.Size())

	total := size + MaxPad + 1
	if err := l.controller.AcquireMemory(int64(total)); err != nil {
		return nil, fmt.Errorf("load document %s: %w", path, err)
	}

	m, err := mmap.OpenPadded(f, MaxPad+1)
	if err != nil {
		l.controller.ReleaseMemory(int64(total))
		return nil, fmt.Errorf("map document %s: %w", path, err)
	}
	if err := m.Advise(mmap.AccessSequential); err != nil {
		l.logger.DebugContext(ctx, "madvise failed", "path", path, "error", err)
	}

	data := m.Padded()
	return &Record{
		buf:        shared.New(data, 1, l.releaseFunc(len(data), m.Close)),
		offset:     0,
		length:     len(data),
		contentLen: m.Size(),
		owner:      true,
	}, nil
}
