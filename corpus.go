package jsonload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/jsonload/internal/compress"
	"github.com/hupe1980/jsonload/internal/lines"
	"github.com/hupe1980/jsonload/internal/mem"
	"github.com/hupe1980/jsonload/internal/mmap"
	"github.com/hupe1980/jsonload/internal/shared"
)

var padding = bytes.Repeat([]byte{PadByte}, Alignment)

// span locates one kept line inside the corpus text.
type span struct {
	offset     int
	length     int
	contentLen int
	line       int
}

// LoadCorpus loads the JSON Lines file at path.
//
// Each line longer than the noise threshold becomes one record, padded with
// PadByte up to the next multiple of Alignment. All records are placed
// back to back in one aligned buffer; the last record is its owner. A file
// without qualifying lines yields an empty set and a nil error. A line at or
// above the line limit fails the whole load with a *LineTooLongError.
//
// Input compressed with gzip, zstd or LZ4 is decoded transparently.
func (l *Loader) LoadCorpus(ctx context.Context, path string) (*RecordSet, error) {
	start := time.Now()

	f, err := l.fs.Open(path)
	if err != nil {
		err = fmt.Errorf("open corpus: %w", translateError(err))
		l.metrics.RecordLoadCorpus(0, 0, 0, time.Since(start), err)
		l.logger.LogLoadCorpus(ctx, path, 0, 0, 0, err)
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return l.LoadCorpusFrom(ctx, path, f)
}

// LoadCorpusFrom is LoadCorpus over an arbitrary reader. name is used for
// logging and error messages only.
func (l *Loader) LoadCorpusFrom(ctx context.Context, name string, r io.Reader) (set *RecordSet, err error) {
	start := time.Now()
	defer func() {
		var records, skipped, size int
		if set != nil {
			records, skipped, size = set.Len(), int(set.Skipped().GetCardinality()), set.Size()
		}
		l.metrics.RecordLoadCorpus(records, skipped, size, time.Since(start), err)
		l.logger.LogLoadCorpus(ctx, name, records, skipped, size, err)
	}()

	set, err = l.loadCorpus(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("load corpus %s: %w", name, err)
	}
	return set, nil
}

func (l *Loader) loadCorpus(ctx context.Context, r io.Reader) (*RecordSet, error) {
	dec, kind, err := compress.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer func() { _ = dec.Close() }()
	if kind != compress.None {
		l.logger.DebugContext(ctx, "decoding compressed corpus", "encoding", kind.String())
	}

	var (
		lr      = lines.NewReader(dec, l.maxLine)
		skipped = roaring64.New()
		text    []byte
		spans   []span
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		line, err := lr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, lines.ErrLineTooLong) {
			return nil, lineTooLong(lr.Line(), l.maxLine)
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", lr.Line()+1, err)
		}

		if len(line) <= l.minRecord {
			skipped.Add(uint64(lr.Line()))
			continue
		}

		remain := Alignment - len(line)%Alignment
		spans = append(spans, span{
			offset:     len(text),
			length:     len(line) + remain,
			contentLen: len(line),
			line:       lr.Line(),
		})
		text = append(text, line...)
		text = append(text, padding[:remain]...)
	}

	if len(spans) == 0 {
		return newRecordSet(nil, nil, skipped), nil
	}

	buf, err := l.allocCorpus(text, len(spans))
	if err != nil {
		return nil, err
	}

	records := make([]*Record, len(spans))
	for i, sp := range spans {
		records[i] = &Record{
			buf:        buf,
			offset:     sp.offset,
			length:     sp.length,
			contentLen: sp.contentLen,
			line:       sp.line,
			owner:      i == len(spans)-1,
		}
	}
	return newRecordSet(records, buf, skipped), nil
}

// allocCorpus copies text into an aligned buffer held by refs records.
func (l *Loader) allocCorpus(text []byte, refs int) (*shared.Buffer, error) {
	n := len(text)
	if err := l.controller.AcquireMemory(int64(n)); err != nil {
		return nil, err
	}

	if l.offHeap {
		m, err := mmap.MapAnon(n)
		if err != nil {
			l.controller.ReleaseMemory(int64(n))
			return nil, fmt.Errorf("map corpus buffer: %w", err)
		}
		data := m.Bytes()
		copy(data, text)
		return shared.New(data, refs, l.releaseFunc(n, m.Close)), nil
	}

	data := mem.AllocAligned(n)
	copy(data, text)
	return shared.New(data, refs, l.releaseFunc(n, nil)), nil
}
