package jsonload

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/hupe1980/jsonload/internal/shared"
)

// Record is a view of one JSON document inside a loaded buffer.
//
// Bytes returns the padded range a scanner may read in 64-byte chunks;
// Content returns the document text alone. A Record is safe for concurrent
// reads. Release may be called from any goroutine.
type Record struct {
	buf        *shared.Buffer
	offset     int
	length     int
	contentLen int
	line       int
	owner      bool
	released   atomic.Bool
}

// Offset returns the start of the record within Buffer.
func (r *Record) Offset() int { return r.offset }

// Len returns the padded length of the record.
//
// For a single document this is the file size plus MaxPad+1; for a corpus
// record it is a positive multiple of Alignment.
func (r *Record) Len() int { return r.length }

// ContentLen returns the length of the document text without padding.
func (r *Record) ContentLen() int { return r.contentLen }

// Line returns the 1-based input line of a corpus record, or 0 for a single
// document.
func (r *Record) Line() int { return r.line }

// Owner reports whether this record is the designated owner of the buffer.
func (r *Record) Owner() bool { return r.owner }

// Released reports whether Release has been called on this record.
func (r *Record) Released() bool { return r.released.Load() }

// Buffer returns the entire backing buffer, shared with every other record
// of the same set. It returns nil once the record is released.
func (r *Record) Buffer() []byte {
	if r.released.Load() {
		return nil
	}
	return r.buf.Bytes()
}

// Bytes returns Buffer()[Offset():Offset()+Len()], or nil once released.
func (r *Record) Bytes() []byte {
	b := r.Buffer()
	if b == nil {
		return nil
	}
	end := r.offset + r.length
	return b[r.offset:end:end]
}

// Content returns the document text without padding, or nil once released.
func (r *Record) Content() []byte {
	b := r.Buffer()
	if b == nil {
		return nil
	}
	end := r.offset + r.contentLen
	return b[r.offset:end:end]
}

// Retain returns an additional non-owning view of the same range. The buffer
// stays alive until the returned record is released as well. It fails with
// ErrReleased if r has been released.
func (r *Record) Retain() (*Record, error) {
	if r.released.Load() {
		return nil, ErrReleased
	}
	if err := r.buf.Retain(); err != nil {
		return nil, translateError(err)
	}
	return &Record{
		buf:        r.buf,
		offset:     r.offset,
		length:     r.length,
		contentLen: r.contentLen,
		line:       r.line,
	}, nil
}

// Release drops the record's hold on the buffer. The buffer is freed when
// the last record viewing it is released. Calling Release twice is a no-op.
// If freeing the buffer fails the record stays live and Release may be
// retried.
func (r *Record) Release() error {
	if r.released.Swap(true) {
		return nil
	}
	if _, err := r.buf.Release(); err != nil {
		// The buffer is still held by this record.
		r.released.Store(false)
		return translateError(err)
	}
	return nil
}

// RecordSet is the ordered result of a corpus load. Every record views the
// same aligned buffer, contiguously and in input order.
type RecordSet struct {
	records []*Record
	buf     *shared.Buffer
	skipped *roaring64.Bitmap
}

func newRecordSet(records []*Record, buf *shared.Buffer, skipped *roaring64.Bitmap) *RecordSet {
	if skipped == nil {
		skipped = roaring64.New()
	}
	return &RecordSet{records: records, buf: buf, skipped: skipped}
}

// Len returns the number of records.
func (s *RecordSet) Len() int { return len(s.records) }

// At returns the i-th record.
func (s *RecordSet) At(i int) *Record { return s.records[i] }

// Records returns the records in input order.
func (s *RecordSet) Records() []*Record { return slices.Clone(s.records) }

// All iterates over the records with their index.
func (s *RecordSet) All() iter.Seq2[int, *Record] {
	return func(yield func(int, *Record) bool) {
		for i, r := range s.records {
			if !yield(i, r) {
				return
			}
		}
	}
}

// Buffer returns the shared buffer, or nil for an empty or freed set.
func (s *RecordSet) Buffer() []byte {
	if s.buf == nil {
		return nil
	}
	return s.buf.Bytes()
}

// Size returns the size of the shared buffer in bytes.
func (s *RecordSet) Size() int {
	if s.buf == nil {
		return 0
	}
	return s.buf.Len()
}

// Skipped returns the input line numbers that were discarded as noise.
// The bitmap must not be modified.
func (s *RecordSet) Skipped() *roaring64.Bitmap { return s.skipped }

// Owner returns the record that owns the buffer, or nil for an empty set.
func (s *RecordSet) Owner() *Record {
	if len(s.records) == 0 {
		return nil
	}
	return s.records[len(s.records)-1]
}

// Release releases every record of the set. It is idempotent.
func (s *RecordSet) Release() error {
	var errs []error
	for _, r := range s.records {
		if err := r.Release(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Scanner is implemented by downstream query engines that consume records.
//
// A scanner may read 64-byte chunks starting at any 64-byte aligned offset
// inside rec.Bytes(), and up to MaxPad bytes past any position inside a
// single document.
type Scanner interface {
	Scan(ctx context.Context, query string, rec *Record) (string, error)
}

// Scan runs sc with query over every record in input order and returns the
// results by index. It stops at the first scanner error or when ctx is done.
func (s *RecordSet) Scan(ctx context.Context, sc Scanner, query string) ([]string, error) {
	results := make([]string, 0, len(s.records))
	for i, rec := range s.records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rec.Released() {
			return nil, fmt.Errorf("scan record %d: %w", i, ErrReleased)
		}
		res, err := sc.Scan(ctx, query, rec)
		if err != nil {
			return nil, fmt.Errorf("scan record %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}
