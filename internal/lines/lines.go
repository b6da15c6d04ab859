// Package lines reads newline-delimited input with a hard per-line bound.
package lines

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// ErrLineTooLong is returned when a line reaches the configured limit.
var ErrLineTooLong = errors.New("lines: line too long")

const readBufferSize = 64 * 1024

// Reader returns one line at a time, without its "\n" or "\r\n" terminator.
type Reader struct {
	br   *bufio.Reader
	max  int
	line int
	acc  []byte
}

// NewReader returns a Reader that rejects lines of max bytes or more.
func NewReader(r io.Reader, max int) *Reader {
	return &Reader{
		br:  bufio.NewReaderSize(r, readBufferSize),
		max: max,
	}
}

// Line returns the 1-based number of the line most recently returned by Next.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next line. The slice is only valid until the next call.
// It returns io.EOF once the input is exhausted and ErrLineTooLong when a
// line's length is at or above the limit; Line then reports the offender.
func (r *Reader) Next() ([]byte, error) {
	r.acc = r.acc[:0]
	for {
		chunk, err := r.br.ReadSlice('\n')
		r.acc = append(r.acc, chunk...)

		// One trailing "\r" may still be stripped, hence max+1.
		if len(r.acc) > r.max+1 {
			r.line++
			r.discardLine(err)
			return nil, ErrLineTooLong
		}

		switch {
		case err == nil:
			return r.finish()
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(r.acc) == 0 {
				return nil, io.EOF
			}
			return r.finish()
		default:
			return nil, err
		}
	}
}

func (r *Reader) finish() ([]byte, error) {
	r.line++
	line := bytes.TrimSuffix(r.acc, []byte{'\n'})
	line = bytes.TrimSuffix(line, []byte{'\r'})
	if len(line) >= r.max {
		return nil, ErrLineTooLong
	}
	return line, nil
}

// discardLine skips the rest of an oversized line so Line stays accurate
// should the caller choose to continue.
func (r *Reader) discardLine(err error) {
	for errors.Is(err, bufio.ErrBufferFull) {
		_, err = r.br.ReadSlice('\n')
	}
}
