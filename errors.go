package jsonload

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/hupe1980/jsonload/internal/lines"
	"github.com/hupe1980/jsonload/internal/shared"
)

var (
	// ErrNotFound is returned when the input file does not exist.
	// Errors wrapping it also satisfy errors.Is(err, fs.ErrNotExist).
	ErrNotFound = errors.New("not found")

	// ErrReleased is returned when a released record or freed buffer is used.
	ErrReleased = errors.New("record released")

	// ErrInvalidOption is returned by New for inconsistent options.
	ErrInvalidOption = errors.New("invalid option")
)

// LineTooLongError indicates a corpus line at or above the configured limit.
// The load is rejected as a whole; no partial RecordSet is returned.
//
// The original underlying error can be accessed via errors.Unwrap.
type LineTooLongError struct {
	Line  int
	Limit int
	cause error
}

func (e *LineTooLongError) Error() string {
	return fmt.Sprintf("line %d: length reaches limit of %d bytes", e.Line, e.Limit)
}

func (e *LineTooLongError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if errors.Is(err, shared.ErrReleased) {
		return fmt.Errorf("%w: %w", ErrReleased, err)
	}

	return err
}

func lineTooLong(line, limit int) error {
	return &LineTooLongError{Line: line, Limit: limit, cause: lines.ErrLineTooLong}
}
