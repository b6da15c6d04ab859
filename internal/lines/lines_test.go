package lines

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r *Reader) []string {
	t.Helper()
	var out []string
	for {
		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, string(line))
	}
}

func TestReader_Lines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single without newline", `{"a":1}`, []string{`{"a":1}`}},
		{"trailing newline", "a\nb\n", []string{"a", "b"}},
		{"crlf", "a\r\nb\r\n", []string{"a", "b"}},
		{"blank lines kept", "a\n\n\nb", []string{"a", "", "", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(strings.NewReader(tt.input), 1024)
			assert.Equal(t, tt.want, readAll(t, r))
		})
	}
}

func TestReader_LineNumbers(t *testing.T) {
	r := NewReader(strings.NewReader("a\nb\nc"), 16)
	for want := 1; want <= 3; want++ {
		_, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, want, r.Line())
	}
	_, err := r.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReader_LimitIsExclusive(t *testing.T) {
	const max = 8

	r := NewReader(strings.NewReader(strings.Repeat("x", max-1)+"\n"), max)
	line, err := r.Next()
	require.NoError(t, err)
	assert.Len(t, line, max-1)

	r = NewReader(strings.NewReader(strings.Repeat("x", max)+"\n"), max)
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrLineTooLong)
	assert.Equal(t, 1, r.Line())

	// "\r" does not count towards the limit.
	r = NewReader(strings.NewReader(strings.Repeat("x", max-1)+"\r\n"), max)
	line, err = r.Next()
	require.NoError(t, err)
	assert.Len(t, line, max-1)
}

func TestReader_LongLinesAcrossBuffer(t *testing.T) {
	long := bytes.Repeat([]byte("y"), 3*readBufferSize+17)
	input := "first\n" + string(long) + "\nlast\n"

	r := NewReader(strings.NewReader(input), len(long)+1)
	assert.Equal(t, []string{"first", string(long), "last"}, readAll(t, r))

	r = NewReader(strings.NewReader(input), readBufferSize)
	_, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	assert.ErrorIs(t, err, ErrLineTooLong)
	assert.Equal(t, 2, r.Line())

	line, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "last", string(line))
	assert.Equal(t, 3, r.Line())
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("disk on fire") }

func TestReader_PropagatesReadErrors(t *testing.T) {
	r := NewReader(failingReader{}, 64)
	_, err := r.Next()
	assert.EqualError(t, err, "disk on fire")
}
