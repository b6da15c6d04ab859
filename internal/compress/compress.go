// Package compress detects and decodes compressed JSON inputs.
//
// Gzip, zstd and LZ4 frame streams are recognised by their magic bytes, so
// callers can hand any file to NewReader without knowing how it was stored.
package compress

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Kind identifies a stream encoding.
type Kind uint8

const (
	// None indicates a plain, uncompressed stream.
	None Kind = iota
	// Gzip indicates an RFC 1952 gzip stream.
	Gzip
	// Zstd indicates a zstandard frame.
	Zstd
	// LZ4 indicates an LZ4 frame (not a raw LZ4 block).
	LZ4
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
)

// String returns the conventional name of the encoding.
func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ParseKind is the inverse of Kind.String. The empty string parses as None.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "none":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "zstd", "zst":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	default:
		return None, fmt.Errorf("compress: unknown encoding %q", s)
	}
}

// Detect inspects the leading bytes of a stream.
func Detect(head []byte) Kind {
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return Zstd
	case bytes.HasPrefix(head, lz4Magic):
		return LZ4
	case bytes.HasPrefix(head, gzipMagic):
		return Gzip
	default:
		return None
	}
}

// NewReader returns a reader yielding the decoded content of r along with the
// detected encoding. Closing the returned reader does not close r.
func NewReader(r io.Reader) (io.ReadCloser, Kind, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, None, err
	}

	kind := Detect(head)
	rc, err := Decode(br, kind)
	if err != nil {
		return nil, kind, err
	}
	return rc, kind, nil
}

// Decode wraps r in a decoder for the given encoding.
func Decode(r io.Reader, kind Kind) (io.ReadCloser, error) {
	switch kind {
	case None:
		return io.NopCloser(r), nil
	case Gzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("compress: gzip header: %w", err)
		}
		return zr, nil
	case Zstd:
		zr, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("compress: zstd: %w", err)
		}
		return zr.IOReadCloser(), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	default:
		return nil, fmt.Errorf("compress: unsupported encoding %s", kind)
	}
}
