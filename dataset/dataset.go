package dataset

import (
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hupe1980/jsonload/internal/compress"
)

var (
	// ErrUnknownDataset is returned when a catalog has no dataset of that name.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrInvalidDataset is returned for malformed dataset definitions.
	ErrInvalidDataset = errors.New("invalid dataset")
)

// Dataset describes one corpus and where it comes from.
type Dataset struct {
	// Name identifies the dataset in catalogs and logs.
	Name string `yaml:"name"`

	// Path is the local file path, relative to the fetcher root.
	Path string `yaml:"path"`

	// Source is the blob name in the store.
	Source string `yaml:"source"`

	// Checksum is the hex SHA-256 of the decoded file at Path.
	Checksum string `yaml:"checksum"`

	// SourceChecksum is the hex SHA-256 of the blob as stored. Optional.
	SourceChecksum string `yaml:"source_checksum,omitempty"`

	// Encoding of the blob: "none", "gzip", "zstd" or "lz4". Empty means
	// detect from the blob's magic bytes.
	Encoding string `yaml:"encoding,omitempty"`

	// Corpus marks JSON Lines datasets, loaded with LoadCorpus rather than
	// LoadDocument.
	Corpus bool `yaml:"corpus,omitempty"`
}

// Validate checks that the definition is usable.
func (d Dataset) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidDataset)
	}
	if d.Path == "" || filepath.IsAbs(d.Path) || strings.HasPrefix(filepath.Clean(d.Path), "..") {
		return fmt.Errorf("%w: %s: path %q must be relative to the dataset root", ErrInvalidDataset, d.Name, d.Path)
	}
	if d.Source == "" {
		return fmt.Errorf("%w: %s: missing source", ErrInvalidDataset, d.Name)
	}
	if err := validateChecksum(d.Checksum); err != nil {
		return fmt.Errorf("%w: %s: checksum: %w", ErrInvalidDataset, d.Name, err)
	}
	if d.SourceChecksum != "" {
		if err := validateChecksum(d.SourceChecksum); err != nil {
			return fmt.Errorf("%w: %s: source checksum: %w", ErrInvalidDataset, d.Name, err)
		}
	}
	if d.Encoding != "" {
		if _, err := compress.ParseKind(d.Encoding); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidDataset, d.Name, err)
		}
	}
	return nil
}

func validateChecksum(s string) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return err
	}
	if len(b) != 32 {
		return fmt.Errorf("want 32 bytes, got %d", len(b))
	}
	return nil
}

// File is a verified local dataset file.
type File struct {
	Dataset Dataset
	Path    string
	Size    int64
	// Downloaded is true if the file was fetched by this call.
	Downloaded bool
}

// ChecksumMismatchError indicates downloaded bytes that do not match the
// expected checksum.
type ChecksumMismatchError struct {
	Name     string
	Expected string
	Actual   string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("dataset %s: checksum mismatch: expected %s, got %s", e.Name, e.Expected, e.Actual)
}
