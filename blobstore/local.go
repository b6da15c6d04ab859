package blobstore

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hupe1980/jsonload/internal/mmap"
)

// LocalStore implements BlobStore using the local file system.
type LocalStore struct {
	root string
}

// NewLocalStore creates a new LocalStore rooted at the given directory.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Open opens a blob for reading.
func (s *LocalStore) Open(_ context.Context, name string) (Blob, error) {
	path := filepath.Join(s.root, filepath.FromSlash(name))
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	return &localBlob{m: m}, nil
}

// List returns all blob names (slash separated, relative to the root) with the given prefix.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	var names []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

type localBlob struct {
	m *mmap.Mapping
}

func (b *localBlob) ReadAt(_ context.Context, p []byte, off int64) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}
	return b.m.ReadAt(p, off)
}

func (b *localBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	size := int64(b.m.Size())
	if off < 0 || off > size {
		return nil, io.EOF
	}
	end := min(off+length, size)
	r, err := b.m.Region(int(off), int(end-off))
	if err != nil {
		return nil, err
	}
	// Ranges are streamed front to back.
	_ = r.Advise(mmap.AccessSequential)
	return io.NopCloser(bytes.NewReader(r.Bytes())), nil
}

func (b *localBlob) Close() error {
	return b.m.Close()
}

func (b *localBlob) Size() int64 {
	return int64(b.m.Size())
}

func (b *localBlob) Bytes() ([]byte, error) {
	if b.m.Closed() {
		return nil, mmap.ErrClosed
	}
	return b.m.Bytes(), nil
}
