package dataset

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/hupe1980/jsonload/blobstore"
	"github.com/hupe1980/jsonload/internal/fs"
	"github.com/hupe1980/jsonload/resource"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func zstded(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

// downloadingStore adds blobstore.Downloader to a MemoryStore.
type downloadingStore struct {
	*blobstore.MemoryStore
	downloads atomic.Int64
}

func (s *downloadingStore) Download(ctx context.Context, name string, w io.WriterAt) (int64, error) {
	s.downloads.Add(1)
	blob, err := s.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer blob.Close()
	buf := make([]byte, blob.Size())
	if _, err := blob.ReadAt(ctx, buf, 0); err != nil && !errors.Is(err, io.EOF) {
		return 0, err
	}
	n, err := w.WriteAt(buf, 0)
	return int64(n), err
}

var twitter = []byte(`{"statuses":[{"id":1,"text":"hello"}],"search_metadata":{"count":1}}`)

func TestFetcher_Ensure(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "twitter.json.gz", gzipped(t, twitter)))

	root := t.TempDir()
	f := NewFetcher(store, root)
	ds := Dataset{
		Name:     "twitter",
		Path:     "twitter/twitter.json",
		Source:   "twitter.json.gz",
		Checksum: sha(twitter),
	}

	file, err := f.Ensure(ctx, ds)
	require.NoError(t, err)
	assert.True(t, file.Downloaded)
	assert.Equal(t, filepath.Join(root, "twitter", "twitter.json"), file.Path)
	assert.Equal(t, int64(len(twitter)), file.Size)

	data, err := os.ReadFile(file.Path)
	require.NoError(t, err)
	assert.Equal(t, twitter, data)

	// Only the verified file remains.
	entries, err := os.ReadDir(filepath.Join(root, "twitter"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// A verified file is reused.
	file, err = f.Ensure(ctx, ds)
	require.NoError(t, err)
	assert.False(t, file.Downloaded)

	// A corrupted file is replaced.
	require.NoError(t, os.WriteFile(file.Path, []byte(`{"corrupt":true}`), 0o644))
	file, err = f.Ensure(ctx, ds)
	require.NoError(t, err)
	assert.True(t, file.Downloaded)
	data, err = os.ReadFile(file.Path)
	require.NoError(t, err)
	assert.Equal(t, twitter, data)
}

func TestFetcher_Encodings(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(ctx, "plain.json", twitter))
	require.NoError(t, store.Put(ctx, "doc.json.zst", zstded(t, twitter)))
	require.NoError(t, store.Put(ctx, "doc.json.gz", gzipped(t, twitter)))

	tests := []struct {
		name     string
		source   string
		encoding string
	}{
		{"Plain", "plain.json", ""},
		{"PlainExplicit", "plain.json", "none"},
		{"ZstdDetected", "doc.json.zst", ""},
		{"GzipExplicit", "doc.json.gz", "gzip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(store, t.TempDir())
			file, err := f.Ensure(ctx, Dataset{
				Name:     tt.name,
				Path:     "doc.json",
				Source:   tt.source,
				Checksum: sha(twitter),
				Encoding: tt.encoding,
			})
			require.NoError(t, err)
			data, err := os.ReadFile(file.Path)
			require.NoError(t, err)
			assert.Equal(t, twitter, data)
		})
	}
}

func TestFetcher_ChecksumMismatch(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	blob := gzipped(t, twitter)
	require.NoError(t, store.Put(ctx, "twitter.json.gz", blob))
	wrong := strings.Repeat("ab", 32)

	t.Run("Content", func(t *testing.T) {
		root := t.TempDir()
		f := NewFetcher(store, root)
		_, err := f.Ensure(ctx, Dataset{Name: "twitter", Path: "twitter.json", Source: "twitter.json.gz", Checksum: wrong})

		var mismatch *ChecksumMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "twitter", mismatch.Name)
		assert.Equal(t, wrong, mismatch.Expected)
		assert.Equal(t, sha(twitter), mismatch.Actual)

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries, "no partial files are left behind")
	})

	t.Run("Source", func(t *testing.T) {
		f := NewFetcher(store, t.TempDir())
		_, err := f.Ensure(ctx, Dataset{
			Name:           "twitter",
			Path:           "twitter.json",
			Source:         "twitter.json.gz",
			Checksum:       sha(twitter),
			SourceChecksum: wrong,
		})

		var mismatch *ChecksumMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "twitter.json.gz", mismatch.Name)
		assert.Equal(t, sha(blob), mismatch.Actual)
	})

	t.Run("SourceMatches", func(t *testing.T) {
		f := NewFetcher(store, t.TempDir())
		_, err := f.Ensure(ctx, Dataset{
			Name:           "twitter",
			Path:           "twitter.json",
			Source:         "twitter.json.gz",
			Checksum:       strings.ToUpper(sha(twitter)),
			SourceChecksum: sha(blob),
		})
		assert.NoError(t, err)
	})
}

func TestFetcher_Errors(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	t.Run("MissingBlob", func(t *testing.T) {
		f := NewFetcher(store, t.TempDir())
		_, err := f.Ensure(ctx, Dataset{Name: "x", Path: "x.json", Source: "missing.json", Checksum: sha(nil)})
		assert.ErrorIs(t, err, blobstore.ErrNotFound)
	})

	t.Run("InvalidDataset", func(t *testing.T) {
		f := NewFetcher(store, t.TempDir())
		_, err := f.Ensure(ctx, Dataset{Name: "x", Path: "/abs.json", Source: "a", Checksum: sha(nil)})
		assert.ErrorIs(t, err, ErrInvalidDataset)
	})

	t.Run("RenameFault", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "doc.json", twitter))
		ffs := &renameFailFS{FileSystem: fs.Default}
		root := t.TempDir()
		f := NewFetcher(store, root, WithFileSystem(ffs))

		_, err := f.Ensure(ctx, Dataset{Name: "doc", Path: "doc.json", Source: "doc.json", Checksum: sha(twitter)})
		assert.ErrorIs(t, err, errRename)

		entries, err := os.ReadDir(root)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("ReadFault", func(t *testing.T) {
		injected := errors.New("read fault")
		ffs := fs.NewFaultyFS(nil)
		ffs.AddRule(".blob", fs.Fault{FailAfterBytes: -1, FailAfterReadBytes: 0, Err: injected})
		require.NoError(t, store.Put(ctx, "doc.json", twitter))

		f := NewFetcher(store, t.TempDir(), WithFileSystem(ffs))
		_, err := f.Ensure(ctx, Dataset{Name: "doc", Path: "doc.json", Source: "doc.json", Checksum: sha(twitter)})
		assert.ErrorIs(t, err, injected)
	})
}

var errRename = errors.New("rename refused")

type renameFailFS struct {
	fs.FileSystem
}

func (renameFailFS) Rename(string, string) error { return errRename }

func TestFetcher_Downloader(t *testing.T) {
	ctx := context.Background()
	store := &downloadingStore{MemoryStore: blobstore.NewMemoryStore()}
	require.NoError(t, store.Put(ctx, "doc.json.gz", gzipped(t, twitter)))
	ds := Dataset{Name: "doc", Path: "doc.json", Source: "doc.json.gz", Checksum: sha(twitter)}

	f := NewFetcher(store, t.TempDir())
	_, err := f.Ensure(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, int64(1), store.downloads.Load())

	// With an IO limit the rate-limited streaming path is used instead.
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	f = NewFetcher(store, t.TempDir(), WithResourceController(rc))
	_, err = f.Ensure(ctx, ds)
	require.NoError(t, err)
	assert.Equal(t, int64(1), store.downloads.Load())
}

func TestFetcher_EnsureAll(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	var datasets []Dataset
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		content := []byte(strings.Repeat(`{"name":"`+name+`"}`+"\n", 10))
		require.NoError(t, store.Put(ctx, name+".jsonl.zst", zstded(t, content)))
		datasets = append(datasets, Dataset{
			Name:     name,
			Path:     filepath.Join("corpora", name+".jsonl"),
			Source:   name + ".jsonl.zst",
			Checksum: sha(content),
			Corpus:   true,
		})
	}

	rc := resource.NewController(resource.Config{MaxBackgroundWorkers: 2})
	f := NewFetcher(store, t.TempDir(), WithResourceController(rc))

	files, err := f.EnsureAll(ctx, datasets)
	require.NoError(t, err)
	require.Len(t, files, len(datasets))
	for i, file := range files {
		assert.Equal(t, datasets[i].Name, file.Dataset.Name)
		assert.True(t, file.Downloaded)
	}

	t.Run("FirstErrorWins", func(t *testing.T) {
		broken := append([]Dataset{}, datasets...)
		broken[2].Checksum = strings.Repeat("00", 32)
		_, err := NewFetcher(store, t.TempDir()).EnsureAll(ctx, broken)
		var mismatch *ChecksumMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})

	t.Run("DuplicatePath", func(t *testing.T) {
		dup := []Dataset{datasets[0], datasets[0]}
		dup[1].Name = "copy"
		_, err := f.EnsureAll(ctx, dup)
		assert.ErrorIs(t, err, ErrInvalidDataset)
	})
}
