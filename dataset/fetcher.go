package dataset

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hupe1980/jsonload/blobstore"
	"github.com/hupe1980/jsonload/internal/compress"
	"github.com/hupe1980/jsonload/internal/fs"
	"github.com/hupe1980/jsonload/resource"
	"golang.org/x/sync/errgroup"
)

// Fetcher materializes datasets under a local root directory.
// It is safe for concurrent use on datasets with distinct paths.
type Fetcher struct {
	store  blobstore.BlobStore
	root   string
	fs     fs.FileSystem
	rc     *resource.Controller
	logger *slog.Logger
}

// Option defines a configuration option for the Fetcher.
type Option func(*Fetcher)

// WithLogger sets the logger for the fetcher.
func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithFileSystem sets the file system datasets are written to.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(f *Fetcher) {
		f.fs = fsys
	}
}

// WithResourceController bounds concurrent downloads by the controller's
// background slots and throttles them by its IO limit.
func WithResourceController(rc *resource.Controller) Option {
	return func(f *Fetcher) {
		f.rc = rc
	}
}

// NewFetcher creates a Fetcher that downloads from store into root.
func NewFetcher(store blobstore.BlobStore, root string, opts ...Option) *Fetcher {
	f := &Fetcher{
		store: store,
		root:  root,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.fs == nil {
		f.fs = fs.Default
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	return f
}

// Path returns the local path of ds.
func (f *Fetcher) Path(ds Dataset) string {
	return filepath.Join(f.root, filepath.FromSlash(ds.Path))
}

// Ensure returns the verified local file of ds, downloading it if the file
// is missing or its checksum does not match.
func (f *Fetcher) Ensure(ctx context.Context, ds Dataset) (File, error) {
	if err := ds.Validate(); err != nil {
		return File{}, err
	}
	path := f.Path(ds)

	sum, size, err := f.checksumFile(path)
	switch {
	case err == nil && sameChecksum(sum, ds.Checksum):
		f.logger.DebugContext(ctx, "dataset verified", "dataset", ds.Name, "path", path)
		return File{Dataset: ds, Path: path, Size: size}, nil
	case err == nil:
		f.logger.WarnContext(ctx, "dataset checksum mismatch, downloading",
			"dataset", ds.Name,
			"expected", ds.Checksum,
			"actual", sum,
		)
	case errors.Is(err, os.ErrNotExist):
		f.logger.InfoContext(ctx, "dataset missing, downloading", "dataset", ds.Name, "source", ds.Source)
	default:
		return File{}, fmt.Errorf("dataset %s: check %s: %w", ds.Name, path, err)
	}

	if err := f.rc.AcquireBackground(ctx); err != nil {
		return File{}, err
	}
	defer f.rc.ReleaseBackground()

	size, err = f.download(ctx, ds, path)
	if err != nil {
		return File{}, err
	}
	f.logger.InfoContext(ctx, "dataset downloaded", "dataset", ds.Name, "path", path, "bytes", size)
	return File{Dataset: ds, Path: path, Size: size, Downloaded: true}, nil
}

// EnsureAll ensures every dataset concurrently, bounded by the resource
// controller's background slots. It fails on the first error.
func (f *Fetcher) EnsureAll(ctx context.Context, datasets []Dataset) ([]File, error) {
	paths := make(map[string]string, len(datasets))
	for _, ds := range datasets {
		p := f.Path(ds)
		if other, ok := paths[p]; ok {
			return nil, fmt.Errorf("%w: %s and %s share path %s", ErrInvalidDataset, other, ds.Name, p)
		}
		paths[p] = ds.Name
	}

	files := make([]File, len(datasets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.rc.MaxBackgroundWorkers())
	for i, ds := range datasets {
		g.Go(func() error {
			file, err := f.Ensure(gctx, ds)
			if err != nil {
				return err
			}
			files[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// download fetches the blob next to path, decodes it into a temporary file
// and renames that into place once its checksum is verified.
func (f *Fetcher) download(ctx context.Context, ds Dataset, path string) (int64, error) {
	if err := f.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("dataset %s: %w", ds.Name, err)
	}

	blobPath := path + ".blob"
	tmpPath := path + ".tmp"
	defer func() { _ = f.fs.Remove(blobPath) }()

	srcSum, err := f.fetchBlob(ctx, ds.Source, blobPath)
	if err != nil {
		return 0, fmt.Errorf("dataset %s: fetch %s: %w", ds.Name, ds.Source, err)
	}
	if ds.SourceChecksum != "" && !sameChecksum(srcSum, ds.SourceChecksum) {
		return 0, &ChecksumMismatchError{Name: ds.Source, Expected: ds.SourceChecksum, Actual: srcSum}
	}

	sum, size, err := f.decode(ctx, ds, blobPath, tmpPath)
	if err != nil {
		_ = f.fs.Remove(tmpPath)
		return 0, fmt.Errorf("dataset %s: decode %s: %w", ds.Name, ds.Source, err)
	}
	if !sameChecksum(sum, ds.Checksum) {
		_ = f.fs.Remove(tmpPath)
		return 0, &ChecksumMismatchError{Name: ds.Name, Expected: ds.Checksum, Actual: sum}
	}

	if err := f.fs.Rename(tmpPath, path); err != nil {
		_ = f.fs.Remove(tmpPath)
		return 0, fmt.Errorf("dataset %s: %w", ds.Name, err)
	}
	return size, nil
}

// fetchBlob copies the named blob to dst and returns its checksum.
func (f *Fetcher) fetchBlob(ctx context.Context, name, dst string) (sum string, err error) {
	out, err := f.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0o644)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	h := sha256.New()
	if d, ok := f.store.(blobstore.Downloader); ok && !f.rc.IOLimited() {
		n, err := d.Download(ctx, name, out)
		if err != nil {
			return "", err
		}
		if _, err := io.Copy(h, io.NewSectionReader(out, 0, n)); err != nil {
			return "", err
		}
	} else {
		blob, err := f.store.Open(ctx, name)
		if err != nil {
			return "", err
		}
		defer func() { _ = blob.Close() }()

		rc, err := blobstore.NewReader(ctx, blob)
		if err != nil {
			return "", err
		}
		defer func() { _ = rc.Close() }()

		r := resource.NewRateLimitedReader(ctx, rc, f.rc)
		if _, err := io.Copy(io.MultiWriter(out, h), r); err != nil {
			return "", err
		}
	}

	if err := out.Sync(); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// decode writes the decoded content of src to dst and returns its checksum
// and size.
func (f *Fetcher) decode(ctx context.Context, ds Dataset, src, dst string) (sum string, size int64, err error) {
	in, err := f.fs.Open(src)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = in.Close() }()

	var dec io.ReadCloser
	if ds.Encoding == "" {
		var kind compress.Kind
		dec, kind, err = compress.NewReader(in)
		if err == nil && kind != compress.None {
			f.logger.DebugContext(ctx, "decoding dataset", "dataset", ds.Name, "encoding", kind.String())
		}
	} else {
		var kind compress.Kind
		if kind, err = compress.ParseKind(ds.Encoding); err == nil {
			dec, err = compress.Decode(in, kind)
		}
	}
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = dec.Close() }()

	out, err := f.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	h := sha256.New()
	size, err = io.Copy(io.MultiWriter(out, h), &ctxReader{ctx: ctx, r: dec})
	if err != nil {
		return "", 0, err
	}
	if err := out.Sync(); err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), size, nil
}

// checksumFile hashes the file at path.
func (f *Fetcher) checksumFile(path string) (string, int64, error) {
	in, err := f.fs.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = in.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, in)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

func sameChecksum(a, b string) bool {
	return strings.EqualFold(a, b)
}

// ctxReader stops a copy once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
