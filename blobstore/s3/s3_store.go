package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/hupe1980/jsonload/blobstore"
)

// Client is the subset of the S3 API used by Store. *s3.Client implements it.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// DownloadConfig configures parallel whole-blob downloads.
type DownloadConfig struct {
	// PartSize is the size of each ranged GET.
	// Default: 8MB
	PartSize int64

	// Concurrency is the number of parts fetched in parallel.
	// Default: 5 (matches SDK default)
	Concurrency int
}

// DefaultDownloadConfig returns the download settings used by NewStore.
func DefaultDownloadConfig() DownloadConfig {
	return DownloadConfig{
		PartSize:    8 * 1024 * 1024,
		Concurrency: 5,
	}
}

// Store implements blobstore.BlobStore for S3.
type Store struct {
	client     Client
	bucket     string
	prefix     string
	downloader *manager.Downloader
}

// NewStore creates a new S3 blob store.
// rootPrefix is prepended to all keys (e.g. "datasets/").
func NewStore(client Client, bucket, rootPrefix string) *Store {
	return NewStoreWithConfig(client, bucket, rootPrefix, DefaultDownloadConfig())
}

// NewStoreWithConfig is NewStore with explicit download settings.
func NewStoreWithConfig(client Client, bucket, rootPrefix string, cfg DownloadConfig) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
		downloader: manager.NewDownloader(client, func(d *manager.Downloader) {
			if cfg.PartSize > 0 {
				d.PartSize = cfg.PartSize
			}
			if cfg.Concurrency > 0 {
				d.Concurrency = cfg.Concurrency
			}
		}),
	}
}

type options struct {
	prefix   string
	region   string
	download DownloadConfig
	loadOpts []func(*config.LoadOptions) error
}

// Option configures New.
type Option func(*options)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithRegion overrides the region from the shared AWS configuration.
func WithRegion(region string) Option {
	return func(o *options) { o.region = region }
}

// WithDownloadConfig overrides the parallel download settings.
func WithDownloadConfig(cfg DownloadConfig) Option {
	return func(o *options) { o.download = cfg }
}

// WithLoadOptions passes additional options to config.LoadDefaultConfig.
func WithLoadOptions(optFns ...func(*config.LoadOptions) error) Option {
	return func(o *options) { o.loadOpts = append(o.loadOpts, optFns...) }
}

// New creates a Store using the default AWS credential chain.
func New(ctx context.Context, bucket string, opts ...Option) (*Store, error) {
	o := options{download: DefaultDownloadConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	loadOpts := o.loadOpts
	if o.region != "" {
		loadOpts = append(loadOpts, config.WithRegion(o.region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	return NewStoreWithConfig(s3.NewFromConfig(cfg), bucket, o.prefix, o.download), nil
}

func (s *Store) key(name string) string {
	return path.Join(s.prefix, name)
}

// Open opens a blob for reading.
func (s *Store) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	key := s.key(name)

	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translateError(err)
	}

	return &s3Blob{
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// List returns all blob names with the given prefix, relative to the root prefix.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	fullPrefix := s.key(prefix)
	if prefix == "" {
		fullPrefix = s.prefix
	}
	var keys []string

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(fullPrefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			relPath := strings.TrimPrefix(aws.ToString(obj.Key), s.prefix)
			relPath = strings.TrimPrefix(relPath, "/")
			if relPath != "" {
				keys = append(keys, relPath)
			}
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Download writes the whole blob to w using parallel ranged GETs.
func (s *Store) Download(ctx context.Context, name string, w io.WriterAt) (int64, error) {
	n, err := s.downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return n, translateError(err)
	}
	return n, nil
}

func translateError(err error) error {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return fmt.Errorf("%w: %w", blobstore.ErrNotFound, err)
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return fmt.Errorf("%w: %w", blobstore.ErrNotFound, err)
	}
	return err
}

// s3Blob implements blobstore.Blob.
type s3Blob struct {
	client Client
	bucket string
	key    string
	size   int64
}

func (b *s3Blob) Close() error {
	return nil
}

func (b *s3Blob) Size() int64 {
	return b.size
}

// ReadAt reads len(p) bytes starting at offset off.
func (b *s3Blob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 || off >= b.size {
		return 0, io.EOF
	}

	rc, err := b.ReadRange(ctx, off, int64(len(p)))
	if err != nil {
		return 0, err
	}
	defer func() { _ = rc.Close() }()

	n, err := io.ReadFull(rc, p)
	if errors.Is(err, io.ErrUnexpectedEOF) || (err == nil && n < len(p)) {
		return n, io.EOF
	}
	return n, err
}

// ReadRange returns a reader for a range of bytes.
func (b *s3Blob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if off >= b.size {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	end := min(off+length-1, b.size-1)
	rangeHeader := fmt.Sprintf("bytes=%d-%d", off, end)

	resp, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
		Range:  aws.String(rangeHeader),
	})
	if err != nil {
		return nil, translateError(err)
	}
	return resp.Body, nil
}
