// jsonload loads a JSON document or JSON Lines corpus the way a vectorized
// scanner would receive it and prints the resulting layout.
//
// Local file:
//
//	jsonload twitter.json
//	jsonload --corpus tweets.jsonl.zst
//
// Dataset from a catalog, fetched and verified first:
//
//	jsonload --catalog datasets.yaml --dataset twitter --s3-bucket corpora
//	jsonload --catalog datasets.yaml --dataset crossref --minio-endpoint localhost:9000
//	jsonload --ddb-table jsonload-datasets --dataset crossref --store-dir /mnt/corpora
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/pflag"

	"github.com/hupe1980/jsonload"
	"github.com/hupe1980/jsonload/blobstore"
	"github.com/hupe1980/jsonload/blobstore/minio"
	"github.com/hupe1980/jsonload/blobstore/s3"
	"github.com/hupe1980/jsonload/dataset"
	"github.com/hupe1980/jsonload/resource"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	corpus    bool
	offHeap   bool
	jsonLog   bool
	logLevel  string
	minRecord int
	maxLine   int

	memoryLimit int64
	ioLimit     int64
	workers     int64

	catalog  string
	ddbTable string
	name     string
	root     string

	storeDir       string
	s3Bucket       string
	s3Prefix       string
	s3Region       string
	minioEndpoint  string
	minioBucket    string
	minioPrefix    string
	minioAccessKey string
	minioSecretKey string
	minioSecure    bool
}

func parseFlags(args []string) (*flags, []string, error) {
	var f flags
	fs := pflag.NewFlagSet("jsonload", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&f.corpus, "corpus", false, "treat the input as JSON Lines")
	fs.BoolVar(&f.offHeap, "off-heap", false, "place corpus buffers in anonymous mappings")
	fs.BoolVar(&f.jsonLog, "json-log", false, "emit JSON logs")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	fs.IntVar(&f.minRecord, "min-record", jsonload.DefaultMinRecordSize, "skip corpus lines of at most this many bytes")
	fs.IntVar(&f.maxLine, "max-line", jsonload.DefaultMaxLineSize, "reject corpora with lines of at least this many bytes")

	fs.Int64Var(&f.memoryLimit, "memory-limit", 0, "memory budget for loaded buffers in bytes (0 = unlimited)")
	fs.Int64Var(&f.ioLimit, "io-limit", 0, "download limit in bytes per second (0 = unlimited)")
	fs.Int64Var(&f.workers, "workers", 4, "concurrent dataset downloads")

	fs.StringVar(&f.catalog, "catalog", "", "YAML dataset catalog")
	fs.StringVar(&f.ddbTable, "ddb-table", "", "DynamoDB table holding the dataset catalog")
	fs.StringVar(&f.name, "dataset", "", "dataset to fetch and load")
	fs.StringVar(&f.root, "root", "", "local dataset directory (default: catalog root or testdata)")

	fs.StringVar(&f.storeDir, "store-dir", "", "fetch datasets from this directory")
	fs.StringVar(&f.s3Bucket, "s3-bucket", "", "fetch datasets from this S3 bucket")
	fs.StringVar(&f.s3Prefix, "s3-prefix", "", "key prefix within the S3 bucket")
	fs.StringVar(&f.s3Region, "s3-region", "", "AWS region override")
	fs.StringVar(&f.minioEndpoint, "minio-endpoint", "", "fetch datasets from this MinIO endpoint")
	fs.StringVar(&f.minioBucket, "minio-bucket", "datasets", "MinIO bucket")
	fs.StringVar(&f.minioPrefix, "minio-prefix", "", "key prefix within the MinIO bucket")
	fs.StringVar(&f.minioAccessKey, "minio-access-key", os.Getenv("MINIO_ACCESS_KEY"), "MinIO access key")
	fs.StringVar(&f.minioSecretKey, "minio-secret-key", os.Getenv("MINIO_SECRET_KEY"), "MinIO secret key")
	fs.BoolVar(&f.minioSecure, "minio-secure", false, "use HTTPS for MinIO")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil, nil, fmt.Errorf("usage: jsonload [flags] [PATH]\n%s", fs.FlagUsages())
		}
		return nil, nil, err
	}
	return &f, fs.Args(), nil
}

func run(args []string, out io.Writer) error {
	f, rest, err := parseFlags(args)
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return fmt.Errorf("--log-level: %w", err)
	}
	logger := jsonload.NewTextLogger(level)
	if f.jsonLog {
		logger = jsonload.NewJSONLogger(level)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:     f.memoryLimit,
		MaxBackgroundWorkers: f.workers,
		IOLimitBytesPerSec:   f.ioLimit,
	})

	path, corpus := "", f.corpus
	switch {
	case f.name != "":
		file, err := fetchDataset(ctx, f, rc, logger)
		if err != nil {
			return err
		}
		path, corpus = file.Path, corpus || file.Dataset.Corpus
	case len(rest) == 1:
		path = rest[0]
	default:
		return errors.New("usage: jsonload [flags] PATH | --dataset NAME")
	}

	metrics := &jsonload.BasicMetricsCollector{}
	loader, err := jsonload.New(
		jsonload.WithLogger(logger),
		jsonload.WithMetricsCollector(metrics),
		jsonload.WithResourceController(rc),
		jsonload.WithMinRecordSize(f.minRecord),
		jsonload.WithMaxLineSize(f.maxLine),
		jsonload.WithOffHeapBuffers(f.offHeap),
	)
	if err != nil {
		return err
	}

	if corpus {
		return printCorpus(ctx, out, loader, path)
	}
	return printDocument(ctx, out, loader, path)
}

func printDocument(ctx context.Context, out io.Writer, l *jsonload.Loader, path string) (err error) {
	rec, err := l.LoadDocument(ctx, path)
	if err != nil {
		return err
	}
	defer releaseInto(&err, rec.Release)

	fmt.Fprintf(out, "document %s\n", path)
	fmt.Fprintf(out, "  content bytes: %d\n", rec.ContentLen())
	fmt.Fprintf(out, "  padded bytes:  %d\n", rec.Len())
	return nil
}

func printCorpus(ctx context.Context, out io.Writer, l *jsonload.Loader, path string) (err error) {
	set, err := l.LoadCorpus(ctx, path)
	if err != nil {
		return err
	}
	defer releaseInto(&err, set.Release)

	var content, longest int
	for _, rec := range set.All() {
		content += rec.ContentLen()
		longest = max(longest, rec.ContentLen())
	}

	fmt.Fprintf(out, "corpus %s\n", path)
	fmt.Fprintf(out, "  records:       %d\n", set.Len())
	fmt.Fprintf(out, "  skipped lines: %d\n", set.Skipped().GetCardinality())
	fmt.Fprintf(out, "  content bytes: %d\n", content)
	fmt.Fprintf(out, "  buffer bytes:  %d\n", set.Size())
	fmt.Fprintf(out, "  longest:       %d\n", longest)
	if owner := set.Owner(); owner != nil {
		fmt.Fprintf(out, "  owner line:    %d\n", owner.Line())
	}
	return nil
}

// releaseInto runs release and reports its failure through err unless an
// earlier error is already set.
func releaseInto(err *error, release func() error) {
	if rerr := release(); rerr != nil && *err == nil {
		*err = fmt.Errorf("release: %w", rerr)
	}
}

func fetchDataset(ctx context.Context, f *flags, rc *resource.Controller, logger *jsonload.Logger) (dataset.File, error) {
	resolver, root, err := openResolver(ctx, f)
	if err != nil {
		return dataset.File{}, err
	}
	ds, err := resolver.Lookup(ctx, f.name)
	if err != nil {
		return dataset.File{}, err
	}

	store, err := openStore(ctx, f)
	if err != nil {
		return dataset.File{}, err
	}

	fetcher := dataset.NewFetcher(store, root,
		dataset.WithLogger(logger.Logger),
		dataset.WithResourceController(rc),
	)
	return fetcher.Ensure(ctx, ds)
}

func openResolver(ctx context.Context, f *flags) (dataset.Resolver, string, error) {
	root := f.root
	switch {
	case f.catalog != "":
		c, err := dataset.LoadCatalog(f.catalog)
		if err != nil {
			return nil, "", err
		}
		if root == "" {
			root = c.Root
		}
		if root == "" {
			root = "testdata"
		}
		return c, root, nil
	case f.ddbTable != "":
		cfg, err := loadAWSConfig(ctx, f)
		if err != nil {
			return nil, "", err
		}
		if root == "" {
			root = "testdata"
		}
		return dataset.NewDynamoCatalog(dynamodb.NewFromConfig(cfg), f.ddbTable), root, nil
	default:
		return nil, "", errors.New("--dataset requires --catalog or --ddb-table")
	}
}

func openStore(ctx context.Context, f *flags) (blobstore.BlobStore, error) {
	switch {
	case f.s3Bucket != "":
		opts := []s3.Option{s3.WithPrefix(f.s3Prefix)}
		if f.s3Region != "" {
			opts = append(opts, s3.WithRegion(f.s3Region))
		}
		return s3.New(ctx, f.s3Bucket, opts...)
	case f.minioEndpoint != "":
		return minio.Dial(f.minioEndpoint, f.minioAccessKey, f.minioSecretKey, f.minioSecure, f.minioBucket, f.minioPrefix)
	case f.storeDir != "":
		return blobstore.NewLocalStore(f.storeDir), nil
	default:
		return nil, errors.New("--dataset requires --s3-bucket, --minio-endpoint or --store-dir")
	}
}

func loadAWSConfig(ctx context.Context, f *flags) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if f.s3Region != "" {
		opts = append(opts, config.WithRegion(f.s3Region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
