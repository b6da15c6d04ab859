package jsonload

import (
	"context"
	"fmt"

	"github.com/hupe1980/jsonload/internal/fs"
	"github.com/hupe1980/jsonload/internal/mem"
	"github.com/hupe1980/jsonload/resource"
)

const (
	// MaxPad is how far a scanner may read past any position of a document.
	MaxPad = 64

	// Alignment is the corpus buffer alignment and the padded record length
	// multiple.
	Alignment = mem.Alignment

	// PadByte fills corpus records up to the next Alignment boundary. It is
	// neither a JSON structural character nor JSON whitespace.
	PadByte byte = 'd'

	// DefaultMinRecordSize is the default noise threshold: shorter or equal
	// lines are skipped.
	DefaultMinRecordSize = 5

	// DefaultMaxLineSize is the default corpus line limit.
	DefaultMaxLineSize = 1 << 20
)

// Loader loads documents and corpora. It is safe for concurrent use.
type Loader struct {
	fs         fs.FileSystem
	controller *resource.Controller
	logger     *Logger
	metrics    MetricsCollector
	minRecord  int
	maxLine    int
	offHeap    bool
}

// New creates a Loader.
func New(optFns ...Option) (*Loader, error) {
	o, err := applyOptions(optFns)
	if err != nil {
		return nil, err
	}

	return &Loader{
		fs:         o.fileSystem,
		controller: o.controller,
		logger:     o.logger,
		metrics:    o.metricsCollector,
		minRecord:  o.minRecordSize,
		maxLine:    o.maxLineSize,
		offHeap:    o.offHeap,
	}, nil
}

// LoadDocument loads the file at path with the default Loader.
func LoadDocument(ctx context.Context, path string) (*Record, error) {
	l, err := New()
	if err != nil {
		return nil, err
	}
	return l.LoadDocument(ctx, path)
}

// LoadCorpus loads the JSON Lines file at path with the default Loader.
func LoadCorpus(ctx context.Context, path string) (*RecordSet, error) {
	l, err := New()
	if err != nil {
		return nil, err
	}
	return l.LoadCorpus(ctx, path)
}

// releaseFunc returns the function run when a buffer of n bytes is freed.
// The memory budget is returned and the release reported only once free
// succeeds.
func (l *Loader) releaseFunc(n int, free func() error) func() error {
	return func() error {
		if free != nil {
			if err := free(); err != nil {
				l.logger.LogRelease(context.Background(), n, err)
				return fmt.Errorf("release buffer: %w", err)
			}
		}
		l.controller.ReleaseMemory(int64(n))
		l.metrics.RecordRelease(n)
		l.logger.LogRelease(context.Background(), n, nil)
		return nil
	}
}
