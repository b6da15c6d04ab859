package jsonload

import (
	"fmt"
	"log/slog"

	"github.com/hupe1980/jsonload/internal/fs"
	"github.com/hupe1980/jsonload/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	fileSystem       fs.FileSystem
	controller       *resource.Controller
	minRecordSize    int
	maxLineSize      int
	offHeap          bool
}

// Option configures a Loader.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring loads.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &jsonload.BasicMetricsCollector{}
//	l, _ := jsonload.New(jsonload.WithMetricsCollector(metrics))
//	// ... load ...
//	stats := metrics.GetStats()
//	fmt.Printf("Corpora: %d, Records: %d\n", stats.CorpusCount, stats.CorpusRecords)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for loads.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := jsonload.NewJSONLogger(slog.LevelInfo)
//	l, _ := jsonload.New(jsonload.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithFileSystem sets the file system inputs are read from.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fileSystem = fsys
	}
}

// WithResourceController charges every loaded buffer against rc's memory
// budget. A load that would exceed the budget fails with
// resource.ErrMemoryLimitExceeded.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithMinRecordSize sets the noise threshold: corpus lines of n bytes or
// fewer are skipped. Default: DefaultMinRecordSize.
func WithMinRecordSize(n int) Option {
	return func(o *options) {
		o.minRecordSize = n
	}
}

// WithMaxLineSize sets the corpus line limit: a line of n bytes or more
// rejects the whole load. Default: DefaultMaxLineSize.
func WithMaxLineSize(n int) Option {
	return func(o *options) {
		o.maxLineSize = n
	}
}

// WithOffHeapBuffers places corpus buffers in anonymous memory mappings
// instead of the Go heap. Large corpora then do not count towards GOGC
// pacing and are returned to the OS as soon as they are released.
func WithOffHeapBuffers(enabled bool) Option {
	return func(o *options) {
		o.offHeap = enabled
	}
}

func applyOptions(optFns []Option) (options, error) {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		fileSystem:       fs.Default,
		minRecordSize:    DefaultMinRecordSize,
		maxLineSize:      DefaultMaxLineSize,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	if o.minRecordSize < 0 {
		return o, fmt.Errorf("%w: min record size %d is negative", ErrInvalidOption, o.minRecordSize)
	}
	if o.maxLineSize <= o.minRecordSize {
		return o, fmt.Errorf("%w: max line size %d must exceed min record size %d",
			ErrInvalidOption, o.maxLineSize, o.minRecordSize)
	}
	return o, nil
}
