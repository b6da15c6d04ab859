package jsonload

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    loadedBytes prometheus.Counter
//	    loadLatency prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordLoadDocument(bytes int, duration time.Duration, err error) {
//	    p.loadedBytes.Add(float64(bytes))
//	    p.loadLatency.Observe(duration.Seconds())
//	}
type MetricsCollector interface {
	// RecordLoadDocument is called after each single-document load.
	// bytes is the file size, err is nil if successful.
	RecordLoadDocument(bytes int, duration time.Duration, err error)

	// RecordLoadCorpus is called after each corpus load.
	// records and skipped count kept and discarded lines, bytes is the
	// size of the padded buffer.
	RecordLoadCorpus(records, skipped, bytes int, duration time.Duration, err error)

	// RecordRelease is called when a loaded buffer is freed.
	RecordRelease(bytes int)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLoadDocument(int, time.Duration, error)         {}
func (NoopMetricsCollector) RecordLoadCorpus(int, int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordRelease(int)                                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	DocumentCount      atomic.Int64
	DocumentErrors     atomic.Int64
	DocumentBytes      atomic.Int64
	DocumentTotalNanos atomic.Int64
	CorpusCount        atomic.Int64
	CorpusErrors       atomic.Int64
	CorpusRecords      atomic.Int64
	CorpusSkipped      atomic.Int64
	CorpusBytes        atomic.Int64
	CorpusTotalNanos   atomic.Int64
	ReleaseCount       atomic.Int64
	ReleasedBytes      atomic.Int64
}

// RecordLoadDocument implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoadDocument(bytes int, duration time.Duration, err error) {
	b.DocumentCount.Add(1)
	b.DocumentTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.DocumentErrors.Add(1)
		return
	}
	b.DocumentBytes.Add(int64(bytes))
}

// RecordLoadCorpus implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoadCorpus(records, skipped, bytes int, duration time.Duration, err error) {
	b.CorpusCount.Add(1)
	b.CorpusTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.CorpusErrors.Add(1)
		return
	}
	b.CorpusRecords.Add(int64(records))
	b.CorpusSkipped.Add(int64(skipped))
	b.CorpusBytes.Add(int64(bytes))
}

// RecordRelease implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRelease(bytes int) {
	b.ReleaseCount.Add(1)
	b.ReleasedBytes.Add(int64(bytes))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		DocumentCount:    b.DocumentCount.Load(),
		DocumentErrors:   b.DocumentErrors.Load(),
		DocumentBytes:    b.DocumentBytes.Load(),
		DocumentAvgNanos: avgNanos(b.DocumentTotalNanos.Load(), b.DocumentCount.Load()),
		CorpusCount:      b.CorpusCount.Load(),
		CorpusErrors:     b.CorpusErrors.Load(),
		CorpusRecords:    b.CorpusRecords.Load(),
		CorpusSkipped:    b.CorpusSkipped.Load(),
		CorpusBytes:      b.CorpusBytes.Load(),
		CorpusAvgNanos:   avgNanos(b.CorpusTotalNanos.Load(), b.CorpusCount.Load()),
		ReleaseCount:     b.ReleaseCount.Load(),
		ReleasedBytes:    b.ReleasedBytes.Load(),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	DocumentCount    int64
	DocumentErrors   int64
	DocumentBytes    int64
	DocumentAvgNanos int64
	CorpusCount      int64
	CorpusErrors     int64
	CorpusRecords    int64
	CorpusSkipped    int64
	CorpusBytes      int64
	CorpusAvgNanos   int64
	ReleaseCount     int64
	ReleasedBytes    int64
}
