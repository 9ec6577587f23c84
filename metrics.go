package knn

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; package
// prommetrics provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordLearn is called after each learn call. added is false when the
	// input was rejected by policy or only relabelled an existing row.
	RecordLearn(duration time.Duration, added bool, err error)

	// RecordInfer is called after each inference.
	RecordInfer(duration time.Duration, err error)

	// RecordRemove is called after each bulk removal with the rows removed.
	RecordRemove(removed int, duration time.Duration)

	// RecordEviction is called for each fixed-capacity eviction.
	RecordEviction()

	// RecordSVD is called after the projection is finalized.
	RecordSVD(dims int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLearn(time.Duration, bool, error) {}
func (NoopMetricsCollector) RecordInfer(time.Duration, error)       {}
func (NoopMetricsCollector) RecordRemove(int, time.Duration)        {}
func (NoopMetricsCollector) RecordEviction()                        {}
func (NoopMetricsCollector) RecordSVD(int, time.Duration, error)    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LearnCount      atomic.Int64
	LearnAdded      atomic.Int64
	LearnErrors     atomic.Int64
	LearnTotalNanos atomic.Int64
	InferCount      atomic.Int64
	InferErrors     atomic.Int64
	InferTotalNanos atomic.Int64
	RemoveCount     atomic.Int64
	RemovedRows     atomic.Int64
	Evictions       atomic.Int64
	SVDCount        atomic.Int64
	SVDErrors       atomic.Int64
	SVDDims         atomic.Int64
}

// RecordLearn implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLearn(duration time.Duration, added bool, err error) {
	b.LearnCount.Add(1)
	b.LearnTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.LearnErrors.Add(1)
		return
	}
	if added {
		b.LearnAdded.Add(1)
	}
}

// RecordInfer implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInfer(duration time.Duration, err error) {
	b.InferCount.Add(1)
	b.InferTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InferErrors.Add(1)
	}
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(removed int, _ time.Duration) {
	b.RemoveCount.Add(1)
	b.RemovedRows.Add(int64(removed))
}

// RecordEviction implements MetricsCollector.
func (b *BasicMetricsCollector) RecordEviction() {
	b.Evictions.Add(1)
}

// RecordSVD implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSVD(dims int, _ time.Duration, err error) {
	b.SVDCount.Add(1)
	if err != nil {
		b.SVDErrors.Add(1)
		return
	}
	b.SVDDims.Store(int64(dims))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LearnCount:    b.LearnCount.Load(),
		LearnAdded:    b.LearnAdded.Load(),
		LearnErrors:   b.LearnErrors.Load(),
		LearnAvgNanos: avg(b.LearnTotalNanos.Load(), b.LearnCount.Load()),
		InferCount:    b.InferCount.Load(),
		InferErrors:   b.InferErrors.Load(),
		InferAvgNanos: avg(b.InferTotalNanos.Load(), b.InferCount.Load()),
		RemoveCount:   b.RemoveCount.Load(),
		RemovedRows:   b.RemovedRows.Load(),
		Evictions:     b.Evictions.Load(),
		SVDCount:      b.SVDCount.Load(),
		SVDErrors:     b.SVDErrors.Load(),
		SVDDims:       b.SVDDims.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LearnCount    int64
	LearnAdded    int64
	LearnErrors   int64
	LearnAvgNanos int64
	InferCount    int64
	InferErrors   int64
	InferAvgNanos int64
	RemoveCount   int64
	RemovedRows   int64
	Evictions     int64
	SVDCount      int64
	SVDErrors     int64
	SVDDims       int64
}
