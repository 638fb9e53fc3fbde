package ports

import "github.com/bft-labs/seriallog/internal/domain"

// BatchSink receives every batch sealed by the aggregator, in order.
// It is called on the ingestion path and must return quickly; slow
// consumers should hand the batch to their own goroutine.
type BatchSink interface {
	OnBatch(batch domain.Batch)
}

// BatchSinkFunc adapts a function to BatchSink.
type BatchSinkFunc func(domain.Batch)

// OnBatch calls f(batch).
func (f BatchSinkFunc) OnBatch(batch domain.Batch) { f(batch) }

// RateReporter receives the number of samples seen during the last
// reporting interval. Like BatchSink it runs on the ingestion path.
type RateReporter interface {
	OnRate(samplesPerSecond int)
}

// RateReporterFunc adapts a function to RateReporter.
type RateReporterFunc func(int)

// OnRate calls f(n).
func (f RateReporterFunc) OnRate(n int) { f(n) }
