package app

import (
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
)

// DefaultBatchSize is the number of samples per batch. It is also the
// rendering cadence: one batch is one display refresh.
const DefaultBatchSize = 5000

// Aggregator accumulates samples and seals a Batch each time the
// threshold is reached. There is no time-based flush; a partial batch is
// never emitted. Not safe for concurrent use.
type Aggregator struct {
	threshold int
	buf       []domain.Sample
	seq       uint64
	now       func() time.Time
}

// NewAggregator creates an aggregator sealing batches of threshold samples.
// A non-positive threshold falls back to DefaultBatchSize.
func NewAggregator(threshold int, now func() time.Time) *Aggregator {
	if threshold <= 0 {
		threshold = DefaultBatchSize
	}
	if now == nil {
		now = time.Now
	}
	return &Aggregator{threshold: threshold, now: now}
}

// Push appends s. When the threshold is reached it returns the sealed batch
// and true, and the aggregator starts over with an empty buffer.
func (a *Aggregator) Push(s domain.Sample) (domain.Batch, bool) {
	if a.buf == nil {
		a.buf = make([]domain.Sample, 0, a.threshold)
	}
	a.buf = append(a.buf, s)
	if len(a.buf) < a.threshold {
		return domain.Batch{}, false
	}

	a.seq++
	b := domain.NewBatch(a.seq, a.buf, a.now())
	// the sealed slice now belongs to the batch
	a.buf = nil
	return b, true
}

// PushAll pushes every sample in order and returns the batches sealed
// along the way.
func (a *Aggregator) PushAll(samples []domain.Sample) []domain.Batch {
	var sealed []domain.Batch
	for _, s := range samples {
		if b, ok := a.Push(s); ok {
			sealed = append(sealed, b)
		}
	}
	return sealed
}

// Pending returns the number of samples waiting for the next batch.
func (a *Aggregator) Pending() int {
	return len(a.buf)
}

// Threshold returns the batch size.
func (a *Aggregator) Threshold() int {
	return a.threshold
}

// Sealed returns how many batches have been sealed so far.
func (a *Aggregator) Sealed() uint64 {
	return a.seq
}
