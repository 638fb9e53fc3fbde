package domain

import (
	"strconv"
	"time"
)

// Sample is one decoded reading. The acquisition board produces 12-bit
// values, so valid samples are in [0, 4095].
type Sample uint16

// Batch is an ordered, fixed-length run of samples. A Batch has no mutating
// methods; once built it can be handed between goroutines without copying.
type Batch struct {
	seq       uint64
	samples   []Sample
	createdAt time.Time
}

// NewBatch wraps samples in a Batch. The caller gives up ownership of the
// slice and must not modify it afterwards.
func NewBatch(seq uint64, samples []Sample, createdAt time.Time) Batch {
	return Batch{seq: seq, samples: samples, createdAt: createdAt}
}

// Seq returns the batch sequence number, starting at 1 for the first batch
// of a pipeline.
func (b Batch) Seq() uint64 {
	return b.seq
}

// Len returns the number of samples in the batch.
func (b Batch) Len() int {
	return len(b.samples)
}

// Empty returns true if the batch has no samples.
func (b Batch) Empty() bool {
	return len(b.samples) == 0
}

// At returns the i-th sample.
func (b Batch) At(i int) Sample {
	return b.samples[i]
}

// CreatedAt returns when the aggregator sealed the batch.
func (b Batch) CreatedAt() time.Time {
	return b.createdAt
}

// Samples returns a copy of the samples.
func (b Batch) Samples() []Sample {
	out := make([]Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Ints returns the samples widened to int, the form rendering
// collaborators usually want.
func (b Batch) Ints() []int {
	out := make([]int, len(b.samples))
	for i, s := range b.samples {
		out[i] = int(s)
	}
	return out
}

// AppendLines appends the samples as decimal text, one per line, to dst.
// This is the on-disk format of both the log and the export file.
func (b Batch) AppendLines(dst []byte) []byte {
	for _, s := range b.samples {
		dst = strconv.AppendUint(dst, uint64(s), 10)
		dst = append(dst, '\n')
	}
	return dst
}
