package app

import (
	"errors"
	"sync"
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
)

var errDiskFull = errors.New("disk full")

// memLog is an in-memory LogStore keyed by hour bucket.
type memLog struct {
	mu      sync.Mutex
	files   map[string][]domain.Sample
	written []domain.Sample
	opened  []string
	bucket  string
	open    bool
	failN   int
	appends int
}

func newMemLog() *memLog {
	return &memLog{files: make(map[string][]domain.Sample)}
}

func (m *memLog) Append(b domain.Batch, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := now.Format("2006-01-02_15")
	if m.failN > 0 {
		m.failN--
		m.open, m.bucket = false, ""
		return errDiskFull
	}
	if !m.open || key != m.bucket {
		m.open, m.bucket = true, key
		m.opened = append(m.opened, key)
	}
	m.files[key] = append(m.files[key], b.Samples()...)
	m.written = append(m.written, b.Samples()...)
	m.appends++
	return nil
}

func (m *memLog) Rotated(now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.open || now.Format("2006-01-02_15") != m.bucket
}

func (m *memLog) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return ""
	}
	return "mem/" + m.bucket
}

func (m *memLog) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open, m.bucket = false, ""
	return nil
}

func (m *memLog) all() []domain.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Sample(nil), m.written...)
}

// memExport is an in-memory ExportStore.
type memExport struct {
	mu      sync.Mutex
	samples []domain.Sample
	batches int
	open    bool
	opens   int
	closes  int
	failN   int
}

func (m *memExport) Append(b domain.Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failN > 0 {
		m.failN--
		return errDiskFull
	}
	if !m.open {
		m.open = true
		m.opens++
	}
	m.samples = append(m.samples, b.Samples()...)
	m.batches++
	return nil
}

func (m *memExport) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *memExport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.open {
		m.open = false
		m.closes++
	}
	return nil
}

func (m *memExport) counts() (batches, opens, closes int, open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.batches, m.opens, m.closes, m.open
}

// sequenceClock returns each time in turn and then repeats the last one.
func sequenceClock(times ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

// recordingObserver counts Observer callbacks.
type recordingObserver struct {
	mu        sync.Mutex
	bytes     int
	sealed    []uint64
	persisted []uint64
	exported  int
	dropped   int
	errs      []string
}

func (r *recordingObserver) OnBytes(n int) {
	r.mu.Lock()
	r.bytes += n
	r.mu.Unlock()
}

func (r *recordingObserver) OnBatchSealed(b domain.Batch) {
	r.mu.Lock()
	r.sealed = append(r.sealed, b.Seq())
	r.mu.Unlock()
}

func (r *recordingObserver) OnBatchDropped() {
	r.mu.Lock()
	r.dropped++
	r.mu.Unlock()
}

func (r *recordingObserver) OnBatchPersisted(b domain.Batch, exported bool) {
	r.mu.Lock()
	r.persisted = append(r.persisted, b.Seq())
	if exported {
		r.exported++
	}
	r.mu.Unlock()
}

func (r *recordingObserver) OnPersistError(op string, err error) {
	r.mu.Lock()
	r.errs = append(r.errs, op)
	r.mu.Unlock()
}

func samplesOf(vs ...int) []domain.Sample {
	out := make([]domain.Sample, len(vs))
	for i, v := range vs {
		out[i] = domain.Sample(v)
	}
	return out
}

func batchOf(seq uint64, vs ...int) domain.Batch {
	return domain.NewBatch(seq, samplesOf(vs...), time.Time{})
}

func equalSamples(a, b []domain.Sample) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

// atomicFlag is a bool shared between a test and the worker goroutine.
type atomicFlag struct {
	mu sync.Mutex
	v  bool
}

func (f *atomicFlag) set(v bool) {
	f.mu.Lock()
	f.v = v
	f.mu.Unlock()
}

func (f *atomicFlag) get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.v
}
