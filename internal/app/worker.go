package app

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
	"github.com/bft-labs/seriallog/internal/ports"
	"github.com/bft-labs/seriallog/pkg/log"
)

// DefaultIdleTick is how long the worker waits on an empty queue before
// re-checking whether the export file can be closed.
const DefaultIdleTick = time.Second

// WorkerState is the persistence worker's current activity.
type WorkerState int32

const (
	WorkerIdle WorkerState = iota
	WorkerRotating
	WorkerWritingLog
	WorkerWritingExport
	WorkerClosing
	WorkerTerminated
)

// String returns a human-readable representation of the state.
func (s WorkerState) String() string {
	switch s {
	case WorkerIdle:
		return "Idle"
	case WorkerRotating:
		return "Rotating"
	case WorkerWritingLog:
		return "WritingLog"
	case WorkerWritingExport:
		return "WritingExport"
	case WorkerClosing:
		return "Closing"
	case WorkerTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// PersistObserver is notified of worker outcomes. Calls come from the
// worker goroutine.
type PersistObserver interface {
	OnBatchPersisted(batch domain.Batch, exported bool)
	OnPersistError(op string, err error)
}

// WorkerConfig configures a Worker.
type WorkerConfig struct {
	Log    ports.LogStore
	Export ports.ExportStore
	Queue  *Queue

	// ExportEnabled reports the live export flag.
	ExportEnabled func() bool

	Logger   ports.Logger
	Observer PersistObserver

	// Now returns the wall clock used for hour buckets.
	Now func() time.Time

	// IdleTick overrides DefaultIdleTick.
	IdleTick time.Duration
}

// Worker is the single goroutine that owns the log and export files.
// Every queued batch is appended to the hour-bucketed log, and also to the
// export file when its export flag was set at enqueue time. Write failures
// are logged and counted; they never stop the worker.
type Worker struct {
	log      ports.LogStore
	export   ports.ExportStore
	queue    *Queue
	enabled  func() bool
	logger   ports.Logger
	observer PersistObserver
	now      func() time.Time
	tick     time.Duration

	state   atomic.Int32
	current atomic.Pointer[string]
	expOpen atomic.Bool

	batches       atomic.Uint64
	samples       atomic.Uint64
	exportBatches atomic.Uint64
	errors        atomic.Uint64

	done     chan struct{}
	doneOnce sync.Once
}

// NewWorker creates a worker. Call Run on its own goroutine.
func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.IdleTick <= 0 {
		cfg.IdleTick = DefaultIdleTick
	}
	if cfg.ExportEnabled == nil {
		cfg.ExportEnabled = func() bool { return false }
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	w := &Worker{
		log:      cfg.Log,
		export:   cfg.Export,
		queue:    cfg.Queue,
		enabled:  cfg.ExportEnabled,
		logger:   cfg.Logger,
		observer: cfg.Observer,
		now:      cfg.Now,
		tick:     cfg.IdleTick,
		done:     make(chan struct{}),
	}
	empty := ""
	w.current.Store(&empty)
	return w
}

// Run processes queue items until the shutdown item arrives.
func (w *Worker) Run() {
	defer w.doneOnce.Do(func() { close(w.done) })

	for {
		item, ok := w.queue.Pop(w.tick)
		if !ok {
			w.maybeCloseExport()
			continue
		}
		if item.kind == itemShutdown {
			w.shutdown()
			return
		}
		w.persist(item)
		w.maybeCloseExport()
	}
}

func (w *Worker) persist(item workItem) {
	now := w.now()

	if w.log.Rotated(now) {
		w.setState(WorkerRotating)
	} else {
		w.setState(WorkerWritingLog)
	}
	prev := w.log.Current()
	if err := w.log.Append(item.batch, now); err != nil {
		w.fail("log", err, ports.Uint64("seq", item.batch.Seq()))
	} else {
		w.batches.Add(1)
		w.samples.Add(uint64(item.batch.Len()))
	}
	if cur := w.log.Current(); cur != prev {
		w.current.Store(&cur)
		if cur != "" {
			w.logger.Info("log file opened", ports.String("path", cur))
		}
	}

	exported := false
	if item.export {
		w.setState(WorkerWritingExport)
		wasOpen := w.export.IsOpen()
		if err := w.export.Append(item.batch); err != nil {
			w.fail("export", err, ports.Uint64("seq", item.batch.Seq()))
		} else {
			exported = true
			w.exportBatches.Add(1)
		}
		w.expOpen.Store(w.export.IsOpen())
		if !wasOpen && w.export.IsOpen() {
			w.logger.Info("export file opened")
		}
	}

	if w.observer != nil {
		w.observer.OnBatchPersisted(item.batch, exported)
	}
	w.setState(WorkerIdle)
}

// maybeCloseExport closes the export file once exporting is off and no
// export-flagged batch is still queued.
func (w *Worker) maybeCloseExport() {
	if !w.export.IsOpen() || w.enabled() || w.queue.ExportQueued() > 0 {
		return
	}
	if err := w.export.Close(); err != nil {
		w.fail("export close", err)
	} else {
		w.logger.Info("export file closed")
	}
	w.expOpen.Store(w.export.IsOpen())
}

func (w *Worker) shutdown() {
	w.setState(WorkerClosing)
	if err := w.log.Close(); err != nil {
		w.fail("log close", err)
	}
	if err := w.export.Close(); err != nil {
		w.fail("export close", err)
	}
	empty := ""
	w.current.Store(&empty)
	w.expOpen.Store(false)
	w.setState(WorkerTerminated)
	w.logger.Info("persistence worker stopped",
		ports.Uint64("batches", w.batches.Load()),
		ports.Uint64("errors", w.errors.Load()),
	)
}

func (w *Worker) fail(op string, err error, fields ...ports.Field) {
	w.errors.Add(1)
	fields = append(fields, ports.String("op", op), ports.Err(err))
	w.logger.Error("persistence failed", fields...)
	if w.observer != nil {
		w.observer.OnPersistError(op, err)
	}
}

func (w *Worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

// State returns the worker's current activity.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Done is closed once the worker has closed its files and exited.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// CurrentLog returns the path of the open log file, or "".
func (w *Worker) CurrentLog() string {
	return *w.current.Load()
}

// ExportOpen reports whether the export file handle is open.
func (w *Worker) ExportOpen() bool {
	return w.expOpen.Load()
}

// WorkerStats are cumulative worker counters.
type WorkerStats struct {
	Batches       uint64
	Samples       uint64
	ExportBatches uint64
	Errors        uint64
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Batches:       w.batches.Load(),
		Samples:       w.samples.Load(),
		ExportBatches: w.exportBatches.Load(),
		Errors:        w.errors.Load(),
	}
}
