package app

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
	"github.com/bft-labs/seriallog/internal/ports"
	"github.com/bft-labs/seriallog/pkg/frame"
	"github.com/bft-labs/seriallog/pkg/log"
)

// Observer receives pipeline activity for metrics and events. Ingestion
// callbacks run on the caller of SubmitBytes; persistence callbacks run on
// the worker goroutine.
type Observer interface {
	PersistObserver
	OnBytes(n int)
	OnBatchSealed(batch domain.Batch)
	OnBatchDropped()
}

// PipelineConfig configures a Pipeline. Log and Export are required.
type PipelineConfig struct {
	BatchSize     int
	RateInterval  time.Duration
	WorkerTick    time.Duration
	QueuePolicy   QueuePolicy
	QueueCapacity int

	Log    ports.LogStore
	Export ports.ExportStore

	Sinks     []ports.BatchSink
	Reporters []ports.RateReporter
	Observers []Observer

	Logger ports.Logger

	// Now is the wall clock used for batch timestamps and hour buckets.
	Now func() time.Time

	Paused        bool
	ExportEnabled bool
}

// Pipeline wires decoder, aggregator, rate monitor, queue and worker, and
// holds the control flags. SubmitBytes and Tick may be called from any
// goroutine; they are serialized internally.
type Pipeline struct {
	mu      sync.Mutex
	decoder *frame.Decoder
	agg     *Aggregator
	rate    *RateMonitor

	queue  *Queue
	worker *Worker

	sinks     []ports.BatchSink
	reporters []ports.RateReporter
	observers []Observer
	logger    ports.Logger
	now       func() time.Time

	paused   atomic.Bool
	export   atomic.Bool
	closed   atomic.Bool
	lastRate atomic.Int64

	startOnce    sync.Once
	shutdownOnce sync.Once
}

// NewPipeline creates a pipeline. Call Start to launch the worker.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Log == nil || cfg.Export == nil {
		return nil, errors.Join(domain.ErrInvalidConfig, errors.New("log and export stores are required"))
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}

	p := &Pipeline{
		decoder:   &frame.Decoder{},
		agg:       NewAggregator(cfg.BatchSize, cfg.Now),
		rate:      NewRateMonitor(cfg.RateInterval),
		queue:     NewQueue(cfg.QueuePolicy, cfg.QueueCapacity),
		sinks:     cfg.Sinks,
		reporters: cfg.Reporters,
		observers: cfg.Observers,
		logger:    cfg.Logger,
		now:       cfg.Now,
	}
	p.paused.Store(cfg.Paused)
	p.export.Store(cfg.ExportEnabled)

	p.worker = NewWorker(WorkerConfig{
		Log:           cfg.Log,
		Export:        cfg.Export,
		Queue:         p.queue,
		ExportEnabled: p.export.Load,
		Logger:        log.With(cfg.Logger, log.String("component", "worker")),
		Observer:      p,
		Now:           cfg.Now,
		IdleTick:      cfg.WorkerTick,
	})
	return p, nil
}

// Start launches the persistence worker. Calling it again is a no-op.
func (p *Pipeline) Start() {
	p.startOnce.Do(func() {
		go p.worker.Run()
		p.logger.Debug("pipeline started",
			log.Int("batch_size", p.agg.Threshold()),
			log.String("queue_policy", p.queue.Policy().String()),
		)
	})
}

// SubmitBytes decodes a raw chunk and forwards every completed batch. It
// does nothing while paused or after Shutdown.
func (p *Pipeline) SubmitBytes(chunk []byte) {
	if p.paused.Load() || p.closed.Load() || len(chunk) == 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		return
	}

	for _, o := range p.observers {
		o.OnBytes(len(chunk))
	}
	for _, v := range p.decoder.Decode(chunk) {
		if b, ok := p.agg.Push(domain.Sample(v)); ok {
			p.emit(b)
		}
	}
}

// emit hands a sealed batch to the rate monitor, the worker and the sinks.
func (p *Pipeline) emit(b domain.Batch) {
	p.rate.Observe(b.Len())
	for _, o := range p.observers {
		o.OnBatchSealed(b)
	}

	dropped, err := p.queue.Push(batchItem(b, p.export.Load()))
	if err != nil {
		p.logger.Debug("batch discarded after shutdown", log.Uint64("seq", b.Seq()))
		return
	}
	if dropped {
		p.logger.Warn("queue full, dropped oldest batch",
			log.Uint64("dropped_total", p.queue.Dropped()),
		)
		for _, o := range p.observers {
			o.OnBatchDropped()
		}
	}

	for _, s := range p.sinks {
		s.OnBatch(b)
	}
}

// Tick drives the rate monitor. It should be called at least as often as
// the reporting interval.
func (p *Pipeline) Tick(now time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n, ok := p.rate.Tick(now)
	if !ok {
		return
	}
	p.lastRate.Store(int64(n))
	for _, r := range p.reporters {
		r.OnRate(n)
	}
}

// SetPaused sets the pause flag.
func (p *Pipeline) SetPaused(paused bool) {
	if p.paused.Swap(paused) != paused {
		p.logger.Info("pause changed", log.Bool("paused", paused))
	}
}

// Paused reports whether ingestion is paused.
func (p *Pipeline) Paused() bool {
	return p.paused.Load()
}

// SetExportEnabled sets the export flag. Batches enqueued from now on carry
// the new value; the worker closes the export file once disabled and every
// export-flagged batch has been written.
func (p *Pipeline) SetExportEnabled(enabled bool) {
	if p.export.Swap(enabled) != enabled {
		p.logger.Info("export changed", log.Bool("export", enabled))
	}
}

// ExportEnabled reports whether new batches are mirrored to the export file.
func (p *Pipeline) ExportEnabled() bool {
	return p.export.Load()
}

// Shutdown queues the shutdown item behind every pending batch and waits
// for the worker to close its files. It is idempotent. No timeout is
// applied; callers needing one can select on Done.
func (p *Pipeline) Shutdown() {
	p.shutdownOnce.Do(func() {
		// closing under mu waits out an in-flight SubmitBytes, so every
		// batch it seals is queued ahead of the shutdown item
		p.mu.Lock()
		p.closed.Store(true)
		pending := p.agg.Pending()
		p.mu.Unlock()

		p.Start()
		p.queue.PushShutdown()
		if pending > 0 {
			p.logger.Debug("discarding partial batch", log.Int("samples", pending))
		}
	})
	<-p.worker.Done()
}

// Done is closed once the worker has exited.
func (p *Pipeline) Done() <-chan struct{} {
	return p.worker.Done()
}

// WorkerState returns the persistence worker's current activity.
func (p *Pipeline) WorkerState() WorkerState {
	return p.worker.State()
}

// Status returns a snapshot of the pipeline.
func (p *Pipeline) Status() domain.Status {
	st := p.worker.Stats()
	return domain.Status{
		Paused:         p.paused.Load(),
		ExportEnabled:  p.export.Load(),
		LogFile:        p.worker.CurrentLog(),
		ExportOpen:     p.worker.ExportOpen(),
		BatchesWritten: st.Batches,
		SamplesWritten: st.Samples,
		ExportBatches:  st.ExportBatches,
		WriteErrors:    st.Errors,
		QueueDepth:     p.queue.Len(),
		Dropped:        p.queue.Dropped(),
		SamplesPerSec:  int(p.lastRate.Load()),
		UpdatedAt:      p.now(),
	}
}

// OnBatchPersisted implements PersistObserver.
func (p *Pipeline) OnBatchPersisted(b domain.Batch, exported bool) {
	for _, o := range p.observers {
		o.OnBatchPersisted(b, exported)
	}
}

// OnPersistError implements PersistObserver.
func (p *Pipeline) OnPersistError(op string, err error) {
	for _, o := range p.observers {
		o.OnPersistError(op, err)
	}
}
