package seriallog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bft-labs/seriallog/internal/adapters/fs"
	"github.com/bft-labs/seriallog/internal/app"
	"github.com/bft-labs/seriallog/internal/domain"
	"github.com/bft-labs/seriallog/internal/ports"
	"github.com/bft-labs/seriallog/pkg/frame"
	"github.com/bft-labs/seriallog/pkg/log"
)

// Logger is an instrument acquisition and logging pipeline that can be
// embedded in other applications. Use New to create an instance, then
// Start to begin persisting.
type Logger struct {
	config     Config
	opts       options
	lifecycle  *app.Lifecycle
	events     *eventBridge
	statusRepo ports.StatusRepository
	logger     log.Logger
	plugins    []Plugin

	// flags outlive a single run
	paused atomic.Bool
	export atomic.Bool

	mu  sync.Mutex
	cur atomic.Pointer[run]
}

// run holds what one Start/Stop cycle owns.
type run struct {
	pipeline *app.Pipeline
	cancel   context.CancelFunc
	kick     chan struct{}
	done     chan struct{}

	once sync.Once
	mu   sync.Mutex
	err  error
}

func (r *run) finish(err error) {
	r.once.Do(func() {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		close(r.done)
	})
}

// New creates a Logger in StateStopped. It returns an error if the
// configuration is invalid.
func New(cfg Config, opts ...Option) (*Logger, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	events := &eventBridge{handler: o.eventHandler, now: o.now}
	statusRepo := o.statusRepo
	if statusRepo == nil {
		statusRepo = fs.NewStatusFileRepository(cfg.StateDir)
	}

	l := &Logger{
		config:     cfg,
		opts:       o,
		lifecycle:  app.NewLifecycle(o.logger, events),
		events:     events,
		statusRepo: statusRepo,
		logger:     o.logger,
		plugins:    o.plugins,
	}
	l.paused.Store(cfg.Paused)
	l.export.Store(cfg.ExportEnabled)
	return l, nil
}

// Start opens a new run: it builds the pipeline, initializes plugins,
// launches the persistence worker and, when a source is attached, the
// poller. It returns once everything is running.
func (l *Logger) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	// a timed-out Stop leaves the old worker writing to the same bucket
	if prev := l.cur.Load(); prev != nil {
		select {
		case <-prev.pipeline.Done():
		default:
			return fmt.Errorf("%w: previous run is still draining", domain.ErrAlreadyRunning)
		}
	}
	if err := l.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	r := &run{
		kick: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	p, err := app.NewPipeline(l.pipelineConfig(r))
	if err != nil {
		_ = l.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}
	r.pipeline = p

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	l.lifecycle.SetCancel(cancel)
	l.cur.Store(r)

	pluginCfg := PluginConfig{
		LogDir:     l.config.LogDir,
		ExportFile: l.config.ExportFile,
		StateDir:   l.config.StateDir,
		Logger:     l.logger,
		Control:    l,
	}
	for _, pl := range l.plugins {
		if err := safeInitialize(runCtx, pl, pluginCfg); err != nil {
			l.logger.Error("plugin initialization failed",
				log.String("plugin", pl.Name()),
				log.Err(err))
			cancel()
			p.Shutdown()
			r.finish(err)
			_ = l.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+pl.Name())
			return err
		}
		l.logger.Info("plugin initialized", log.String("plugin", pl.Name()))
	}

	p.Start()
	l.lifecycle.Go(func() { l.statusLoop(runCtx, r) })

	if src := l.opts.source; src != nil {
		poller := app.NewPoller(p, app.PollerConfig{
			Source:   src,
			Interval: l.config.PollInterval,
			Logger:   log.With(l.logger, log.String("component", "poller")),
			Now:      l.opts.now,
		})
		l.lifecycle.Go(func() {
			err := poller.Run(runCtx)
			switch {
			case errors.Is(err, app.ErrStreamEnded):
				r.finish(nil)
			case err != nil:
				l.logger.Error("poller stopped", log.Err(err))
				r.finish(err)
			}
		})
	}

	return l.lifecycle.TransitionTo(app.StateRunning, "pipeline started")
}

func (l *Logger) pipelineConfig(r *run) app.PipelineConfig {
	kick := ports.RateReporterFunc(func(int) {
		select {
		case r.kick <- struct{}{}:
		default:
		}
	})
	return app.PipelineConfig{
		BatchSize:     l.config.BatchSize,
		RateInterval:  l.config.RateInterval,
		WorkerTick:    l.config.WorkerTick,
		QueuePolicy:   l.config.queuePolicy(),
		QueueCapacity: l.config.QueueCapacity,
		Log:           fs.NewRotatingLog(l.config.LogDir),
		Export:        fs.NewExportFile(l.config.ExportFile),
		Sinks:         l.opts.sinks,
		Reporters:     append(append([]ports.RateReporter{}, l.opts.reporters...), l.events, kick),
		Observers:     append(append([]app.Observer{}, l.opts.observers...), l.events),
		Logger:        l.logger,
		Now:           l.opts.now,
		Paused:        l.paused.Load(),
		ExportEnabled: l.export.Load(),
	}
}

// statusLoop saves a status snapshot after every rate report.
func (l *Logger) statusLoop(ctx context.Context, r *run) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.kick:
			l.saveStatus(ctx, r.pipeline)
		}
	}
}

func (l *Logger) saveStatus(ctx context.Context, p *app.Pipeline) {
	if err := l.statusRepo.Save(ctx, p.Status()); err != nil {
		l.logger.Warn("failed to save status", log.Err(err))
	}
}

// Stop drains every queued batch, closes the log and export files and
// shuts plugins down. With the default zero Config.ShutdownTimeout it
// returns only once the worker has exited. A positive timeout bounds the
// wait and yields ErrShutdownTimeout; the worker keeps draining in the
// background and Start is refused until it exits.
func (l *Logger) Stop() error {
	l.mu.Lock()
	if !l.lifecycle.CanStop() {
		l.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := l.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		l.mu.Unlock()
		return err
	}
	r := l.cur.Load()
	r.cancel()
	l.mu.Unlock()

	l.lifecycle.Go(r.pipeline.Shutdown)
	var err error
	if l.config.ShutdownTimeout > 0 {
		err = l.lifecycle.WaitWithTimeout(l.config.ShutdownTimeout)
	} else {
		l.lifecycle.Wait()
	}
	if err == nil {
		l.saveStatus(context.Background(), r.pipeline)
	}

	shutdownCtx := context.Background()
	for i := len(l.plugins) - 1; i >= 0; i-- {
		pl := l.plugins[i]
		if shutdownErr := safeShutdown(shutdownCtx, pl); shutdownErr != nil {
			l.logger.Error("plugin shutdown failed",
				log.String("plugin", pl.Name()),
				log.Err(shutdownErr))
		} else {
			l.logger.Info("plugin shutdown complete", log.String("plugin", pl.Name()))
		}
	}

	r.finish(nil)
	if err != nil {
		_ = l.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = l.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Shutdown is Stop without the error. With the default configuration it
// returns after every queued batch is on disk. It is safe to call more
// than once.
func (l *Logger) Shutdown() {
	if err := l.Stop(); err != nil && !errors.Is(err, domain.ErrNotRunning) {
		l.logger.Warn("shutdown incomplete", log.Err(err))
	}
}

// SubmitBytes feeds a raw chunk from the transport. It does nothing while
// paused or when no run is active.
func (l *Logger) SubmitBytes(chunk []byte) {
	if r := l.cur.Load(); r != nil {
		r.pipeline.SubmitBytes(chunk)
	}
}

// SetPaused sets the pause flag. While paused the attached source is not
// read at all, so bytes stay with the transport until ingestion resumes.
// SubmitBytes calls made while paused are ignored.
func (l *Logger) SetPaused(paused bool) {
	l.paused.Store(paused)
	if r := l.cur.Load(); r != nil {
		r.pipeline.SetPaused(paused)
	}
}

// Paused reports whether ingestion is paused.
func (l *Logger) Paused() bool {
	return l.paused.Load()
}

// SetExportEnabled toggles mirroring of new batches to the export file.
func (l *Logger) SetExportEnabled(enabled bool) {
	l.export.Store(enabled)
	if r := l.cur.Load(); r != nil {
		r.pipeline.SetExportEnabled(enabled)
	}
}

// ExportEnabled reports whether new batches are mirrored to the export file.
func (l *Logger) ExportEnabled() bool {
	return l.export.Load()
}

// CurrentLogFile returns the hour bucket file being written, or "".
func (l *Logger) CurrentLogFile() string {
	if r := l.cur.Load(); r != nil {
		return r.pipeline.Status().LogFile
	}
	return ""
}

// Status returns the current lifecycle state.
// Safe to call concurrently from any goroutine.
func (l *Logger) Status() State {
	return convertState(l.lifecycle.State())
}

// Snapshot returns counters and flags of the current run.
func (l *Logger) Snapshot() Status {
	if r := l.cur.Load(); r != nil {
		return r.pipeline.Status()
	}
	return Status{Paused: l.paused.Load(), ExportEnabled: l.export.Load()}
}

// Done is closed when the current run ends: the attached source reached
// end of stream or failed, or Stop completed. It is nil before Start.
func (l *Logger) Done() <-chan struct{} {
	if r := l.cur.Load(); r != nil {
		return r.done
	}
	return nil
}

// Err returns why the current run ended, or nil for a clean end.
func (l *Logger) Err() error {
	r := l.cur.Load()
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// validateModuleVersions checks that all module versions are compatible.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"frame": {frame.Version, frame.MinCompatibleVersion},
		"log":   {log.Version, log.MinCompatibleVersion},
	}

	for name, m := range modules {
		if !isVersionCompatible(m.version, m.minVersion) {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

// isVersionCompatible checks if version >= minVersion.
// Assumes versions are in format "major.minor.patch".
func isVersionCompatible(version, minVersion string) bool {
	var vMajor, vMinor, vPatch int
	var mMajor, mMinor, mPatch int

	_, _ = fmt.Sscanf(version, "%d.%d.%d", &vMajor, &vMinor, &vPatch)
	_, _ = fmt.Sscanf(minVersion, "%d.%d.%d", &mMajor, &mMinor, &mPatch)

	if vMajor != mMajor {
		return vMajor > mMajor
	}
	if vMinor != mMinor {
		return vMinor > mMinor
	}
	return vPatch >= mPatch
}
