// Package logretention bounds the disk usage of the hourly sample logs.
// When enabled, it periodically sums the size of the serial_log_*.txt
// files and removes the oldest buckets once a high watermark is exceeded.
// The bucket being written is never removed.
package logretention

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/seriallog/internal/adapters/fs"
	"github.com/bft-labs/seriallog/pkg/log"
	"github.com/bft-labs/seriallog/pkg/seriallog"
)

// Plugin implements log retention.
type Plugin struct {
	mu sync.RWMutex

	// Configuration
	checkInterval  time.Duration
	highWatermark  int64
	lowWatermark   int64
	runImmediately bool

	// Runtime state
	logDir  string
	control seriallog.Control
	logger  log.Logger
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Config holds configuration options for the retention plugin.
type Config struct {
	// CheckInterval is how often to check the log directory size.
	// Default: 5 minutes
	CheckInterval time.Duration

	// HighWatermark is the size in bytes above which cleanup begins.
	// Default: 1 GiB
	HighWatermark int64

	// LowWatermark is the target size in bytes after cleanup.
	// Default: 80% of HighWatermark
	LowWatermark int64

	// RunImmediately runs a check on startup.
	RunImmediately bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval:  5 * time.Minute,
		HighWatermark:  1 << 30,
		LowWatermark:   (1 << 30) * 8 / 10,
		RunImmediately: true,
	}
}

// New creates a retention plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 5 * time.Minute
	}
	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = 1 << 30
	}
	if cfg.LowWatermark <= 0 || cfg.LowWatermark >= cfg.HighWatermark {
		cfg.LowWatermark = cfg.HighWatermark * 8 / 10
	}

	return &Plugin{
		checkInterval:  cfg.CheckInterval,
		highWatermark:  cfg.HighWatermark,
		lowWatermark:   cfg.LowWatermark,
		runImmediately: cfg.RunImmediately,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "logretention"
}

// Initialize starts the retention loop.
func (p *Plugin) Initialize(ctx context.Context, cfg seriallog.PluginConfig) error {
	p.mu.Lock()
	p.logDir = cfg.LogDir
	p.control = cfg.Control
	p.logger = log.With(cfg.Logger, log.String("plugin", p.Name()))
	p.mu.Unlock()

	if p.logDir == "" {
		p.logger.Warn("log retention disabled: no log directory configured")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("log retention enabled",
		log.Int64("high_watermark", p.highWatermark),
		log.Int64("low_watermark", p.lowWatermark),
		log.Duration("interval", p.checkInterval),
	)

	p.wg.Add(1)
	go p.loop(loopCtx)
	return nil
}

// Shutdown stops the retention loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) loop(ctx context.Context) {
	defer p.wg.Done()

	if p.runImmediately {
		p.checkOnce(ctx)
	}

	ticker := time.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.checkOnce(ctx)
		}
	}
}

// checkOnce runs a single retention pass.
func (p *Plugin) checkOnce(ctx context.Context) fs.PruneResult {
	p.mu.RLock()
	dir := p.logDir
	control := p.control
	p.mu.RUnlock()

	var protect string
	if control != nil {
		protect = control.CurrentLogFile()
	}

	res, err := fs.PruneLogFiles(ctx, dir, p.highWatermark, p.lowWatermark, protect)
	if err != nil && ctx.Err() == nil {
		p.logger.Error("log retention pass failed", log.Err(err))
	}
	if len(res.Removed) > 0 {
		p.logger.Info("log retention completed",
			log.Int("files_removed", len(res.Removed)),
			log.Int64("bytes_freed", res.Freed),
		)
	}
	return res
}

// Ensure Plugin implements seriallog.Plugin.
var _ seriallog.Plugin = (*Plugin)(nil)
