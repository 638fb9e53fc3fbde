package seriallog

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/bft-labs/seriallog/internal/adapters/fs"
	"github.com/bft-labs/seriallog/internal/app"
	"github.com/bft-labs/seriallog/internal/domain"
)

// Config holds the settings of a Logger instance.
// Zero values are replaced by SetDefaults.
type Config struct {
	// LogDir receives the hourly serial_log_<YYYY-MM-DD_HH>.txt files.
	// Default: current directory
	LogDir string

	// ExportFile is the append-only export file.
	// Default: <LogDir>/export_data.txt
	ExportFile string

	// StateDir receives status.json.
	// Default: LogDir
	StateDir string

	// BatchSize is the number of samples per batch. Default: 5000
	BatchSize int

	// RateInterval is the samples-per-second reporting interval. Default: 1s
	RateInterval time.Duration

	// WorkerTick is how often an idle worker re-checks the export file. Default: 1s
	WorkerTick time.Duration

	// PollInterval is the transport drain cadence when a source is attached
	// with WithSource. Default: 10ms
	PollInterval time.Duration

	// QueuePolicy is one of "unbounded", "block" or "drop-oldest".
	// Default: unbounded
	QueuePolicy string

	// QueueCapacity bounds the work queue for the block and drop-oldest
	// policies.
	QueueCapacity int

	// ExportEnabled and Paused are the initial control flags.
	ExportEnabled bool
	Paused        bool

	// ShutdownTimeout bounds how long Stop waits for the worker to drain.
	// Zero waits until every queued batch is on disk. Default: 0
	ShutdownTimeout time.Duration
}

// SetDefaults fills zero-valued fields with their defaults.
func (c *Config) SetDefaults() {
	if c.LogDir == "" {
		c.LogDir = "."
	}
	if c.ExportFile == "" {
		c.ExportFile = filepath.Join(c.LogDir, fs.DefaultExportFileName)
	}
	if c.StateDir == "" {
		c.StateDir = c.LogDir
	}
	if c.BatchSize == 0 {
		c.BatchSize = app.DefaultBatchSize
	}
	if c.RateInterval == 0 {
		c.RateInterval = app.DefaultRateInterval
	}
	if c.WorkerTick == 0 {
		c.WorkerTick = app.DefaultIdleTick
	}
	if c.PollInterval == 0 {
		c.PollInterval = app.DefaultPollInterval
	}
	if c.QueuePolicy == "" {
		c.QueuePolicy = app.PolicyUnbounded.String()
	}
}

// Validate checks the configuration. Call SetDefaults first.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be positive", domain.ErrInvalidConfig)
	}
	if c.RateInterval <= 0 || c.WorkerTick <= 0 || c.PollInterval <= 0 {
		return fmt.Errorf("%w: intervals must be positive", domain.ErrInvalidConfig)
	}
	if c.ShutdownTimeout < 0 {
		return fmt.Errorf("%w: shutdown timeout must not be negative", domain.ErrInvalidConfig)
	}
	if c.QueueCapacity < 0 {
		return fmt.Errorf("%w: queue capacity must not be negative", domain.ErrInvalidConfig)
	}
	policy, err := app.ParseQueuePolicy(c.QueuePolicy)
	if err != nil {
		return err
	}
	if policy != app.PolicyUnbounded && c.QueueCapacity == 0 {
		return fmt.Errorf("%w: queue policy %s needs a capacity", domain.ErrInvalidConfig, policy)
	}
	return nil
}

func (c *Config) queuePolicy() app.QueuePolicy {
	p, _ := app.ParseQueuePolicy(c.QueuePolicy)
	return p
}
