package seriallog

import (
	"time"

	"github.com/bft-labs/seriallog/internal/app"
	"github.com/bft-labs/seriallog/internal/domain"
	"github.com/bft-labs/seriallog/internal/ports"
	"github.com/bft-labs/seriallog/pkg/log"
)

// Re-exported types so callers can implement collaborators without
// reaching into internal packages.
type (
	// Sample is one decoded 12-bit measurement.
	Sample = domain.Sample

	// Batch is an immutable run of samples sealed by the aggregator.
	Batch = domain.Batch

	// Status is a point-in-time view of the pipeline.
	Status = domain.Status

	// BatchSink receives every sealed batch on the ingestion path.
	BatchSink = ports.BatchSink

	// RateReporter receives samples-per-second reports.
	RateReporter = ports.RateReporter

	// ByteSource is a non-blocking byte stream drained by the poller.
	ByteSource = ports.ByteSource

	// StatusRepository persists Status snapshots.
	StatusRepository = ports.StatusRepository

	// Observer receives low-level pipeline activity, for metrics.
	Observer = app.Observer

	// LogField is a structured log field.
	LogField = log.Field
)

// Option configures optional behavior of a Logger.
type Option func(*options)

type options struct {
	logger       log.Logger
	eventHandler EventHandler
	plugins      []Plugin
	sinks        []ports.BatchSink
	reporters    []ports.RateReporter
	observers    []app.Observer
	source       ports.ByteSource
	statusRepo   ports.StatusRepository
	now          func() time.Time
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		now:    time.Now,
	}
}

// WithLogger sets the structured logger. If not provided, a no-op logger
// is used.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithEventHandler sets a handler for lifecycle, persistence and rate
// events.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the Logger starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithBatchSink adds a collaborator receiving every sealed batch, such as
// a live display or a publisher.
func WithBatchSink(sink BatchSink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, sink)
	}
}

// WithRateReporter adds a collaborator receiving rate reports.
func WithRateReporter(r RateReporter) Option {
	return func(o *options) {
		o.reporters = append(o.reporters, r)
	}
}

// WithObserver adds a pipeline observer, typically metrics instruments.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observers = append(o.observers, obs)
	}
}

// WithSource attaches a byte source. Start then runs a poller draining it
// every PollInterval; without a source, feed bytes with SubmitBytes.
func WithSource(src ByteSource) Option {
	return func(o *options) {
		o.source = src
	}
}

// WithStatusRepository replaces the status.json repository.
func WithStatusRepository(repo StatusRepository) Option {
	return func(o *options) {
		o.statusRepo = repo
	}
}

// WithClock sets the wall clock used for batch timestamps, hour buckets
// and rate ticks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
