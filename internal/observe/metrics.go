// Package observe records pipeline metrics through the OpenTelemetry
// Metrics API. A Prometheus exporter bridge is installed by InitProvider so
// the metrics can be scraped from /metrics. Tests should build Metrics on
// their own MeterProvider via NewMetrics.
package observe

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bft-labs/seriallog/internal/domain"
)

// meterName is the instrumentation scope of every seriallog metric.
const meterName = "github.com/bft-labs/seriallog"

// Metrics holds the metric instruments of one pipeline. It implements the
// pipeline observer and ports.RateReporter.
type Metrics struct {
	BytesReceived    metric.Int64Counter
	BatchesSealed    metric.Int64Counter
	BatchesPersisted metric.Int64Counter
	SamplesPersisted metric.Int64Counter
	BatchesDropped   metric.Int64Counter
	PersistErrors    metric.Int64Counter
	SampleRate       metric.Int64Gauge

	queueDepth metric.Int64ObservableGauge
	depthFn    atomic.Pointer[func() int]
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.BytesReceived, err = m.Int64Counter("seriallog.bytes.received",
		metric.WithDescription("Raw bytes submitted to the frame decoder."),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if met.BatchesSealed, err = m.Int64Counter("seriallog.batches.sealed",
		metric.WithDescription("Batches sealed by the aggregator."),
	); err != nil {
		return nil, err
	}
	if met.BatchesPersisted, err = m.Int64Counter("seriallog.batches.persisted",
		metric.WithDescription("Batches handled by the persistence worker, by export flag."),
	); err != nil {
		return nil, err
	}
	if met.SamplesPersisted, err = m.Int64Counter("seriallog.samples.persisted",
		metric.WithDescription("Samples handled by the persistence worker."),
	); err != nil {
		return nil, err
	}
	if met.BatchesDropped, err = m.Int64Counter("seriallog.batches.dropped",
		metric.WithDescription("Batches evicted from a full work queue."),
	); err != nil {
		return nil, err
	}
	if met.PersistErrors, err = m.Int64Counter("seriallog.persist.errors",
		metric.WithDescription("Log and export file failures, by operation."),
	); err != nil {
		return nil, err
	}
	if met.SampleRate, err = m.Int64Gauge("seriallog.samples.rate",
		metric.WithDescription("Samples per second over the last reporting interval."),
		metric.WithUnit("{sample}/s"),
	); err != nil {
		return nil, err
	}
	if met.queueDepth, err = m.Int64ObservableGauge("seriallog.queue.depth",
		metric.WithDescription("Items waiting for the persistence worker."),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			if fn := met.depthFn.Load(); fn != nil {
				o.Observe(int64((*fn)()))
			}
			return nil
		}),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// ObserveQueueDepth sets the function sampled by the queue depth gauge.
func (m *Metrics) ObserveQueueDepth(fn func() int) {
	m.depthFn.Store(&fn)
}

// OnBytes records submitted bytes.
func (m *Metrics) OnBytes(n int) {
	m.BytesReceived.Add(context.Background(), int64(n))
}

// OnBatchSealed records a sealed batch.
func (m *Metrics) OnBatchSealed(domain.Batch) {
	m.BatchesSealed.Add(context.Background(), 1)
}

// OnBatchDropped records a batch evicted from the queue.
func (m *Metrics) OnBatchDropped() {
	m.BatchesDropped.Add(context.Background(), 1)
}

// OnBatchPersisted records a batch the worker has handled.
func (m *Metrics) OnBatchPersisted(b domain.Batch, exported bool) {
	ctx := context.Background()
	m.BatchesPersisted.Add(ctx, 1, metric.WithAttributes(attribute.Bool("exported", exported)))
	m.SamplesPersisted.Add(ctx, int64(b.Len()))
}

// OnPersistError records a worker failure.
func (m *Metrics) OnPersistError(op string, _ error) {
	m.PersistErrors.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", op)))
}

// OnRate records the latest samples-per-second report.
func (m *Metrics) OnRate(n int) {
	m.SampleRate.Record(context.Background(), int64(n))
}
