package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/seriallog/internal/adapters/mqtt"
	"github.com/bft-labs/seriallog/internal/adapters/transport"
	"github.com/bft-labs/seriallog/internal/cliconfig"
	"github.com/bft-labs/seriallog/internal/observe"
	logAdapter "github.com/bft-labs/seriallog/pkg/log"
	"github.com/bft-labs/seriallog/pkg/seriallog"
	"github.com/bft-labs/seriallog/plugins/configwatcher"
	"github.com/bft-labs/seriallog/plugins/logretention"
)

const (
	metricsShutdownTimeout = 5 * time.Second
	metricsReadTimeout     = 10 * time.Second
)

// errRunEnded cancels the run group when the byte stream is over.
var errRunEnded = errors.New("run ended")

type runOptions struct {
	logger     zerolog.Logger
	configFile string
	version    string

	// toggles overrides the signals that flip export and pause.
	toggles <-chan os.Signal
}

// run wires the logger to its collaborators and blocks until a shutdown
// signal, end of stream or a transport failure. The logger is always
// stopped before run returns, so every queued batch is on disk.
func run(ctx context.Context, cfg cliconfig.Config, ro runOptions) error {
	logger := logAdapter.NewZerologAdapterWithLogger(ro.logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := []seriallog.Option{seriallog.WithLogger(logger)}

	// A device that cannot be opened is fatal, but the logger is still
	// started and stopped so the shutdown sequence runs as usual.
	var reader *transport.ChunkReader
	rc, openErr := transport.Open(cfg.Device)
	if openErr == nil {
		reader = transport.NewChunkReader(rc, cfg.ReadSize)
		defer reader.Close()
		opts = append(opts, seriallog.WithSource(reader))
	}

	var metrics *observe.Metrics
	var provider *observe.Provider
	if cfg.MetricsAddr != "" {
		var err error
		provider, err = observe.InitProvider(ctx, observe.ProviderConfig{
			ServiceName:    "seriallog",
			ServiceVersion: ro.version,
		})
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			_ = provider.Shutdown(sctx)
		}()
		metrics, err = observe.NewMetrics(provider.MeterProvider)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		opts = append(opts, seriallog.WithObserver(metrics), seriallog.WithRateReporter(metrics))
	}

	var client *mqtt.Client
	var publisher *mqtt.Publisher
	if cfg.MQTTBroker != "" {
		var err error
		client, err = mqtt.Connect(mqtt.Config{
			Broker:      cfg.MQTTBroker,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopic,
		}, logAdapter.With(logger, logAdapter.String("component", "mqtt")))
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer client.Close()
		publisher = mqtt.NewPublisher(client, client.Topics(), logger)
		defer publisher.Close()
		opts = append(opts, seriallog.WithBatchSink(publisher), seriallog.WithRateReporter(publisher))
	}

	if cfg.RetentionHighMB > 0 {
		opts = append(opts, logretention.WithLogRetention(logretention.Config{
			CheckInterval:  cfg.RetentionInterval,
			HighWatermark:  int64(cfg.RetentionHighMB) << 20,
			LowWatermark:   int64(cfg.RetentionLowMB) << 20,
			RunImmediately: true,
		}))
	}
	if ro.configFile != "" {
		opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{Path: ro.configFile}))
	}

	l, err := seriallog.New(libConfig(cfg), opts...)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	if err := l.Start(ctx); err != nil {
		return fmt.Errorf("start logger: %w", err)
	}

	if openErr != nil {
		stopErr := l.Stop()
		return errors.Join(fmt.Errorf("open device: %w", openErr), stopErr)
	}

	if metrics != nil {
		metrics.ObserveQueueDepth(func() int { return l.Snapshot().QueueDepth })
	}
	if client != nil {
		if err := mqtt.SubscribeControl(client, client.Topics(), l, logger); err != nil {
			logger.Warn("remote control unavailable", logAdapter.Err(err))
		}
	}

	toggles := ro.toggles
	if toggles == nil {
		ch := make(chan os.Signal, 4)
		if sigs := toggleSignals(); len(sigs) > 0 {
			signal.Notify(ch, sigs...)
			defer signal.Stop(ch)
		}
		toggles = ch
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case <-l.Done():
			if err := l.Err(); err != nil {
				return err
			}
			return errRunEnded
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case sig := <-toggles:
				handleToggle(sig, l, logger)
			}
		}
	})

	if provider != nil {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metricsMux(provider),
			ReadHeaderTimeout: metricsReadTimeout,
		}
		g.Go(func() error {
			logger.Info("serving metrics", logAdapter.String("addr", cfg.MetricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	runErr := g.Wait()
	switch {
	case errors.Is(runErr, errRunEnded):
		runErr = nil
		logger.Info("input ended, stopping")
	case runErr == nil:
		logger.Info("received signal, stopping")
	}

	stopErr := l.Stop()
	snap := l.Snapshot()
	logger.Info("stopped",
		logAdapter.Uint64("batches", snap.BatchesWritten),
		logAdapter.Uint64("samples", snap.SamplesWritten),
		logAdapter.Uint64("write_errors", snap.WriteErrors),
	)
	return errors.Join(runErr, stopErr)
}

func libConfig(cfg cliconfig.Config) seriallog.Config {
	return seriallog.Config{
		LogDir:        cfg.LogDir,
		ExportFile:    cfg.ExportFile,
		StateDir:      cfg.StateDir,
		BatchSize:     cfg.BatchSize,
		RateInterval:  cfg.RateInterval,
		WorkerTick:    cfg.WorkerTick,
		PollInterval:  cfg.PollInterval,
		QueuePolicy:   cfg.QueuePolicy,
		QueueCapacity: cfg.QueueCapacity,
		ExportEnabled: cfg.Export,
		Paused:        cfg.Paused,
	}
}

func metricsMux(p *observe.Provider) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	return mux
}
