package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bft-labs/seriallog/internal/ports"
	"github.com/bft-labs/seriallog/pkg/log"
)

const (
	// DefaultPollInterval is the cadence at which the transport is drained.
	DefaultPollInterval = 10 * time.Millisecond

	// DefaultMaxChunksPerPoll bounds how many chunks one poll consumes so
	// the rate monitor keeps ticking under a flood.
	DefaultMaxChunksPerPoll = 64
)

// ErrStreamEnded reports that the byte source returned io.EOF.
var ErrStreamEnded = errors.New("byte stream ended")

// PollerConfig configures a Poller.
type PollerConfig struct {
	Source    ports.ByteSource
	Interval  time.Duration
	MaxChunks int
	Logger    ports.Logger

	// Now returns the monotonic clock handed to Tick.
	Now func() time.Time
}

// Poller drains a ByteSource into a Pipeline on a fixed cadence and ticks
// the rate monitor. While the pipeline is paused the source is not read.
type Poller struct {
	pipeline *Pipeline
	source   ports.ByteSource
	interval time.Duration
	max      int
	logger   ports.Logger
	now      func() time.Time
	bytes    uint64
}

// NewPoller creates a poller feeding p.
func NewPoller(p *Pipeline, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = DefaultMaxChunksPerPoll
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNoopLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Poller{
		pipeline: p,
		source:   cfg.Source,
		interval: cfg.Interval,
		max:      cfg.MaxChunks,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
}

// Run polls until ctx is cancelled or the source fails. End of stream
// returns ErrStreamEnded; callers treat it as a normal end of run.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		err := p.poll()
		p.pipeline.Tick(p.now())
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.logger.Info("byte stream ended", log.Uint64("bytes", p.bytes))
				return ErrStreamEnded
			}
			return fmt.Errorf("read transport: %w", err)
		}
	}
}

func (p *Poller) poll() error {
	if p.pipeline.Paused() {
		return nil
	}
	for i := 0; i < p.max; i++ {
		chunk, err := p.source.TryRead()
		if len(chunk) > 0 {
			p.bytes += uint64(len(chunk))
			p.pipeline.SubmitBytes(chunk)
		}
		if err != nil {
			return err
		}
		if len(chunk) == 0 {
			return nil
		}
	}
	return nil
}
