package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"
)

// scriptSource returns its chunks in order and then err.
type scriptSource struct {
	mu     sync.Mutex
	chunks [][]byte
	err    error
	reads  int
}

func (s *scriptSource) TryRead() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	if len(s.chunks) == 0 {
		return nil, s.err
	}
	c := s.chunks[0]
	s.chunks = s.chunks[1:]
	return c, nil
}

func (s *scriptSource) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func TestPoller_DrainsUntilEOF(t *testing.T) {
	h := newHarness(t, 2)
	raw := encode(1, 2, 3, 4, 5, 6)
	src := &scriptSource{err: io.EOF}
	for i := 0; i < len(raw); i += 3 {
		src.chunks = append(src.chunks, raw[i:i+3])
	}

	poller := NewPoller(h.p, PollerConfig{Source: src, Interval: time.Millisecond})
	err := poller.Run(context.Background())
	if !errors.Is(err, ErrStreamEnded) {
		t.Fatalf("Run() = %v, want ErrStreamEnded", err)
	}
	h.p.Shutdown()

	if !equalSamples(h.log.all(), samplesOf(1, 2, 3, 4, 5, 6)) {
		t.Errorf("log = %v", h.log.all())
	}
}

func TestPoller_ReadErrorIsTerminal(t *testing.T) {
	h := newHarness(t, 2)
	boom := errors.New("device unplugged")
	src := &scriptSource{err: boom}

	err := NewPoller(h.p, PollerConfig{Source: src, Interval: time.Millisecond}).Run(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Run() = %v, want wrapped %v", err, boom)
	}
}

func TestPoller_PausedDoesNotRead(t *testing.T) {
	h := newHarness(t, 2)
	h.p.SetPaused(true)
	src := &scriptSource{}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if err := NewPoller(h.p, PollerConfig{Source: src, Interval: time.Millisecond}).Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if n := src.readCount(); n != 0 {
		t.Errorf("source read %d times while paused", n)
	}
}

func TestPoller_TicksRateMonitor(t *testing.T) {
	h := newHarness(t, 1)
	src := &scriptSource{chunks: [][]byte{encode(1, 2, 3)}}

	ctx, cancel := context.WithTimeout(context.Background(), 400*time.Millisecond)
	defer cancel()
	NewPoller(h.p, PollerConfig{Source: src, Interval: 5 * time.Millisecond}).Run(ctx)

	h.mu.Lock()
	defer h.mu.Unlock()
	total := 0
	for _, n := range h.rate {
		total += n
	}
	if len(h.rate) == 0 || total != 3 {
		t.Errorf("rate reports = %v, want a total of 3", h.rate)
	}
}

func TestPoller_BoundsChunksPerPoll(t *testing.T) {
	h := newHarness(t, 1)
	src := &scriptSource{}
	for i := 0; i < 10; i++ {
		src.chunks = append(src.chunks, encode(uint16(i)))
	}

	p := NewPoller(h.p, PollerConfig{Source: src, MaxChunks: 4})
	if err := p.poll(); err != nil {
		t.Fatal(err)
	}
	if n := src.readCount(); n != 4 {
		t.Errorf("read %d chunks in one poll, want 4", n)
	}
}
