package transport

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/bft-labs/seriallog/pkg/frame"
)

// DefaultSimulatorRate matches the sample rate of the acquisition board.
const DefaultSimulatorRate = 50000

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	// Rate is the number of samples per second. Negative means unpaced.
	Rate int

	// Limit ends the stream with io.EOF after this many samples.
	// Zero means endless.
	Limit int

	// Step is the sawtooth increment. Zero means 1.
	Step int

	// Noise adds uniform jitter of up to +/-Noise to each sample.
	Noise int

	// GlitchEvery inserts one stray unmarked byte after every N frames
	// so the decoder's resync path is exercised. Zero disables it.
	GlitchEvery int

	// Seed seeds the noise generator.
	Seed int64
}

// Simulator is an io.ReadCloser emitting framed sawtooth samples the way
// the instrument firmware does.
type Simulator struct {
	cfg   SimulatorConfig
	rng   *rand.Rand
	start time.Time
	sleep func(time.Duration)
	now   func() time.Time

	mu      sync.Mutex
	value   int
	emitted int
	frames  int
	pending []byte
	closed  bool
}

// NewSimulator creates a simulator.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.Rate == 0 {
		cfg.Rate = DefaultSimulatorRate
	}
	if cfg.Step == 0 {
		cfg.Step = 1
	}
	return &Simulator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// Read fills p with whole frames. Paced simulators block until at least
// one sample is due.
func (s *Simulator) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, io.ErrClosedPipe
	}
	if s.cfg.Limit > 0 && s.emitted >= s.cfg.Limit && len(s.pending) == 0 {
		return 0, io.EOF
	}
	if s.start.IsZero() {
		s.start = s.now()
	}

	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	if n == len(p) {
		return n, nil
	}

	// a frame that does not fit spills into pending
	budget := (len(p) - n + 1) / 2
	due := s.due()
	if due == 0 && n == 0 {
		s.mu.Unlock()
		s.sleep(s.interval())
		s.mu.Lock()
		if s.closed {
			return 0, io.ErrClosedPipe
		}
		due = 1
	}
	if due < budget {
		budget = due
	}

	for i := 0; i < budget; i++ {
		if s.cfg.Limit > 0 && s.emitted >= s.cfg.Limit {
			break
		}
		enc := frame.Encode(s.next())
		s.emitted++
		s.frames++

		out := enc[:]
		if s.cfg.GlitchEvery > 0 && s.frames%s.cfg.GlitchEvery == 0 {
			out = append(out, 0x3F)
		}
		c := copy(p[n:], out)
		n += c
		if c < len(out) {
			s.pending = append(s.pending, out[c:]...)
			break
		}
	}
	return n, nil
}

// due returns how many samples the pacing allows right now.
func (s *Simulator) due() int {
	if s.cfg.Rate < 0 {
		return int(^uint(0) >> 1)
	}
	elapsed := s.now().Sub(s.start)
	want := int(elapsed.Seconds() * float64(s.cfg.Rate))
	if d := want - s.emitted; d > 0 {
		return d
	}
	return 0
}

func (s *Simulator) interval() time.Duration {
	if s.cfg.Rate <= 0 {
		return 0
	}
	return time.Second / time.Duration(s.cfg.Rate)
}

func (s *Simulator) next() uint16 {
	v := s.value
	s.value = (s.value + s.cfg.Step) % (int(frame.MaxValue) + 1)
	if s.cfg.Noise > 0 {
		v += s.rng.Intn(2*s.cfg.Noise+1) - s.cfg.Noise
	}
	if v < 0 {
		v = 0
	}
	if v > int(frame.MaxValue) {
		v = int(frame.MaxValue)
	}
	return uint16(v)
}

// Emitted returns how many samples have been produced.
func (s *Simulator) Emitted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitted
}

// Close ends the stream.
func (s *Simulator) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
