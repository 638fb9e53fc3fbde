package mqtt

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
	"github.com/bft-labs/seriallog/internal/ports"
)

// DefaultPublishBuffer is the number of messages held for the publishing
// goroutine before new ones are dropped.
const DefaultPublishBuffer = 64

// Sender is the publishing side of Client.
type Sender interface {
	Publish(topic string, payload []byte, retained bool) error
}

type batchMessage struct {
	Seq       uint64    `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
	Samples   []int     `json:"samples"`
}

type rateMessage struct {
	SamplesPerSec int       `json:"samples_per_sec"`
	At            time.Time `json:"at"`
}

// outbound is a queued message. Batches travel unencoded and are
// marshalled on the publishing goroutine.
type outbound struct {
	topic   string
	payload []byte
	batch   domain.Batch
}

// Publisher forwards batches and rate reports to MQTT. It implements
// ports.BatchSink and ports.RateReporter.
type Publisher struct {
	sender  Sender
	topics  Topics
	logger  ports.Logger
	batches bool
	now     func() time.Time

	out     chan outbound
	quit    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Uint64
	failed  atomic.Uint64
	sent    atomic.Uint64
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithoutBatches publishes rate reports only.
func WithoutBatches() PublisherOption {
	return func(p *Publisher) { p.batches = false }
}

// WithBuffer sets the outbound buffer size.
func WithBuffer(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.out = make(chan outbound, n)
		}
	}
}

// NewPublisher starts a publisher sending through sender.
func NewPublisher(sender Sender, topics Topics, logger ports.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		sender:  sender,
		topics:  topics,
		logger:  logger,
		batches: true,
		now:     time.Now,
		out:     make(chan outbound, DefaultPublishBuffer),
		quit:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// OnBatch implements ports.BatchSink. It only queues the batch, so the
// caller never pays for encoding.
func (p *Publisher) OnBatch(b domain.Batch) {
	if !p.batches {
		return
	}
	p.enqueue(outbound{topic: p.topics.Batch(), batch: b})
}

// OnRate implements ports.RateReporter.
func (p *Publisher) OnRate(n int) {
	payload, err := json.Marshal(rateMessage{SamplesPerSec: n, At: p.now().UTC()})
	if err != nil {
		p.logger.Error("encode rate message", ports.Err(err))
		return
	}
	p.enqueue(outbound{topic: p.topics.Rate(), payload: payload})
}

func (p *Publisher) enqueue(m outbound) {
	select {
	case <-p.quit:
		return
	default:
	}
	select {
	case p.out <- m:
	default:
		if p.dropped.Add(1)%100 == 1 {
			p.logger.Warn("mqtt publish buffer full, dropping messages",
				ports.Uint64("dropped", p.dropped.Load()),
			)
		}
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case m := <-p.out:
			p.send(m)
		case <-p.quit:
			// flush what is already buffered
			for {
				select {
				case m := <-p.out:
					p.send(m)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) send(m outbound) {
	payload := m.payload
	if payload == nil {
		var err error
		payload, err = json.Marshal(batchMessage{Seq: m.batch.Seq(), CreatedAt: m.batch.CreatedAt(), Samples: m.batch.Ints()})
		if err != nil {
			p.failed.Add(1)
			p.logger.Error("encode batch message", ports.Err(err))
			return
		}
	}
	if err := p.sender.Publish(m.topic, payload, false); err != nil {
		p.failed.Add(1)
		p.logger.Debug("mqtt publish failed", ports.String("topic", m.topic), ports.Err(err))
		return
	}
	p.sent.Add(1)
}

// PublisherStats are cumulative publisher counters.
type PublisherStats struct {
	Sent    uint64
	Failed  uint64
	Dropped uint64
}

// Stats returns the publisher counters.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{Sent: p.sent.Load(), Failed: p.failed.Load(), Dropped: p.dropped.Load()}
}

// Close flushes buffered messages and stops the publishing goroutine.
func (p *Publisher) Close() error {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
	return nil
}
