package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
	"github.com/bft-labs/seriallog/pkg/log"
)

type fakeSender struct {
	mu    sync.Mutex
	msgs  map[string][][]byte
	block chan struct{}
	err   error
}

func newFakeSender() *fakeSender {
	return &fakeSender{msgs: make(map[string][][]byte)}
}

func (f *fakeSender) Publish(topic string, payload []byte, retained bool) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs[topic] = append(f.msgs[topic], payload)
	return nil
}

func (f *fakeSender) on(topic string) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.msgs[topic]
}

type fakeSubscriber struct {
	handlers map[string]MessageHandler
	err      error
}

func (f *fakeSubscriber) Subscribe(topic string, h MessageHandler) error {
	if f.err != nil {
		return f.err
	}
	if f.handlers == nil {
		f.handlers = make(map[string]MessageHandler)
	}
	f.handlers[topic] = h
	return nil
}

type flags struct {
	paused, export bool
}

func (f *flags) SetPaused(v bool)        { f.paused = v }
func (f *flags) Paused() bool            { return f.paused }
func (f *flags) SetExportEnabled(v bool) { f.export = v }
func (f *flags) ExportEnabled() bool     { return f.export }

func TestPublisher_PublishesBatchesAndRates(t *testing.T) {
	sender := newFakeSender()
	topics := Topics{Prefix: "lab/adc0"}
	p := NewPublisher(sender, topics, log.NewNoopLogger())

	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	p.OnBatch(domain.NewBatch(7, []domain.Sample{1, 4095}, at))
	p.OnRate(50000)
	p.Close()

	batches := sender.on("lab/adc0/batch")
	if len(batches) != 1 {
		t.Fatalf("got %d batch messages, want 1", len(batches))
	}
	var msg batchMessage
	if err := json.Unmarshal(batches[0], &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Seq != 7 || len(msg.Samples) != 2 || msg.Samples[1] != 4095 || !msg.CreatedAt.Equal(at) {
		t.Errorf("batch message = %+v", msg)
	}

	rates := sender.on("lab/adc0/rate")
	if len(rates) != 1 {
		t.Fatalf("got %d rate messages, want 1", len(rates))
	}
	var rate rateMessage
	if err := json.Unmarshal(rates[0], &rate); err != nil {
		t.Fatal(err)
	}
	if rate.SamplesPerSec != 50000 {
		t.Errorf("rate = %d", rate.SamplesPerSec)
	}
	if st := p.Stats(); st.Sent != 2 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestPublisher_OnBatchDefersEncoding(t *testing.T) {
	sender := newFakeSender()
	// no publishing goroutine: inspect exactly what OnBatch queues
	p := &Publisher{
		sender:  sender,
		topics:  Topics{Prefix: "lab"},
		logger:  log.NewNoopLogger(),
		batches: true,
		out:     make(chan outbound, 1),
		quit:    make(chan struct{}),
	}

	samples := make([]domain.Sample, 5000)
	for i := range samples {
		samples[i] = domain.Sample(i % 4096)
	}
	p.OnBatch(domain.NewBatch(3, samples, time.Now()))

	m := <-p.out
	if m.payload != nil {
		t.Fatal("batch encoded on the caller's goroutine")
	}
	if m.batch.Seq() != 3 || m.batch.Len() != 5000 {
		t.Fatalf("queued batch seq=%d len=%d", m.batch.Seq(), m.batch.Len())
	}

	p.send(m)
	got := sender.on("lab/batch")
	if len(got) != 1 {
		t.Fatalf("got %d batch messages, want 1", len(got))
	}
	var msg batchMessage
	if err := json.Unmarshal(got[0], &msg); err != nil {
		t.Fatal(err)
	}
	if msg.Seq != 3 || len(msg.Samples) != 5000 || msg.Samples[4097] != 1 {
		t.Errorf("batch message seq=%d samples=%d", msg.Seq, len(msg.Samples))
	}
}

func TestPublisher_DropsWhenBufferFull(t *testing.T) {
	sender := newFakeSender()
	sender.block = make(chan struct{})
	p := NewPublisher(sender, Topics{Prefix: "x"}, log.NewNoopLogger(), WithBuffer(2))

	for i := 0; i < 10; i++ {
		p.OnRate(i)
	}
	close(sender.block)
	p.Close()

	st := p.Stats()
	if st.Dropped == 0 {
		t.Error("no messages dropped with a stalled sender")
	}
	if st.Sent+st.Dropped != 10 {
		t.Errorf("sent %d + dropped %d != 10", st.Sent, st.Dropped)
	}
}

func TestPublisher_WithoutBatches(t *testing.T) {
	sender := newFakeSender()
	p := NewPublisher(sender, Topics{Prefix: "x"}, log.NewNoopLogger(), WithoutBatches())
	p.OnBatch(domain.NewBatch(1, []domain.Sample{1}, time.Now()))
	p.Close()
	if len(sender.on("x/batch")) != 0 {
		t.Error("batch published with WithoutBatches")
	}
}

func TestPublisher_CountsFailures(t *testing.T) {
	sender := newFakeSender()
	sender.err = ErrNotConnected
	p := NewPublisher(sender, Topics{Prefix: "x"}, log.NewNoopLogger())
	p.OnRate(1)
	p.Close()
	if st := p.Stats(); st.Failed != 1 || st.Sent != 0 {
		t.Errorf("Stats() = %+v", st)
	}
	// after Close messages are ignored
	p.OnRate(2)
	if st := p.Stats(); st.Dropped != 0 {
		t.Errorf("Stats() after Close = %+v", st)
	}
}

func TestSubscribeControl(t *testing.T) {
	sub := &fakeSubscriber{}
	ctrl := &flags{}
	topics := Topics{Prefix: "lab"}
	if err := SubscribeControl(sub, topics, ctrl, log.NewNoopLogger()); err != nil {
		t.Fatal(err)
	}

	pause := sub.handlers["lab/control/paused"]
	export := sub.handlers["lab/control/export"]
	if pause == nil || export == nil {
		t.Fatalf("subscribed topics = %v", sub.handlers)
	}

	steps := []struct {
		h       MessageHandler
		payload string
		paused  bool
		export  bool
		wantErr bool
	}{
		{pause, "true", true, false, false},
		{export, " ON ", true, true, false},
		{pause, "toggle", false, true, false},
		{export, "0", false, false, false},
		{export, "toggle", false, true, false},
		{pause, "maybe", false, true, true},
	}
	for i, s := range steps {
		err := s.h("", []byte(s.payload))
		if (err != nil) != s.wantErr {
			t.Errorf("step %d: err = %v, wantErr %v", i, err, s.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidCommand) {
			t.Errorf("step %d: err = %v, want ErrInvalidCommand", i, err)
		}
		if ctrl.paused != s.paused || ctrl.export != s.export {
			t.Errorf("step %d: paused=%v export=%v, want %v %v", i, ctrl.paused, ctrl.export, s.paused, s.export)
		}
	}
}

func TestSubscribeControl_SubscribeError(t *testing.T) {
	sub := &fakeSubscriber{err: ErrNotConnected}
	err := SubscribeControl(sub, Topics{Prefix: "x"}, &flags{}, log.NewNoopLogger())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("err = %v, want ErrNotConnected", err)
	}
}

func TestConfig(t *testing.T) {
	var c Config
	c.SetDefaults()
	if c.ClientID != DefaultClientID || c.TopicPrefix != DefaultTopicPrefix {
		t.Errorf("defaults = %+v", c)
	}
	if err := c.Validate(); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Validate() without broker = %v", err)
	}

	c = Config{Broker: "tcp://localhost:1883", TopicPrefix: "lab/", QoS: 3}
	c.SetDefaults()
	if c.TopicPrefix != "lab" {
		t.Errorf("TopicPrefix = %q", c.TopicPrefix)
	}
	if err := c.Validate(); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Validate() QoS 3 = %v", err)
	}
}

func TestBuildClientOptions(t *testing.T) {
	opts := buildClientOptions(Config{Broker: "ssl://broker:8883", ClientID: "adc", TopicPrefix: "lab"})
	if len(opts.Servers) != 1 || opts.Servers[0].Host != "broker:8883" {
		t.Errorf("Servers = %v", opts.Servers)
	}
	if opts.TLSConfig == nil {
		t.Error("TLS not configured for ssl:// broker")
	}
	if !opts.WillEnabled || opts.WillTopic != "lab/status" || !opts.WillRetained {
		t.Errorf("will = %v %q %v", opts.WillEnabled, opts.WillTopic, opts.WillRetained)
	}
}
