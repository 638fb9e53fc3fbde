package seriallog

import (
	"time"

	"github.com/bft-labs/seriallog/internal/app"
	"github.com/bft-labs/seriallog/internal/domain"
)

// State is the lifecycle state of a Logger.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// StateChangeEvent is emitted on every lifecycle transition.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// BatchPersistedEvent is emitted after a batch reached the hourly log.
type BatchPersistedEvent struct {
	Seq      uint64
	Samples  int
	Exported bool
	SealedAt time.Time
}

// PersistErrorEvent is emitted when a write or close failed. Op is one of
// "log", "export", "log close" or "export close". The batch is not retried.
type PersistErrorEvent struct {
	Op    string
	Error error
}

// RateEvent carries one samples-per-second report.
type RateEvent struct {
	SamplesPerSec int
	At            time.Time
}

// EventHandler receives notifications from a Logger.
//
// OnStateChange runs on the goroutine calling Start or Stop, OnRate on the
// ingestion path, and the persistence callbacks on the worker goroutine.
// Implementations should return quickly.
type EventHandler interface {
	OnStateChange(event StateChangeEvent)
	OnBatchPersisted(event BatchPersistedEvent)
	OnPersistError(event PersistErrorEvent)
	OnRate(event RateEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some events.
type BaseEventHandler struct{}

func (BaseEventHandler) OnStateChange(StateChangeEvent)         {}
func (BaseEventHandler) OnBatchPersisted(BatchPersistedEvent) {}
func (BaseEventHandler) OnPersistError(PersistErrorEvent)       {}
func (BaseEventHandler) OnRate(RateEvent)                       {}

// eventBridge adapts EventHandler to the internal lifecycle and pipeline
// callbacks.
type eventBridge struct {
	handler EventHandler
	now     func() time.Time
}

func (e *eventBridge) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}

func (e *eventBridge) OnBatchPersisted(b domain.Batch, exported bool) {
	if e.handler == nil {
		return
	}
	e.handler.OnBatchPersisted(BatchPersistedEvent{
		Seq:      b.Seq(),
		Samples:  b.Len(),
		Exported: exported,
		SealedAt: b.CreatedAt(),
	})
}

func (e *eventBridge) OnPersistError(op string, err error) {
	if e.handler == nil {
		return
	}
	e.handler.OnPersistError(PersistErrorEvent{Op: op, Error: err})
}

func (e *eventBridge) OnRate(n int) {
	if e.handler == nil {
		return
	}
	e.handler.OnRate(RateEvent{SamplesPerSec: n, At: e.now()})
}

func (e *eventBridge) OnBytes(int)                 {}
func (e *eventBridge) OnBatchSealed(domain.Batch) {}
func (e *eventBridge) OnBatchDropped()             {}

func convertState(s app.State) State {
	switch s {
	case app.StateStopped:
		return StateStopped
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}
