package app

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bft-labs/seriallog/internal/domain"
)

// itemKind tags a work item.
type itemKind int

const (
	itemBatch itemKind = iota
	itemShutdown
)

// workItem is what travels from the ingestion path to the persistence
// worker: either a batch or the shutdown request.
type workItem struct {
	kind  itemKind
	batch domain.Batch
	// export is the export flag captured when the batch was enqueued.
	export bool
}

func batchItem(b domain.Batch, export bool) workItem {
	return workItem{kind: itemBatch, batch: b, export: export}
}

func shutdownItem() workItem {
	return workItem{kind: itemShutdown}
}

// QueuePolicy decides what Push does when a bounded queue is full.
type QueuePolicy int

const (
	// PolicyUnbounded never refuses a batch. Memory grows if the worker
	// stalls.
	PolicyUnbounded QueuePolicy = iota

	// PolicyBlock makes the producer wait until the worker frees a slot.
	PolicyBlock

	// PolicyDropOldest evicts the oldest queued batch to make room.
	PolicyDropOldest
)

// String returns the configuration name of the policy.
func (p QueuePolicy) String() string {
	switch p {
	case PolicyUnbounded:
		return "unbounded"
	case PolicyBlock:
		return "block"
	case PolicyDropOldest:
		return "drop-oldest"
	default:
		return "unknown"
	}
}

// ParseQueuePolicy parses a policy name as used in configuration.
func ParseQueuePolicy(name string) (QueuePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "unbounded":
		return PolicyUnbounded, nil
	case "block":
		return PolicyBlock, nil
	case "drop-oldest", "drop_oldest":
		return PolicyDropOldest, nil
	default:
		return PolicyUnbounded, fmt.Errorf("%w: unknown queue policy %q", domain.ErrInvalidConfig, name)
	}
}

// Queue is the FIFO between the ingestion path and the persistence worker.
// Any number of goroutines may Push; a single consumer calls Pop.
//
// The shutdown item is always accepted, even past capacity, and closes the
// queue for further batches.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	items    []workItem
	head     int
	policy   QueuePolicy
	capacity int
	closed   bool

	exportQueued int
	dropped      uint64

	// ready holds at most one wakeup for the consumer.
	ready chan struct{}
}

// NewQueue creates a queue. capacity is ignored for PolicyUnbounded.
func NewQueue(policy QueuePolicy, capacity int) *Queue {
	if policy != PolicyUnbounded && capacity <= 0 {
		policy = PolicyUnbounded
	}
	q := &Queue{
		policy:   policy,
		capacity: capacity,
		ready:    make(chan struct{}, 1),
	}
	q.notFull = sync.NewCond(&q.mu)
	return q
}

// Push appends a batch item. It reports whether an older batch was
// evicted to make room (PolicyDropOldest only). After the shutdown item
// has been queued Push returns domain.ErrQueueClosed.
func (q *Queue) Push(item workItem) (dropped bool, err error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false, domain.ErrQueueClosed
	}

	if q.policy != PolicyUnbounded {
		for q.lenLocked() >= q.capacity && !q.closed {
			if q.policy == PolicyDropOldest {
				q.dropOldestLocked()
				dropped = true
				continue
			}
			q.notFull.Wait()
		}
		if q.closed {
			q.mu.Unlock()
			return dropped, domain.ErrQueueClosed
		}
	}

	q.appendLocked(item)
	q.mu.Unlock()
	q.signal()
	return dropped, nil
}

// PushShutdown queues the shutdown item and closes the queue. Calling it
// more than once has no further effect.
func (q *Queue) PushShutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.appendLocked(shutdownItem())
	q.notFull.Broadcast()
	q.mu.Unlock()
	q.signal()
}

// Pop removes the oldest item, waiting up to timeout for one to arrive.
// It returns false if the timeout expired first.
func (q *Queue) Pop(timeout time.Duration) (workItem, bool) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		q.mu.Lock()
		if q.lenLocked() > 0 {
			item := q.popLocked()
			q.notFull.Signal()
			q.mu.Unlock()
			return item, true
		}
		q.mu.Unlock()

		if timer == nil {
			timer = time.NewTimer(timeout)
		}
		select {
		case <-q.ready:
		case <-timer.C:
			return workItem{}, false
		}
	}
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.lenLocked()
}

// ExportQueued returns how many queued batches carry the export flag.
func (q *Queue) ExportQueued() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.exportQueued
}

// Dropped returns how many batches PolicyDropOldest has evicted.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Policy returns the queue policy.
func (q *Queue) Policy() QueuePolicy {
	return q.policy
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *Queue) lenLocked() int {
	return len(q.items) - q.head
}

func (q *Queue) appendLocked(item workItem) {
	if item.kind == itemBatch && item.export {
		q.exportQueued++
	}
	q.items = append(q.items, item)
}

func (q *Queue) popLocked() workItem {
	item := q.items[q.head]
	q.items[q.head] = workItem{}
	q.head++
	if q.head == len(q.items) {
		q.items, q.head = q.items[:0], 0
	} else if q.head > 1024 && q.head*2 > len(q.items) {
		n := copy(q.items, q.items[q.head:])
		q.items, q.head = q.items[:n], 0
	}
	if item.kind == itemBatch && item.export {
		q.exportQueued--
	}
	return item
}

func (q *Queue) dropOldestLocked() {
	// the shutdown item is always last, so the head is a batch
	q.popLocked()
	q.dropped++
}
