// Package queue defines the contract for handing simulator feed batches to
// the ingest pipeline.
//
// One batch carries the entire tally set of one run; the queue never splits
// a batch, so the single-writer-per-run discipline holds as long as each
// batch is consumed by exactly one worker.
package queue

import (
	"context"
	"sync"

	"github.com/okian/simcast/internal/domain/model"
	"github.com/okian/simcast/pkg/metrics"
)

// Default queue configuration constants.
const defaultCapacity = 64

// Batch is the payload type flowing through the queue.
type Batch = model.TallyBatch

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a batch. Returns false when the queue is full or closed.
	Enqueue(ctx context.Context, b Batch) bool

	// Dequeue returns a channel delivering batches as they become
	// available. The channel closes when the queue closes.
	Dequeue(ctx context.Context) <-chan Batch

	// Len returns the number of queued batches.
	Len(ctx context.Context) int

	// Close stops the queue; no further enqueues are accepted.
	Close() error
}

// InMemoryQueue implements Queue with a buffered channel.
type InMemoryQueue struct {
	batches  chan Batch
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemoryQueue creates an in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.batches = make(chan Batch, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueDepth(0)
	return q
}

// Enqueue adds a batch without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, b Batch) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordBatchEnqueueError()
		return false
	}

	select {
	case q.batches <- b:
		metrics.RecordBatchEnqueued()
		metrics.UpdateQueueDepth(len(q.batches))
		return true
	case <-ctx.Done():
		metrics.RecordBatchEnqueueError()
		return false
	default:
		metrics.RecordBatchEnqueueError()
		return false
	}
}

// Dequeue returns a channel delivering batches until the queue closes.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Batch {
	out := make(chan Batch)
	go func() {
		defer close(out)
		for b := range q.batches {
			select {
			case out <- b:
				metrics.RecordBatchDequeued()
				metrics.UpdateQueueDepth(len(q.batches))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued batches.
func (q *InMemoryQueue) Len(_ context.Context) int {
	depth := len(q.batches)
	metrics.UpdateQueueDepth(depth)
	return depth
}

// Close stops the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.batches)
	q.closed = true
	return nil
}
