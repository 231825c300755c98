// Package queue provides the bounded in-memory queue that hands generation
// jobs to workers.
package queue

import (
	"context"
	"sync"

	"github.com/okian/vitalgen/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Queue provides blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// EnqueueWait adds an item, blocking until there is room or ctx is done.
	EnqueueWait(ctx context.Context, item T) error

	// Dequeue returns the channel items are delivered on.
	// It is closed once the queue is closed and drained.
	Dequeue() <-chan T

	// Len returns the current number of queued items.
	Len() int

	// Close stops accepting items. Queued items remain readable.
	Close() error

	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue[T any](opts ...Option) *InMemoryQueue[T] {
	cfg := settings{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &InMemoryQueue[T]{
		items:    make(chan T, cfg.capacity),
		capacity: cfg.capacity,
	}

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0)

	return q
}

// Capacity returns the maximum number of queued items.
func (q *InMemoryQueue[T]) Capacity() int { return q.capacity }

// EnqueueWait adds an item, waiting for room. It fails with ErrClosed once the
// queue is closed and with the context error when ctx is done first.
func (q *InMemoryQueue[T]) EnqueueWait(ctx context.Context, item T) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return ErrClosed
	}

	select {
	case q.items <- item:
		q.recordEnqueue()
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return ctx.Err()
	}
}

func (q *InMemoryQueue[T]) recordEnqueue() {
	metrics.RecordQueueEnqueue()
	q.updateGauges()
}

func (q *InMemoryQueue[T]) updateGauges() {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	metrics.UpdateQueueUtilization(float64(size) / float64(q.capacity))
}

// Dequeue returns the receive side of the queue. Every receiver shares the
// same channel so each item is delivered once.
func (q *InMemoryQueue[T]) Dequeue() <-chan T {
	return q.items
}

// Ack records that a receiver took an item off the queue.
func (q *InMemoryQueue[T]) Ack() {
	metrics.RecordQueueDequeue()
	q.updateGauges()
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len() int {
	return len(q.items)
}

// Close stops the queue from accepting items.
func (q *InMemoryQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue[T]) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
