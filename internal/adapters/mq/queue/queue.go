// Package queue holds import jobs between submission and processing.
//
// The in-memory implementation is a bounded buffered channel; a full queue
// refuses new work instead of blocking the submitter.
package queue

import (
	"context"
	"sync"

	"github.com/okian/scoreimport/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue[T any] interface {
	// Enqueue adds an item. Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, item T) bool

	// Dequeue returns a channel that receives items as they become available.
	// The channel is closed when the queue is closed and drained.
	Dequeue(ctx context.Context) <-chan T

	// Len returns the current number of queued items.
	Len(ctx context.Context) int

	// Close stops accepting items.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue[T any] struct {
	items    chan T
	capacity int
	mu       sync.RWMutex
	closed   bool
}

var _ Queue[struct{}] = (*InMemoryQueue[struct{}])(nil)

// NewInMemoryQueue creates a new in-memory queue.
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
	return q
}

// Enqueue adds an item to the queue.
func (q *InMemoryQueue[T]) Enqueue(ctx context.Context, item T) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}

	select {
	case q.items <- item:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.items))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
		metrics.RecordQueueEnqueueError()
		return false
	}
}

// Dequeue returns a channel that will receive items as they become available.
func (q *InMemoryQueue[T]) Dequeue(ctx context.Context) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case item, ok := <-q.items:
				if !ok {
					return
				}
				select {
				case out <- item:
					metrics.RecordQueueDequeue()
					metrics.UpdateQueueSize(len(q.items))
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// Len returns the current number of queued items.
func (q *InMemoryQueue[T]) Len(_ context.Context) int {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the configured bound.
func (q *InMemoryQueue[T]) Capacity() int { return q.capacity }

// Close gracefully shuts down the queue. Queued items are still delivered.
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
