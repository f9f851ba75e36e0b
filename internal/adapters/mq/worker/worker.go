// Package worker runs queued import jobs on a fixed pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/scoreimport/pkg/logger"
	"github.com/okian/scoreimport/pkg/metrics"
)

const (
	defaultWorkerMultiplier = 2
	poolShutdownTimeout     = 30 * time.Second
)

// Handler processes one job.
type Handler[T any] interface {
	Handle(ctx context.Context, job T) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc[T any] func(ctx context.Context, job T) error

// Handle implements Handler.
func (f HandlerFunc[T]) Handle(ctx context.Context, job T) error { return f(ctx, job) }

// Source defines how workers receive jobs.
type Source[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Worker processes jobs until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker after its current job.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker pulls jobs from a Source and hands them to a Handler.
type InMemoryWorker[T any] struct {
	source  Source[T]
	handler Handler[T]
	name    string
	active  *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker[T any](source Source[T], handler Handler[T], opts ...Option) *InMemoryWorker[T] {
	cfg := newSettings(opts)
	return &InMemoryWorker[T]{
		source:   source,
		handler:  handler,
		name:     cfg.name,
		active:   new(atomic.Int64),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   cfg.logger.Named(cfg.name),
	}
}

// Run starts the worker loop.
func (w *InMemoryWorker[T]) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.source.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.process(ctx, job); err != nil {
				w.logger.Error(ctx, "error processing job", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker[T]) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker[T]) process(ctx context.Context, job T) error {
	start := time.Now()
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.handler.Handle(ctx, job); err != nil {
		metrics.RecordWorkerError()
		return err
	}
	return nil
}

// Pool manages multiple workers sharing one source.
type Pool[T any] struct {
	workers []*InMemoryWorker[T]
	source  Source[T]
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one defaults
// to a multiple of the CPU count.
func NewPool[T any](workerCount int, source Source[T], handler Handler[T], opts ...Option) *Pool[T] {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}
	cfg := newSettings(opts)
	active := new(atomic.Int64)
	pool := &Pool[T]{
		workers: make([]*InMemoryWorker[T], workerCount),
		source:  source,
		logger:  cfg.logger.Named("worker-pool"),
	}
	for i := range workerCount {
		w := NewInMemoryWorker(source, handler, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
		w.active = active
		pool.workers[i] = w
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)
	return pool
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool[T]) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the source when it can be closed, then waits for every
// worker to finish its current job.
func (p *Pool[T]) Shutdown(ctx context.Context) error {
	if closer, ok := p.source.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}
	for _, w := range p.workers {
		close(w.shutdown)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("pool shutdown: %w", shutdownCtx.Err())
		}
	}
	return nil
}
