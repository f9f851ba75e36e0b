package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type job struct {
	ID   string
	Data []byte
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job{ID: "job1", Data: []byte("[]")}) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.ID != "job1" || string(got.Data) != "[]" {
		t.Errorf("expected job1, got %+v", got)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(2))
	ctx := context.Background()

	if q.Capacity() != 2 {
		t.Fatalf("expected capacity 2, got %d", q.Capacity())
	}
	if !q.Enqueue(ctx, job{ID: "job1"}) || !q.Enqueue(ctx, job{ID: "job2"}) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job{ID: "job3"}) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_DefaultCapacity(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(0))
	if q.Capacity() != defaultQueueCapacity {
		t.Errorf("expected default capacity %d, got %d", defaultQueueCapacity, q.Capacity())
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(100))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	producers, perProducer := 10, 50

	var consumed sync.WaitGroup
	consumed.Add(producers * perProducer)
	for i := 0; i < 4; i++ {
		go func() {
			for range q.Dequeue(ctx) {
				consumed.Done()
			}
		}()
	}

	var produced sync.WaitGroup
	for i := 0; i < producers; i++ {
		produced.Add(1)
		go func(id int) {
			defer produced.Done()
			for j := 0; j < perProducer; j++ {
				for !q.Enqueue(ctx, job{ID: fmt.Sprintf("job%d_%d", id, j)}) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}
	produced.Wait()

	done := make(chan struct{})
	go func() {
		consumed.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for consumers")
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected final length 0, got %d", l)
	}
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(10))
	ctx := context.Background()

	if !q.Enqueue(ctx, job{ID: "job1"}) || !q.Enqueue(ctx, job{ID: "job2"}) {
		t.Fatal("expected enqueue to succeed")
	}
	if q.IsClosed() {
		t.Error("expected queue to be open initially")
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected close to succeed, got error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed after Close()")
	}
	if q.Enqueue(ctx, job{ID: "job3"}) {
		t.Error("expected enqueue to fail after closing")
	}

	// Items queued before Close are still delivered, then the channel closes.
	var ids []string
	timeout := time.After(time.Second)
	ch := q.Dequeue(ctx)
	for {
		select {
		case j, ok := <-ch:
			if !ok {
				if len(ids) != 2 || ids[0] != "job1" || ids[1] != "job2" {
					t.Errorf("expected job1, job2 before close, got %v", ids)
				}
				if err := q.Close(); err != nil {
					t.Errorf("expected second close to succeed, got error: %v", err)
				}
				return
			}
			ids = append(ids, j.ID)
		case <-timeout:
			t.Fatal("expected dequeue channel to be closed within timeout")
		}
	}
}

func TestInMemoryQueue_CancelledDequeue(t *testing.T) {
	q := NewInMemoryQueue[job](WithCapacity(1))
	ctx, cancel := context.WithCancel(context.Background())
	ch := q.Dequeue(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected no item from an empty queue")
		}
	case <-time.After(time.Second):
		t.Fatal("expected dequeue channel to close on cancellation")
	}
}
