package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/scoreimport/internal/adapters/mq/queue"
	"github.com/okian/scoreimport/internal/adapters/mq/worker"
	"github.com/okian/scoreimport/pkg/logger"
)

type job struct {
	ID   string
	Fail bool
}

type chanSource struct {
	jobs chan job
}

func newChanSource() *chanSource { return &chanSource{jobs: make(chan job, 10)} }

func (s *chanSource) Dequeue(context.Context) <-chan job { return s.jobs }

// recorder collects handled job IDs.
type recorder struct {
	mu      sync.Mutex
	handled []string
}

func (r *recorder) Handle(_ context.Context, j job) error {
	if j.Fail {
		return errors.New("boom " + j.ID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handled = append(r.handled, j.ID)
	return nil
}

func (r *recorder) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.handled...)
}

func eventually(check func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if check() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a job channel", t, func() {
		log := logger.NewRecorder()
		src := newChanSource()
		rec := &recorder{}
		w := worker.NewInMemoryWorker[job](src, rec, worker.WithName("test-worker"), worker.WithLogger(log))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When jobs arrive they are handled in order", func() {
			src.jobs <- job{ID: "a"}
			src.jobs <- job{ID: "b"}
			convey.So(eventually(func() bool { return len(rec.ids()) == 2 }), convey.ShouldBeTrue)
			convey.So(rec.ids(), convey.ShouldResemble, []string{"a", "b"})
		})

		convey.Convey("When a job fails the error is logged and the worker continues", func() {
			src.jobs <- job{ID: "bad", Fail: true}
			src.jobs <- job{ID: "good"}
			convey.So(eventually(func() bool { return len(rec.ids()) == 1 }), convey.ShouldBeTrue)
			convey.So(log.Count("error"), convey.ShouldEqual, 1)
			convey.So(log.Entries()[0].Name, convey.ShouldEqual, "test-worker")
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
			defer shutdownCancel()
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool over an in-memory queue", t, func() {
		q := queue.NewInMemoryQueue[job](queue.WithCapacity(100))
		rec := &recorder{}
		pool := worker.NewPool[job](3, q, rec, worker.WithLogger(logger.Nop()))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.So(pool.Size(), convey.ShouldEqual, 3)

		convey.Convey("When jobs are enqueued every one is handled once", func() {
			for _, id := range []string{"1", "2", "3", "4", "5", "6"} {
				convey.So(q.Enqueue(ctx, job{ID: id}), convey.ShouldBeTrue)
			}
			convey.So(eventually(func() bool { return len(rec.ids()) == 6 }), convey.ShouldBeTrue)
			convey.So(rec.ids(), convey.ShouldHaveLength, 6)
		})

		convey.Convey("When the pool shuts down the queue is closed", func() {
			convey.So(pool.Shutdown(context.Background()), convey.ShouldBeNil)
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
			convey.So(q.Enqueue(ctx, job{ID: "late"}), convey.ShouldBeFalse)
		})
	})

	convey.Convey("A handler func can be used directly", t, func() {
		var got string
		h := worker.HandlerFunc[job](func(_ context.Context, j job) error {
			got = j.ID
			return nil
		})
		convey.So(h.Handle(context.Background(), job{ID: "x"}), convey.ShouldBeNil)
		convey.So(got, convey.ShouldEqual, "x")
	})
}
