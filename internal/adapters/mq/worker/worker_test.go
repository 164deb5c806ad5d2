package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/cityconnect/internal/adapters/mq/queue"
	"github.com/okian/cityconnect/internal/adapters/mq/worker"
	"github.com/okian/cityconnect/internal/domain/model"
	logging "github.com/okian/cityconnect/pkg/logger"
)

type recordingApplier struct {
	mu      sync.Mutex
	applied []string
	fail    map[string]error
}

func newRecordingApplier() *recordingApplier {
	return &recordingApplier{fail: make(map[string]error)}
}

func (a *recordingApplier) Apply(_ context.Context, e queue.Event) error { //nolint:gocritic
	a.mu.Lock()
	defer a.mu.Unlock()
	if err, ok := a.fail[e.EventID]; ok {
		return err
	}
	a.applied = append(a.applied, e.EventID)
	return nil
}

func (a *recordingApplier) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.applied)
}

func event(id string) model.StatusEvent {
	return model.StatusEvent{EventID: id, TechnicianID: "t1", Kind: model.StatusAvailability}
}

func TestInMemoryWorker(t *testing.T) {
	if err := logging.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}

	convey.Convey("Given a worker on a small queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		applier := newRecordingApplier()
		w := worker.NewInMemoryWorker(q, applier, worker.WithName("test-worker"))
		ctx := context.Background()

		convey.Convey("When events are queued and the queue is closed", func() {
			q.Enqueue(ctx, event("evt-1"))
			q.Enqueue(ctx, event("evt-2"))
			_ = q.Close()

			err := w.Run(ctx)

			convey.Convey("Then every event is applied before Run returns nil", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(applier.applied, convey.ShouldResemble, []string{"evt-1", "evt-2"})
			})
		})

		convey.Convey("When one event fails", func() {
			applier.fail["evt-1"] = errors.New("store down")
			q.Enqueue(ctx, event("evt-1"))
			q.Enqueue(ctx, event("evt-2"))
			_ = q.Close()

			err := w.Run(ctx)

			convey.Convey("Then the worker keeps going", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(applier.applied, convey.ShouldResemble, []string{"evt-2"})
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- w.Run(cctx) }()
			cancel()

			convey.Convey("Then Run stops with the context error", func() {
				select {
				case err := <-done:
					convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
				case <-time.After(time.Second):
					t.Fatal("worker did not stop")
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	if err := logging.Init(); err != nil {
		t.Fatalf("logger init: %v", err)
	}

	convey.Convey("Given a started pool of four workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(500))
		applier := newRecordingApplier()
		pool := worker.NewPool(4, q, applier)
		convey.So(pool.Size(), convey.ShouldEqual, 4)
		pool.Start(context.Background())

		convey.Convey("When events are queued and the pool shuts down", func() {
			for i := 0; i < 200; i++ {
				q.Enqueue(context.Background(), event(fmt.Sprintf("evt-%d", i)))
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := pool.Shutdown(ctx)

			convey.Convey("Then the queue is drained", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(applier.count(), convey.ShouldEqual, 200)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given a pool with a non-positive worker count", t, func() {
		pool := worker.NewPool(0, queue.NewInMemoryQueue(), newRecordingApplier())

		convey.Convey("Then it sizes itself from the CPU count", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
