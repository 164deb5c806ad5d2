// Package worker applies queued technician status events to the roster.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/cityconnect/internal/adapters/mq/queue"
	"github.com/okian/cityconnect/pkg/logger"
	"github.com/okian/cityconnect/pkg/metrics"
)

// Event is what workers read off the queue.
type Event = queue.Event

// Applier writes one status event to the roster.
type Applier interface {
	Apply(ctx context.Context, e Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// InMemoryWorker consumes events until the queue channel closes or its
// context is cancelled.
type InMemoryWorker struct {
	queue   Queue
	applier Applier
	name    string
	logger  logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:   q,
		applier: applier,
		name:    "worker",
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}
	return w
}

// Run drains the queue. It returns nil once the queue is closed and empty,
// or ctx.Err() if cancelled first. Failed events are logged and counted.
func (w *InMemoryWorker) Run(ctx context.Context) error {
	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "status event not applied",
					logger.String("event_id", e.EventID),
					logger.String("technician_id", e.TechnicianID),
					logger.Error(err),
				)
			}
		}
	}
}

func (w *InMemoryWorker) process(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: received by value from the channel
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.applier.Apply(ctx, e); err != nil {
		metrics.RecordEventFailed()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "apply_error")
		return fmt.Errorf("apply %s: %w", e.EventID, err)
	}
	metrics.RecordEventProcessed()
	return nil
}

// Pool runs a fixed set of workers under one errgroup.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
	done    chan struct{}
	err     error
}

// NewPool creates a pool of workerCount workers. workerCount < 1 means one
// worker per CPU.
func NewPool(workerCount int, q Queue, applier Applier) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
		done:    make(chan struct{}),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, applier, WithName("worker-"+strconv.Itoa(i)))
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker. Cancelling ctx stops them without draining.
func (p *Pool) Start(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range p.workers {
		g.Go(func() error { return w.Run(gctx) })
	}
	metrics.UpdateWorkerCount(len(p.workers))

	go func() {
		p.err = g.Wait()
		metrics.UpdateWorkerCount(0)
		close(p.done)
	}()
}

// Shutdown closes the queue if it can be closed and waits for the workers
// to drain it, up to ctx's deadline.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	select {
	case <-p.done:
		if p.err != nil && !errors.Is(p.err, context.Canceled) {
			return p.err
		}
		return nil
	case <-ctx.Done():
		p.logger.Warn(ctx, "worker pool shutdown timed out")
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
