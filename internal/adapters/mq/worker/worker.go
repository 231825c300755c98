// Package worker runs a fixed pool of goroutines over a job queue.
package worker

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/vitalgen/pkg/logger"
	"github.com/okian/vitalgen/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// Processor handles one job.
type Processor[T any] interface {
	Process(ctx context.Context, job T) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc[T any] func(ctx context.Context, job T) error

// Process calls f.
func (f ProcessorFunc[T]) Process(ctx context.Context, job T) error { return f(ctx, job) }

// Queue defines how workers receive jobs.
type Queue[T any] interface {
	Dequeue() <-chan T
}

type acker interface {
	Ack()
}

// Pool runs Size workers until the queue is drained or a job fails.
type Pool[T any] struct {
	size      int
	queue     Queue[T]
	processor Processor[T]
	name      string
	logger    logger.Logger
}

// NewPool creates a worker pool. A non-positive size uses runtime.NumCPU().
func NewPool[T any](size int, queue Queue[T], processor Processor[T], opts ...Option) *Pool[T] {
	if size < 1 {
		size = runtime.NumCPU()
	}

	s := settings{name: "worker-pool"}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	return &Pool[T]{
		size:      size,
		queue:     queue,
		processor: processor,
		name:      s.name,
		logger:    s.logger.Named(s.name),
	}
}

// Size returns the number of workers.
func (p *Pool[T]) Size() int { return p.size }

// Run blocks until every job has been processed or the first job fails.
// The first failure cancels the other workers and is returned unmodified.
func (p *Pool[T]) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		name := p.name + "-" + strconv.Itoa(i)
		g.Go(func() error { return p.work(gctx, name) })
	}
	return g.Wait()
}

func (p *Pool[T]) work(ctx context.Context, name string) error {
	metrics.AddWorkerActive(1)
	defer metrics.AddWorkerActive(-1)

	jobs := p.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case job, ok := <-jobs:
			if !ok {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if a, ok := p.queue.(acker); ok {
				a.Ack()
			}
			if err := p.process(ctx, name, job); err != nil {
				return err
			}
		}
	}
}

func (p *Pool[T]) process(ctx context.Context, name string, job T) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := p.processor.Process(ctx, job); err != nil {
		metrics.RecordErrorByComponent("worker", "job_failed")
		p.logger.Error(ctx, "job failed", logger.String("worker", name), logger.Error(err))
		return err
	}
	p.logger.Debug(ctx, "job done", logger.String("worker", name), logger.Duration("took", time.Since(start)))
	return nil
}
