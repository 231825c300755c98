// Package service runs measure generation requests through the worker pool
// and hands the resulting data points to a sink.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/okian/vitalgen/internal/adapters/mq/queue"
	"github.com/okian/vitalgen/internal/adapters/mq/worker"
	"github.com/okian/vitalgen/internal/adapters/sink"
	"github.com/okian/vitalgen/internal/config"
	"github.com/okian/vitalgen/internal/domain/generator"
	"github.com/okian/vitalgen/internal/domain/measure"
	"github.com/okian/vitalgen/internal/domain/randvar"
	"github.com/okian/vitalgen/internal/domain/timeline"
	"github.com/okian/vitalgen/pkg/logger"
	"github.com/okian/vitalgen/pkg/metrics"
	"golang.org/x/exp/rand"
)

// Summary reports what a run produced.
type Summary struct {
	Requests    int
	ValueGroups int64
	DataPoints  int64
	Written     int64
}

// Service generates data points for measure generation requests.
type Service struct {
	writer sink.Writer

	// Configuration
	workerCount int
	queueSize   int
	userID      string
	sourceName  string
	method      randvar.Method
	maxAttempts int
	seed        uint64

	now     func() time.Time
	entropy io.Reader

	logger logger.Logger
}

// job is one validated request ready for the pool.
type job struct {
	index    int
	factory  measure.Factory
	request  timeline.Request
	timeline *timeline.Generator
	points   *generator.Generator
}

// New constructs a Service writing to w.
func New(w sink.Writer, opts ...Option) *Service {
	s := &Service{
		writer:      w,
		workerCount: runtime.NumCPU(),
		queueSize:   1024,
		sourceName:  generator.DefaultSourceName,
		method:      randvar.MethodRejection,
		maxAttempts: randvar.DefaultMaxAttempts,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run validates every request, then generates and writes them concurrently.
// The first failure cancels the remaining jobs and is returned.
func (s *Service) Run(ctx context.Context, requests []config.MeasureGenerationRequest) (Summary, error) {
	if s.writer == nil {
		return Summary{}, ErrMissingWriter
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	jobs := make([]job, 0, len(requests))
	for i, r := range requests {
		j, err := s.prepare(i, r)
		if err != nil {
			metrics.RecordRequest("invalid")
			return Summary{}, fmt.Errorf("%w: request %d (%s): %w", ErrInvalidRequest, i, r.Generator, err)
		}
		jobs = append(jobs, j)
	}

	summary := Summary{Requests: len(jobs)}
	if len(jobs) == 0 {
		s.logger.Warn(ctx, "no measure generation requests configured")
		return summary, nil
	}

	s.logger.Info(ctx, "starting generation",
		logger.Int("requests", len(jobs)),
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
	)

	var valueGroups, dataPoints, written atomic.Int64
	generate := func(ctx context.Context, j job) error {
		start := time.Now()
		name := j.factory.Name()

		groups, err := j.timeline.GenerateValueGroups(ctx, j.request)
		if err != nil {
			metrics.RecordGenerationError(name, "timeline")
			return fmt.Errorf("request %d (%s): %w", j.index, name, err)
		}
		valueGroups.Add(int64(len(groups)))
		metrics.RecordValueGroups(name, len(groups))

		points, err := j.points.GenerateDataPoints(groups)
		if err != nil {
			metrics.RecordGenerationError(name, "measure")
			return fmt.Errorf("request %d (%s): %w", j.index, name, err)
		}
		dataPoints.Add(int64(len(points)))
		metrics.RecordDataPoints(name, len(points))

		n, err := s.writer.WriteDataPoints(ctx, points)
		written.Add(n)
		if err != nil {
			metrics.RecordGenerationError(name, "sink")
			return fmt.Errorf("request %d (%s): %w", j.index, name, err)
		}

		metrics.RecordGenerationDuration(name, float64(time.Since(start).Milliseconds()))
		s.logger.Info(ctx, "request generated",
			logger.Int("request", j.index),
			logger.String("generator", name),
			logger.Int("dataPoints", len(points)),
			logger.Duration("took", time.Since(start)),
		)
		return nil
	}
	process := func(ctx context.Context, j job) error {
		if err := generate(ctx, j); err != nil {
			metrics.RecordRequest("failed")
			return err
		}
		metrics.RecordRequest("ok")
		return nil
	}

	q := queue.NewInMemoryQueue[job](queue.WithCapacity(s.queueSize))
	pool := worker.NewPool[job](s.workerCount, q, worker.ProcessorFunc[job](process),
		worker.WithName("generator"),
		worker.WithLogger(s.logger),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	produced := make(chan error, 1)
	go func() {
		defer func() { _ = q.Close() }()
		for _, j := range jobs {
			if err := q.EnqueueWait(runCtx, j); err != nil {
				produced <- err
				return
			}
		}
		produced <- nil
	}()

	err := pool.Run(runCtx)
	cancel()
	if perr := <-produced; err == nil && perr != nil && !errors.Is(perr, context.Canceled) {
		err = perr
	}
	if err == nil {
		err = ctx.Err()
	}

	summary.ValueGroups = valueGroups.Load()
	summary.DataPoints = dataPoints.Load()
	summary.Written = written.Load()

	if err != nil {
		s.logger.Error(ctx, "generation failed",
			logger.Int64("written", summary.Written),
			logger.Error(err),
		)
		return summary, err
	}

	s.logger.Info(ctx, "generation finished",
		logger.Int64("valueGroups", summary.ValueGroups),
		logger.Int64("dataPoints", summary.DataPoints),
		logger.Int64("written", summary.Written),
	)
	return summary, nil
}

// prepare resolves the generator and builds the sampling variables of one request.
func (s *Service) prepare(index int, r config.MeasureGenerationRequest) (job, error) {
	if err := r.Validate(); err != nil {
		return job{}, err
	}

	factory, err := measure.Lookup(r.Generator)
	if err != nil {
		return job{}, err
	}

	timelineSrc, trendSrc := s.sources(index)

	keys := make([]string, 0, len(r.Trends))
	for key := range r.Trends {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	trends := make(map[string]timeline.Trend, len(keys))
	for _, key := range keys {
		tc := r.Trends[key]
		opts := []randvar.Option{
			randvar.WithMethod(s.method),
			randvar.WithMaxAttempts(s.maxAttempts),
			randvar.WithSource(trendSrc),
		}
		if tc.MinimumValue != nil {
			opts = append(opts, randvar.WithMinimum(*tc.MinimumValue))
		}
		if tc.MaximumValue != nil {
			opts = append(opts, randvar.WithMaximum(*tc.MaximumValue))
		}

		v, err := randvar.New(tc.StandardDeviation, opts...)
		if err != nil {
			return job{}, fmt.Errorf("trend %q: %w", key, err)
		}
		trends[key] = timeline.Trend{StartValue: tc.StartValue, EndValue: tc.EndValue, Variable: v}
	}

	req := timeline.Request{
		Start:                     r.StartDateTime,
		End:                       r.EndDateTime,
		MeanInterPointDuration:    r.MeanInterPointDuration,
		SuppressNightTimeMeasures: r.SuppressNightTimeMeasures,
		Trends:                    trends,
	}
	if err := req.Validate(factory.RequiredKeys()...); err != nil {
		return job{}, err
	}

	genOpts := []generator.Option{generator.WithSourceName(s.sourceName)}
	if s.now != nil {
		genOpts = append(genOpts, generator.WithClock(s.now))
	}
	if s.entropy != nil {
		genOpts = append(genOpts, generator.WithEntropy(s.entropy))
	}
	points, err := generator.New(factory, s.userID, genOpts...)
	if err != nil {
		return job{}, err
	}

	return job{
		index:    index,
		factory:  factory,
		request:  req,
		timeline: timeline.New(timeline.WithSource(timelineSrc)),
		points:   points,
	}, nil
}

// sources returns the entropy for a request's instants and values. A zero
// seed draws from the crypto source; otherwise each request gets its own
// deterministic pair of streams.
func (s *Service) sources(index int) (rand.Source, rand.Source) {
	if s.seed == 0 {
		return randvar.CryptoSource(), randvar.CryptoSource()
	}
	base := s.seed + 2*uint64(index)
	return randvar.NewSeededSource(base), randvar.NewSeededSource(base + 1)
}
