package service

import (
	"io"
	"time"

	"github.com/okian/vitalgen/internal/config"
	"github.com/okian/vitalgen/internal/domain/randvar"
	"github.com/okian/vitalgen/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithUserID sets the user every data point is generated for.
func WithUserID(id string) Option {
	return func(s *Service) {
		s.userID = id
	}
}

// WithSourceName sets the acquisition provenance source name.
func WithSourceName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.sourceName = name
		}
	}
}

// WithSamplingMethod selects how bounded values are drawn.
func WithSamplingMethod(m randvar.Method) Option {
	return func(s *Service) {
		s.method = m
	}
}

// WithMaxAttempts caps the draws per sampled value.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithSeed makes sampling deterministic. Zero keeps the crypto source.
func WithSeed(seed uint64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// WithClock overrides the creation time source of data points.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithEntropy overrides the reader data point identifiers are drawn from.
func WithEntropy(r io.Reader) Option {
	return func(s *Service) {
		s.entropy = r
	}
}

// WithConfig applies the generation settings of a validated configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		WithWorkerCount(cfg.WorkerCount)(s)
		WithQueueSize(cfg.QueueSize)(s)
		WithUserID(cfg.UserID)(s)
		WithSourceName(cfg.SourceName)(s)
		WithMaxAttempts(cfg.MaxSamplingAttempts)(s)
		WithSeed(cfg.Seed)(s)
		if m, err := randvar.ParseMethod(cfg.SamplingMethod); err == nil {
			s.method = m
		}
	}
}
