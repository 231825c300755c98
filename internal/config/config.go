// Package config defines the generator configuration and its loading hooks.
//
// Values are layered defaults -> optional YAML file -> VITALGEN_ env vars.
// Validation errors wrap ErrInvalidConfig; loading errors wrap ErrLoadConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/vitalgen/internal/domain/randvar"
)

// Output destinations.
const (
	DestinationFile    = "file"
	DestinationMongoDB = "mongodb"
	DestinationAMQP    = "amqp"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// UserID is stamped on every data point header.
	UserID string `koanf:"user_id"`

	// SourceName is the acquisition provenance source name.
	SourceName string `koanf:"source_name"`

	// OutputDestination selects the sink: file, mongodb or amqp.
	OutputDestination string `koanf:"output_destination"`
	OutputFilename    string `koanf:"output_filename"`

	MongoDBURI        string `koanf:"mongodb_uri"`
	MongoDBDatabase   string `koanf:"mongodb_database"`
	MongoDBCollection string `koanf:"mongodb_collection"`

	AMQPURL   string `koanf:"amqp_url"`
	AMQPQueue string `koanf:"amqp_queue"`

	// WorkerCount sets the number of generation workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`

	// SamplingMethod is rejection or inverse_cdf.
	SamplingMethod string `koanf:"sampling_method"`

	// MaxSamplingAttempts caps rejection sampling per value.
	MaxSamplingAttempts int `koanf:"max_sampling_attempts"`

	// Seed makes runs reproducible. Zero draws from crypto/rand.
	Seed uint64 `koanf:"seed"`

	// PushgatewayURL enables pushing metrics at the end of a run when set.
	PushgatewayURL string `koanf:"pushgateway_url"`
	PushgatewayJob string `koanf:"pushgateway_job"`

	MeasureGenerationRequests []MeasureGenerationRequest `koanf:"measure_generation_requests"`
}

// MeasureGenerationRequest asks one measure generator for data over a time range.
type MeasureGenerationRequest struct {
	Generator                 string                 `koanf:"generator"`
	StartDateTime             time.Time              `koanf:"start_date_time"`
	EndDateTime               time.Time              `koanf:"end_date_time"`
	MeanInterPointDuration    time.Duration          `koanf:"mean_inter_point_duration"`
	SuppressNightTimeMeasures bool                   `koanf:"suppress_night_time_measures"`
	Trends                    map[string]TrendConfig `koanf:"trends"`
}

// TrendConfig describes how one value key evolves over a request.
type TrendConfig struct {
	StartValue        float64  `koanf:"start_value"`
	EndValue          float64  `koanf:"end_value"`
	StandardDeviation float64  `koanf:"standard_deviation"`
	MinimumValue      *float64 `koanf:"minimum_value"`
	MaximumValue      *float64 `koanf:"maximum_value"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		SourceName:          "generator",
		OutputDestination:   DestinationFile,
		OutputFilename:      "output.json",
		MongoDBDatabase:     "omh",
		MongoDBCollection:   "dataPoint",
		AMQPQueue:           "data_points",
		WorkerCount:         runtime.NumCPU(),
		QueueSize:           1024,
		SamplingMethod:      "rejection",
		MaxSamplingAttempts: 10_000,
		PushgatewayJob:      "vitalgen",
	}
}

// Validate checks the configuration for values nothing downstream can use.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.UserID) == "":
		return fmt.Errorf("%w: user_id must not be empty", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	case c.MaxSamplingAttempts < 1:
		return fmt.Errorf("%w: max_sampling_attempts must be positive, got %d", ErrInvalidConfig, c.MaxSamplingAttempts)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	if _, err := randvar.ParseMethod(c.SamplingMethod); err != nil {
		return fmt.Errorf("%w: sampling_method: %w", ErrInvalidConfig, err)
	}

	if err := c.validateDestination(); err != nil {
		return err
	}

	for i, req := range c.MeasureGenerationRequests {
		if err := req.Validate(); err != nil {
			return fmt.Errorf("measure_generation_requests[%d]: %w", i, err)
		}
	}
	return nil
}

func (c *Config) validateDestination() error {
	switch c.OutputDestination {
	case DestinationFile:
		if c.OutputFilename == "" {
			return fmt.Errorf("%w: output_filename must not be empty", ErrInvalidConfig)
		}
	case DestinationMongoDB:
		if c.MongoDBURI == "" || c.MongoDBDatabase == "" || c.MongoDBCollection == "" {
			return fmt.Errorf("%w: mongodb_uri, mongodb_database and mongodb_collection are required", ErrInvalidConfig)
		}
	case DestinationAMQP:
		if c.AMQPURL == "" || c.AMQPQueue == "" {
			return fmt.Errorf("%w: amqp_url and amqp_queue are required", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: output_destination %q", ErrInvalidConfig, c.OutputDestination)
	}
	return nil
}

// Validate checks the request shape. Generator names and required keys are
// checked against the measure registry by the caller.
func (r MeasureGenerationRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.Generator) == "":
		return fmt.Errorf("%w: generator must not be empty", ErrInvalidConfig)
	case r.StartDateTime.IsZero() || r.EndDateTime.IsZero():
		return fmt.Errorf("%w: %s: start_date_time and end_date_time are required", ErrInvalidConfig, r.Generator)
	case !r.EndDateTime.After(r.StartDateTime):
		return fmt.Errorf("%w: %s: end_date_time must be after start_date_time", ErrInvalidConfig, r.Generator)
	case r.MeanInterPointDuration <= 0:
		return fmt.Errorf("%w: %s: mean_inter_point_duration must be positive", ErrInvalidConfig, r.Generator)
	case len(r.Trends) == 0:
		return fmt.Errorf("%w: %s: at least one trend is required", ErrInvalidConfig, r.Generator)
	}

	for key, t := range r.Trends {
		if t.StandardDeviation < 0 {
			return fmt.Errorf("%w: %s.%s: standard_deviation must not be negative", ErrInvalidConfig, r.Generator, key)
		}
		if t.MinimumValue != nil && t.MaximumValue != nil && *t.MinimumValue > *t.MaximumValue {
			return fmt.Errorf("%w: %s.%s: minimum_value exceeds maximum_value", ErrInvalidConfig, r.Generator, key)
		}
	}
	return nil
}
