// Package sink persists generated data points to a file, MongoDB or an AMQP queue.
package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/okian/vitalgen/internal/config"
	"github.com/okian/vitalgen/internal/domain/datapoint"
	"github.com/okian/vitalgen/pkg/logger"
	"github.com/okian/vitalgen/pkg/metrics"
)

// Writer persists batches of data points. Implementations are safe for
// concurrent use and keep each batch contiguous.
type Writer interface {
	// WriteDataPoints writes points and returns how many were written.
	WriteDataPoints(ctx context.Context, points []datapoint.DataPoint) (int64, error)
	Close(ctx context.Context) error
}

// record is the serialized form of one data point. The header id is repeated
// at the top level for document store imports.
type record struct {
	ID     string            `json:"id"`
	Header datapoint.Header  `json:"header"`
	Body   datapoint.Measure `json:"body"`
}

// Encode serializes one data point as a JSON record.
func Encode(p datapoint.DataPoint) ([]byte, error) {
	raw, err := json.Marshal(record{ID: p.Header().ID, Header: p.Header(), Body: p.Body()})
	if err != nil {
		return nil, fmt.Errorf("%w: data point %s: %w", ErrEncode, p.Header().ID, err)
	}
	return raw, nil
}

// Open creates the writer selected by cfg.OutputDestination. Every writer is
// instrumented with sink metrics.
func Open(ctx context.Context, cfg *config.Config) (Writer, error) {
	var (
		w   Writer
		err error
	)
	switch cfg.OutputDestination {
	case config.DestinationFile:
		w, err = NewFileWriter(cfg.OutputFilename)
	case config.DestinationMongoDB:
		w, err = DialMongo(ctx, cfg.MongoDBURI, cfg.MongoDBDatabase, cfg.MongoDBCollection)
	case config.DestinationAMQP:
		w, err = DialAMQP(ctx, cfg.AMQPURL, cfg.AMQPQueue)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDestination, cfg.OutputDestination)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(cfg.OutputDestination, w), nil
}

type instrumented struct {
	name   string
	next   Writer
	logger logger.Logger
}

// Instrument wraps w so every batch is counted, timed and logged under name.
func Instrument(name string, w Writer) Writer {
	return &instrumented{name: name, next: w, logger: logger.Get().Named("sink").With(logger.String("sink", name))}
}

func (i *instrumented) WriteDataPoints(ctx context.Context, points []datapoint.DataPoint) (int64, error) {
	start := time.Now()
	n, err := i.next.WriteDataPoints(ctx, points)
	metrics.RecordSinkWriteLatency(i.name, float64(time.Since(start).Milliseconds()))
	metrics.RecordSinkWrite(i.name, n)
	if err != nil {
		metrics.RecordSinkError(i.name)
		i.logger.Error(ctx, "batch write failed", logger.Int("batch", len(points)), logger.Int64("written", n), logger.Error(err))
		return n, err
	}
	i.logger.Debug(ctx, "batch written", logger.Int64("written", n), logger.Duration("took", time.Since(start)))
	return n, nil
}

func (i *instrumented) Close(ctx context.Context) error {
	return i.next.Close(ctx)
}
