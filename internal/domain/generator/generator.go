// Package generator turns timestamped value groups into fully headered data
// points. Measure construction is delegated to a MeasureFactory.
package generator

import (
	crand "crypto/rand"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/vitalgen/internal/domain/datapoint"
	"github.com/okian/vitalgen/internal/domain/valuegroup"
)

// DefaultSourceName is the acquisition provenance source name used when none is configured.
const DefaultSourceName = "generator"

// SourceCreationOffset is how long before generation the notional sensor created a reading.
const SourceCreationOffset = 5 * time.Minute

// MeasureFactory produces a measure from one value group.
type MeasureFactory interface {
	NewMeasure(group valuegroup.TimestampedValueGroup) (datapoint.Measure, error)
}

// MeasureFactoryFunc adapts a function to MeasureFactory.
type MeasureFactoryFunc func(group valuegroup.TimestampedValueGroup) (datapoint.Measure, error)

// NewMeasure calls f.
func (f MeasureFactoryFunc) NewMeasure(group valuegroup.TimestampedValueGroup) (datapoint.Measure, error) {
	return f(group)
}

// Generator wraps measures with freshly minted headers. It holds no state
// between calls; every data point reads the clock and draws identifier entropy.
type Generator struct {
	factory    MeasureFactory
	userID     string
	sourceName string
	now        func() time.Time
	entropy    io.Reader
}

// New creates a Generator for the given factory and user. It fails with
// ErrMissingUserID when userID is blank and ErrMissingFactory when factory is nil.
func New(factory MeasureFactory, userID string, opts ...Option) (*Generator, error) {
	if factory == nil {
		return nil, ErrMissingFactory
	}
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUserID
	}

	g := &Generator{
		factory:    factory,
		userID:     userID,
		sourceName: DefaultSourceName,
		now:        time.Now,
		entropy:    crand.Reader,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// GenerateDataPoints builds one data point per group, preserving order.
// The first factory error is returned unmodified and aborts the batch.
func (g *Generator) GenerateDataPoints(groups []valuegroup.TimestampedValueGroup) ([]datapoint.DataPoint, error) {
	points := make([]datapoint.DataPoint, 0, len(groups))
	for _, group := range groups {
		measure, err := g.factory.NewMeasure(group)
		if err != nil {
			return nil, err
		}
		point, err := g.NewDataPoint(measure)
		if err != nil {
			return nil, err
		}
		points = append(points, point)
	}
	return points, nil
}

// NewDataPoint wraps measure with a header stamped at the current instant and
// a provenance record created SourceCreationOffset earlier.
func (g *Generator) NewDataPoint(measure datapoint.Measure) (datapoint.DataPoint, error) {
	id, err := uuid.NewRandomFromReader(g.entropy)
	if err != nil {
		return datapoint.DataPoint{}, fmt.Errorf("%w: %w", ErrIdentifier, err)
	}

	now := g.now()
	provenance := datapoint.NewAcquisitionProvenance(g.sourceName, datapoint.ModalitySensed, now.Add(-SourceCreationOffset))
	header := datapoint.NewHeader(id.String(), measure.SchemaID(), now, provenance, g.userID)

	return datapoint.New(header, measure), nil
}
