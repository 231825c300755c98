// Package timeline lays out measurement instants over a time range and samples
// trending values at each of them.
package timeline

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/okian/vitalgen/internal/domain/randvar"
	"github.com/okian/vitalgen/internal/domain/valuegroup"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Night window used when night time measures are suppressed.
const (
	NightStartHour = 23
	NightEndHour   = 6
)

// Trend moves linearly from StartValue to EndValue over the request range.
// Values are drawn around the interpolated mean by Variable.
type Trend struct {
	StartValue float64
	EndValue   float64
	Variable   *randvar.BoundedRandomVariable
}

// InterpolatedMean returns the mean at fraction of the range, 0 at start and 1 at end.
func (t Trend) InterpolatedMean(fraction float64) float64 {
	return t.StartValue + (t.EndValue-t.StartValue)*fraction
}

// NextValue samples the trend at fraction of the range.
func (t Trend) NextValue(fraction float64) (float64, error) {
	return t.Variable.NextValue(t.InterpolatedMean(fraction))
}

// Request describes one run of a measure generator.
type Request struct {
	Start                     time.Time
	End                       time.Time
	MeanInterPointDuration    time.Duration
	SuppressNightTimeMeasures bool
	Trends                    map[string]Trend
}

// Validate checks the request shape and that every required key has a trend.
func (r Request) Validate(requiredKeys ...string) error {
	switch {
	case !r.End.After(r.Start):
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidRequest,
			r.End.Format(time.RFC3339), r.Start.Format(time.RFC3339))
	case r.MeanInterPointDuration <= 0:
		return fmt.Errorf("%w: mean inter point duration must be positive, got %s", ErrInvalidRequest, r.MeanInterPointDuration)
	case len(r.Trends) == 0:
		return fmt.Errorf("%w: at least one trend is required", ErrInvalidRequest)
	}
	for key, trend := range r.Trends {
		if trend.Variable == nil {
			return fmt.Errorf("%w: trend %q has no random variable", ErrInvalidRequest, key)
		}
	}
	for _, key := range requiredKeys {
		if _, ok := r.Trends[key]; !ok {
			return fmt.Errorf("%w: missing trend for %q", ErrInvalidRequest, key)
		}
	}
	return nil
}

// IsNightTime reports whether t falls in the night window of its own location.
func IsNightTime(t time.Time) bool {
	h := t.Hour()
	return h >= NightStartHour || h < NightEndHour
}

// Generator produces value groups for requests.
type Generator struct {
	src rand.Source
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSource sets the entropy source for inter point durations.
func WithSource(src rand.Source) Option {
	return func(g *Generator) {
		if src != nil {
			g.src = src
		}
	}
}

// New creates a Generator drawing from randvar.CryptoSource unless overridden.
func New(opts ...Option) *Generator {
	g := &Generator{src: randvar.CryptoSource()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// GenerateValueGroups walks the request range in exponentially distributed steps
// and samples every trend at each kept instant. Instants are strictly before End.
func (g *Generator) GenerateValueGroups(ctx context.Context, req Request) ([]valuegroup.TimestampedValueGroup, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	step := distuv.Exponential{Rate: 1 / req.MeanInterPointDuration.Seconds(), Src: g.src}
	total := req.End.Sub(req.Start)
	keys := slices.Sorted(maps.Keys(req.Trends))

	var groups []valuegroup.TimestampedValueGroup
	for at := req.Start; at.Before(req.End); at = at.Add(nextStep(step)) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if req.SuppressNightTimeMeasures && IsNightTime(at) {
			continue
		}

		fraction := float64(at.Sub(req.Start)) / float64(total)
		values := make(map[string]float64, len(keys))
		for _, key := range keys {
			v, err := req.Trends[key].NextValue(fraction)
			if err != nil {
				return nil, fmt.Errorf("sampling %q at %s: %w", key, at.Format(time.RFC3339), err)
			}
			values[key] = v
		}
		groups = append(groups, valuegroup.New(at, values))
	}
	return groups, nil
}

// nextStep never returns zero so the walk always advances.
func nextStep(dist distuv.Exponential) time.Duration {
	d := time.Duration(dist.Rand() * float64(time.Second))
	if d <= 0 {
		return time.Nanosecond
	}
	return d
}
