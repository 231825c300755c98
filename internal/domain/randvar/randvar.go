// Package randvar models normally distributed random variables whose draws
// can be truncated to a closed interval.
//
// A BoundedRandomVariable is owned by the generator that configured it and is
// not safe for concurrent mutation. The entropy source behind it may be shared:
// both CryptoSource and NewSeededSource are safe for concurrent use.
package randvar

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultMaxAttempts caps the number of draws NextValue makes before it
// reports ErrUnreachableInterval.
const DefaultMaxAttempts = 10_000

// Method selects how draws are confined to the interval.
type Method int

const (
	// MethodRejection redraws until a value lands inside the interval.
	MethodRejection Method = iota
	// MethodInverseCDF maps a uniform draw over the interval's probability
	// mass through the normal quantile function. It needs a single draw.
	MethodInverseCDF
)

// String returns the configuration name of the method.
func (m Method) String() string {
	switch m {
	case MethodRejection:
		return "rejection"
	case MethodInverseCDF:
		return "inverse_cdf"
	default:
		return "method(" + strconv.Itoa(int(m)) + ")"
	}
}

// ParseMethod parses a configuration name such as "rejection" or "inverse_cdf".
// Matching ignores case and surrounding spaces.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "rejection":
		return MethodRejection, nil
	case "inverse_cdf", "inverse-cdf":
		return MethodInverseCDF, nil
	default:
		return MethodRejection, fmt.Errorf("%w: unknown sampling method %q", ErrInvalidArgument, s)
	}
}

// BoundedRandomVariable draws normally distributed values, optionally
// confined to [minimum, maximum]. Variance and standard deviation are kept
// consistent: whichever setter ran last determines the other.
//
// The zero value is a degenerate variable with zero variance and no bounds
// that draws from CryptoSource.
type BoundedRandomVariable struct {
	variance          float64
	standardDeviation float64

	hasMinimum bool
	minimum    float64
	hasMaximum bool
	maximum    float64

	src         rand.Source
	maxAttempts int
	method      Method
}

// New creates a variable with the given standard deviation. Bounds, entropy
// source, attempt budget and method are set through options. It fails with
// ErrInvalidArgument for a negative or NaN standard deviation, a NaN bound, or
// a minimum greater than the maximum.
func New(standardDeviation float64, opts ...Option) (*BoundedRandomVariable, error) {
	v := &BoundedRandomVariable{}
	if err := v.SetStandardDeviation(standardDeviation); err != nil {
		return nil, err
	}

	for _, opt := range opts {
		opt(v)
	}

	if v.hasMinimum && math.IsNaN(v.minimum) {
		return nil, fmt.Errorf("%w: minimum value is NaN", ErrInvalidArgument)
	}
	if v.hasMaximum && math.IsNaN(v.maximum) {
		return nil, fmt.Errorf("%w: maximum value is NaN", ErrInvalidArgument)
	}
	if v.hasMinimum && v.hasMaximum && v.minimum > v.maximum {
		return nil, fmt.Errorf("%w: minimum value %g exceeds maximum value %g", ErrInvalidArgument, v.minimum, v.maximum)
	}
	return v, nil
}

// Variance returns the variance.
func (v *BoundedRandomVariable) Variance() float64 { return v.variance }

// StandardDeviation returns the standard deviation.
func (v *BoundedRandomVariable) StandardDeviation() float64 { return v.standardDeviation }

// Minimum returns the lower bound and whether one is set.
func (v *BoundedRandomVariable) Minimum() (float64, bool) { return v.minimum, v.hasMinimum }

// Maximum returns the upper bound and whether one is set.
func (v *BoundedRandomVariable) Maximum() (float64, bool) { return v.maximum, v.hasMaximum }

// Method returns the truncation method.
func (v *BoundedRandomVariable) Method() Method { return v.method }

// SetVariance sets the variance and derives the standard deviation as its square root.
func (v *BoundedRandomVariable) SetVariance(variance float64) error {
	if math.IsNaN(variance) || variance < 0 {
		return fmt.Errorf("%w: variance must be non-negative, got %g", ErrInvalidArgument, variance)
	}
	v.variance = variance
	v.standardDeviation = math.Sqrt(variance)
	return nil
}

// SetStandardDeviation sets the standard deviation and derives the variance as its square.
func (v *BoundedRandomVariable) SetStandardDeviation(standardDeviation float64) error {
	if math.IsNaN(standardDeviation) || standardDeviation < 0 {
		return fmt.Errorf("%w: standard deviation must be non-negative, got %g", ErrInvalidArgument, standardDeviation)
	}
	v.standardDeviation = standardDeviation
	v.variance = standardDeviation * standardDeviation
	return nil
}

// SetMinimum sets the lower bound. It fails if a maximum is set and would
// fall below the new minimum.
func (v *BoundedRandomVariable) SetMinimum(minimum float64) error {
	if math.IsNaN(minimum) {
		return fmt.Errorf("%w: minimum value is NaN", ErrInvalidArgument)
	}
	if v.hasMaximum && minimum > v.maximum {
		return fmt.Errorf("%w: minimum value %g exceeds maximum value %g", ErrInvalidArgument, minimum, v.maximum)
	}
	v.minimum, v.hasMinimum = minimum, true
	return nil
}

// SetMaximum sets the upper bound. It fails if a minimum is set and would
// exceed the new maximum.
func (v *BoundedRandomVariable) SetMaximum(maximum float64) error {
	if math.IsNaN(maximum) {
		return fmt.Errorf("%w: maximum value is NaN", ErrInvalidArgument)
	}
	if v.hasMinimum && v.minimum > maximum {
		return fmt.Errorf("%w: minimum value %g exceeds maximum value %g", ErrInvalidArgument, v.minimum, maximum)
	}
	v.maximum, v.hasMaximum = maximum, true
	return nil
}

// ClearMinimum removes the lower bound.
func (v *BoundedRandomVariable) ClearMinimum() { v.minimum, v.hasMinimum = 0, false }

// ClearMaximum removes the upper bound.
func (v *BoundedRandomVariable) ClearMaximum() { v.maximum, v.hasMaximum = 0, false }

// Contains reports whether x lies inside the interval. Absent bounds are open.
func (v *BoundedRandomVariable) Contains(x float64) bool {
	if v.hasMinimum && x < v.minimum {
		return false
	}
	if v.hasMaximum && x > v.maximum {
		return false
	}
	return true
}

// NextValue draws a value from a normal distribution with the given mean and
// the configured standard deviation, confined to the interval. With no bounds
// set the first draw is returned.
func (v *BoundedRandomVariable) NextValue(mean float64) (float64, error) {
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0, fmt.Errorf("%w: mean must be finite, got %g", ErrInvalidArgument, mean)
	}

	if v.standardDeviation == 0 {
		if v.Contains(mean) {
			return mean, nil
		}
		return 0, fmt.Errorf("%w: degenerate variable with mean %g outside %s", ErrUnreachableInterval, mean, v.interval())
	}

	normal := distuv.Normal{Mu: mean, Sigma: v.standardDeviation, Src: v.source()}
	if v.method == MethodInverseCDF {
		return v.nextInverseCDF(normal)
	}
	return v.nextRejection(normal)
}

func (v *BoundedRandomVariable) nextRejection(normal distuv.Normal) (float64, error) {
	budget := v.attempts()
	for attempt := 0; attempt < budget; attempt++ {
		x := normal.Rand()
		if v.Contains(x) {
			return x, nil
		}
	}
	return 0, fmt.Errorf("%w: no draw with mean %g inside %s after %d attempts", ErrUnreachableInterval, normal.Mu, v.interval(), budget)
}

func (v *BoundedRandomVariable) nextInverseCDF(normal distuv.Normal) (float64, error) {
	mu := normal.Mu
	// Upper tails lose their mass in 1-CDF rounding; sample the mirrored
	// lower tail and reflect the result.
	mirror := v.hasMinimum && v.minimum > mu

	lo, hi := 0.0, 1.0
	if mirror {
		if v.hasMaximum {
			lo = normal.CDF(2*mu - v.maximum)
		}
		hi = normal.CDF(2*mu - v.minimum)
	} else {
		if v.hasMinimum {
			lo = normal.CDF(v.minimum)
		}
		if v.hasMaximum {
			hi = normal.CDF(v.maximum)
		}
	}
	if !(hi > lo) {
		return 0, fmt.Errorf("%w: interval %s has no probability mass for mean %g", ErrUnreachableInterval, v.interval(), normal.Mu)
	}

	rng := rand.New(normal.Src)
	budget := v.attempts()
	for attempt := 0; attempt < budget; attempt++ {
		x := normal.Quantile(lo + (hi-lo)*rng.Float64())
		if math.IsInf(x, 0) || math.IsNaN(x) {
			continue
		}
		if mirror {
			x = 2*mu - x
		}
		// Quantile(CDF(b)) can round past b.
		if v.hasMinimum && x < v.minimum {
			x = v.minimum
		}
		if v.hasMaximum && x > v.maximum {
			x = v.maximum
		}
		return x, nil
	}
	return 0, fmt.Errorf("%w: inverse CDF produced no finite value inside %s", ErrUnreachableInterval, v.interval())
}

func (v *BoundedRandomVariable) source() rand.Source {
	if v.src == nil {
		return CryptoSource()
	}
	return v.src
}

func (v *BoundedRandomVariable) attempts() int {
	if v.maxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return v.maxAttempts
}

func (v *BoundedRandomVariable) interval() string {
	lo, hi := "-inf", "+inf"
	if v.hasMinimum {
		lo = strconv.FormatFloat(v.minimum, 'g', -1, 64)
	}
	if v.hasMaximum {
		hi = strconv.FormatFloat(v.maximum, 'g', -1, 64)
	}
	return "[" + lo + ", " + hi + "]"
}

// String renders the configuration.
func (v *BoundedRandomVariable) String() string {
	bound := func(x float64, ok bool) string {
		if !ok {
			return "<nil>"
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return fmt.Sprintf("BoundedRandomVariable{variance=%g, standardDeviation=%g, minimumValue=%s, maximumValue=%s}",
		v.variance, v.standardDeviation, bound(v.minimum, v.hasMinimum), bound(v.maximum, v.hasMaximum))
}
