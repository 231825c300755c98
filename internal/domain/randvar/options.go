package randvar

import "golang.org/x/exp/rand"

// Option applies a configuration option to a BoundedRandomVariable.
type Option func(*BoundedRandomVariable)

// WithMinimum sets the lower bound of the interval.
func WithMinimum(minimum float64) Option {
	return func(v *BoundedRandomVariable) {
		v.minimum, v.hasMinimum = minimum, true
	}
}

// WithMaximum sets the upper bound of the interval.
func WithMaximum(maximum float64) Option {
	return func(v *BoundedRandomVariable) {
		v.maximum, v.hasMaximum = maximum, true
	}
}

// WithBounds sets both bounds of the interval.
func WithBounds(minimum, maximum float64) Option {
	return func(v *BoundedRandomVariable) {
		WithMinimum(minimum)(v)
		WithMaximum(maximum)(v)
	}
}

// WithSource sets the entropy source. Defaults to CryptoSource.
func WithSource(src rand.Source) Option {
	return func(v *BoundedRandomVariable) {
		if src != nil {
			v.src = src
		}
	}
}

// WithMaxAttempts caps the number of draws per NextValue call.
// Non-positive values keep DefaultMaxAttempts.
func WithMaxAttempts(n int) Option {
	return func(v *BoundedRandomVariable) {
		if n > 0 {
			v.maxAttempts = n
		}
	}
}

// WithMethod selects the truncation method.
func WithMethod(m Method) Option {
	return func(v *BoundedRandomVariable) {
		v.method = m
	}
}
