package randvar

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrInvalidArgument reports a negative scale, a NaN argument or a
	// minimum/maximum pair that is out of order.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnreachableInterval reports that no draw landed inside the configured
	// interval within the attempt budget, or that the interval carries no
	// probability mass for the requested mean.
	ErrUnreachableInterval = errors.New("sampling interval unreachable")
)
