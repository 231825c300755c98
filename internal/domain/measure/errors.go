package measure

import "errors"

var (
	ErrUnknownMeasure = errors.New("unknown measure generator")
	ErrMissingValue   = errors.New("value group is missing a required value")
	ErrInvalidValue   = errors.New("value out of range for measure")
)
