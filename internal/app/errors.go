package service

import "errors"

var (
	// ErrMissingWriter is returned when the service has no sink to write to.
	ErrMissingWriter = errors.New("service: no sink writer configured")
	// ErrInvalidRequest wraps any failure to turn a configured request into a job.
	ErrInvalidRequest = errors.New("service: invalid measure generation request")
)
