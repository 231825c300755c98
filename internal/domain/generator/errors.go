package generator

import "errors"

// Sentinel error kinds for this package.
var (
	ErrMissingUserID  = errors.New("user id is required")
	ErrMissingFactory = errors.New("measure factory is required")
	ErrIdentifier     = errors.New("minting data point identifier failed")
)
