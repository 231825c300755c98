package sink

import "errors"

// Sentinel kinds for sink errors.
var (
	ErrUnknownDestination = errors.New("unknown output destination")
	ErrClosed             = errors.New("sink closed")
	ErrEncode             = errors.New("encoding data point failed")
	ErrWrite              = errors.New("writing data points failed")
	ErrConnect            = errors.New("connecting sink failed")
)
