package timeline

import "errors"

// ErrInvalidRequest reports a malformed measure generation request.
var ErrInvalidRequest = errors.New("invalid measure generation request")
