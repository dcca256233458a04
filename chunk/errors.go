package chunk

import "errors"

// ErrUnknownStrategy indicates a strategy name with no registered
// algorithm.
var ErrUnknownStrategy = errors.New("unknown chunking strategy")
