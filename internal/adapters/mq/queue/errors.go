package queue

import "errors"

// Sentinel kinds for enqueue failures.
var (
	ErrFull   = errors.New("status queue full")
	ErrClosed = errors.New("status queue closed")
)
