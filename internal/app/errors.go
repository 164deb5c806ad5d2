package service

import "errors"

// Sentinel errors returned by the dispatch service.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrLimitExceeded = errors.New("limit exceeds maximum")
)
