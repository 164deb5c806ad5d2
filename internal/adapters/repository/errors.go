package repository

import "errors"

// Sentinel kinds for roster errors.
var (
	ErrNotFound = errors.New("technician not found")
	ErrConflict = errors.New("concurrent roster update")
	ErrCorrupt  = errors.New("corrupt roster record")
)
