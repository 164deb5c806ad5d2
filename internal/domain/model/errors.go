package model

import "errors"

// Sentinel validation errors for domain models.
var (
	ErrInvalidUrgency    = errors.New("invalid urgency")
	ErrInvalidTechnician = errors.New("invalid technician")
	ErrInvalidEvent      = errors.New("invalid status event")
)
