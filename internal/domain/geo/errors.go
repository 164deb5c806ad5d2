package geo

import "errors"

// ErrInvalidCoordinate marks a latitude or longitude outside its valid range.
var ErrInvalidCoordinate = errors.New("invalid coordinate")
