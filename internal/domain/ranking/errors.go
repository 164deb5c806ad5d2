package ranking

import "errors"

// Sentinel errors for ranking configuration and refinement.
var (
	ErrInvalidPolicy     = errors.New("invalid scoring policy")
	ErrInvalidExpression = errors.New("invalid candidate expression")
)
