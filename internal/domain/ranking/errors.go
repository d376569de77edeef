package ranking

import "errors"

// Sentinel kinds for ranking errors.
var (
	ErrInvalidLimit     = errors.New("invalid ranking limit")
	ErrInvalidDirection = errors.New("invalid ranking direction")
)
