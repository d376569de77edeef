package probe

import "errors"

// Error constants.
var (
	ErrInvalidConfig = errors.New("invalid probe config")
	ErrRequest       = errors.New("request failed")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrViolations    = errors.New("invariant violations found")
)
