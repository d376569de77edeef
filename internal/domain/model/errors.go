package model

import "errors"

// Recoverable pipeline conditions. None of them is fatal: callers degrade the
// affected view and keep serving the others.
var (
	ErrNoData         = errors.New("no data for date")
	ErrMissingMetric  = errors.New("missing metric")
	ErrZeroPopulation = errors.New("population is zero")
)
