package repository

import "errors"

// Sentinel kinds for dataset errors.
var (
	ErrUnknownTable = errors.New("unknown table")
	ErrMalformedRow = errors.New("malformed row")
	ErrFetch        = errors.New("fetch dataset")
	ErrEmptySource  = errors.New("empty dataset source")
)
