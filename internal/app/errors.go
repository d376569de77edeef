package service

import "errors"

// Sentinel errors returned by the service.
var (
	ErrInvalidControls = errors.New("invalid controls")
	ErrNotStarted      = errors.New("service not started")
	ErrStateNotFound   = errors.New("state not ranked")
)
