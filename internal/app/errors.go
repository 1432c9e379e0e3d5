package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrMissingField    = errors.New("missing required field")
	ErrInvalidRecord   = errors.New("record failed validation")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotStarted      = errors.New("service not started")

	// ErrBadFractionSetting means the stored extraction_fraction setting
	// is unusable. Server misconfiguration, not client input.
	ErrBadFractionSetting = errors.New("stored extraction fraction is invalid")
)
