package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	// ErrNoActiveRule means no scoring rule is configured. Scoring fails
	// hard rather than silently defaulting.
	ErrNoActiveRule = errors.New("no active scoring rule configured")

	// ErrMalformedRule means the stored rule cannot drive the scorer.
	ErrMalformedRule = errors.New("malformed scoring rule")

	// ErrBadInput means the input record was not a validated record.
	ErrBadInput = errors.New("bad scoring input")
)
