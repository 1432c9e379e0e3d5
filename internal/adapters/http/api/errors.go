package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrEmptyBody        = errors.New("request body is empty")
	ErrMethodNotAllowed = errors.New("method not allowed")
)
