package csvfile

import "errors"

// Sentinel kinds for parse errors.
var (
	ErrNoData        = errors.New("csv contains no data")
	ErrMissingColumn = errors.New("required column missing")
	ErrBadEncoding   = errors.New("unsupported encoding")
)
