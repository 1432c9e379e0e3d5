// Package seeddata generates realistic checkup CSVs and drives the HTTP
// API end to end: parse, validate, save, aggregate, extract.
package seeddata

import (
	"time"
)

// Config controls a seed run.
type Config struct {
	// BaseURL of a running service, e.g. http://localhost:8080.
	BaseURL string

	// NumRecords to generate and submit.
	NumRecords int

	// InvalidRatio is the fraction of generated rows given an
	// out-of-range value, to exercise validation reporting.
	InvalidRatio float64

	// Fraction posted to analyze/extract. Zero posts no body so the
	// server-side setting applies.
	Fraction float64

	// User and Password authenticate data/save.
	User     string
	Password string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// Verbose enables per-record logging.
	Verbose bool
}

// Stats collects counters across a run.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Generated      int
	InvalidPlanted int
	Saved          int
	Extracted      int
}
