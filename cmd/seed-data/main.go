package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/kenshin/internal/seeddata"
	"github.com/okian/kenshin/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumRecords  = 100
	defaultTimeout     = 30 * time.Second
	defaultSeedTimeout = 5 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:8080", "Base URL of the service")
		numRecords   = flag.Int("records", defaultNumRecords, "Number of checkup records to generate")
		invalidRatio = flag.Float64("invalid", 0, "Fraction of rows planted with an out-of-range value")
		fraction     = flag.Float64("fraction", 0, "Extraction fraction to post (0 uses the server setting)")
		user         = flag.String("user", "admin", "Basic auth user for data/save")
		password     = flag.String("password", "password", "Basic auth password for data/save")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose      = flag.Bool("verbose", false, "Log each extracted entry")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), defaultSeedTimeout)
	defer cancel()

	config := &seeddata.Config{
		BaseURL:      *baseURL,
		NumRecords:   *numRecords,
		InvalidRatio: *invalidRatio,
		Fraction:     *fraction,
		User:         *user,
		Password:     *password,
		Timeout:      *timeout,
		Verbose:      *verbose,
	}

	if err := seeddata.Run(ctx, config); err != nil {
		logger.Get().Error(ctx, "seed run failed", logger.Error(err))
		os.Exit(1)
	}
}
