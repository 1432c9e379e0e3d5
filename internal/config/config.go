// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load(ctx) layers defaults, an optional YAML file, and env vars.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite database file path.
	DBPath string `koanf:"db_path"`

	// MaxUploadBytes caps the size of an uploaded CSV body.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// DefaultExtractionFraction is the fallback top-fraction used by
	// extraction when neither the request nor the settings table carry one.
	DefaultExtractionFraction float64 `koanf:"default_extraction_fraction"`

	// ScoringRuleFile optionally points at a JSON scoring rule that is
	// upserted into settings and activated at startup.
	ScoringRuleFile string `koanf:"scoring_rule_file"`

	// AdminUser and AdminPassword seed the users table at startup so a
	// fresh install can call data/save. Leaving AdminPassword empty
	// skips the seeding.
	AdminUser     string `koanf:"admin_user"`
	AdminPassword string `koanf:"admin_password"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                  "info",
		Addr:                      ":8080",
		DBPath:                    "kenshin.db",
		MaxUploadBytes:            8 << 20,
		DefaultExtractionFraction: 0.3,
		AdminUser:                 "admin",
		AdminPassword:             "password",
	}
}
