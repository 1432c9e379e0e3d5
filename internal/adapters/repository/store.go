// Package repository defines the persistence gateway and its errors.
package repository

import (
	"context"

	"github.com/okian/kenshin/internal/domain/model"
)

// Store provides CRUD access to the checkup datastore. It owns no
// business logic; every method is a single round-trip except
// ReplaceExtracted, which wraps its two steps in one transaction.
type Store interface {
	// InsertScoredRecord persists one scored record.
	// Returns ErrDuplicate if the record id already exists.
	InsertScoredRecord(ctx context.Context, rec model.ScoredRecord) (int64, error)

	// AllScored returns every scored record in insertion order.
	AllScored(ctx context.Context) ([]model.ScoredRecord, error)

	// ScoredByID returns the record with the given checkup identifier.
	// Returns ErrNotFound if the id is unknown.
	ScoredByID(ctx context.Context, recordID string) (model.ScoredRecord, error)

	// TotalScoreStrings returns the raw stored total_score values in
	// insertion order, untouched, for the aggregator's strict parse.
	TotalScoreStrings(ctx context.Context) ([]string, error)

	// CountScored returns the number of scored records.
	CountScored(ctx context.Context) (int, error)

	// UpsertSetting inserts or replaces a settings row by key.
	UpsertSetting(ctx context.Context, key, value string) error

	// Setting returns the value for key. Returns ErrNotFound if absent.
	Setting(ctx context.Context, key string) (string, error)

	// SettingsByPrefix returns all settings whose key starts with prefix,
	// in key order.
	SettingsByPrefix(ctx context.Context, prefix string) ([]model.Setting, error)

	// ReplaceExtracted replaces the whole extracted set with entries.
	ReplaceExtracted(ctx context.Context, entries []model.ExtractedEntry) error

	// AllExtracted returns the extracted set in stored order.
	AllExtracted(ctx context.Context) ([]model.ExtractedEntry, error)

	// CountExtracted returns the size of the extracted set.
	CountExtracted(ctx context.Context) (int, error)

	// AppendLog persists one operational log entry.
	AppendLog(ctx context.Context, entry model.LogEntry) error

	// UserByName returns the stored credential row for name.
	// Returns ErrNotFound if the user is unknown.
	UserByName(ctx context.Context, name string) (model.User, error)

	// UpsertUser inserts or replaces a credential row.
	UpsertUser(ctx context.Context, user model.User) error

	// Close releases the underlying connection.
	Close() error
}
