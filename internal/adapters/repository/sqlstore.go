package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/okian/kenshin/internal/domain/model"
	"github.com/okian/kenshin/pkg/logger"
	"github.com/okian/kenshin/pkg/metrics"
)

// SQLStore implements Store on SQLite via database/sql.
type SQLStore struct {
	db     *sql.DB
	logger logger.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS health_check_results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id   TEXT NOT NULL UNIQUE,
	user_name   TEXT NOT NULL,
	bmi         REAL NOT NULL,
	sbp         REAL NOT NULL,
	dbp         REAL NOT NULL,
	bs          REAL NOT NULL,
	hba1c       REAL NOT NULL,
	ldl         REAL NOT NULL,
	tg          REAL NOT NULL,
	ast         REAL NOT NULL,
	alt         REAL NOT NULL,
	gtp         REAL NOT NULL,
	bmi_score            REAL NOT NULL DEFAULT 0,
	blood_pressure_score REAL NOT NULL DEFAULT 0,
	blood_sugar_score    REAL NOT NULL DEFAULT 0,
	lipid_score          REAL NOT NULL DEFAULT 0,
	liver_score          REAL NOT NULL DEFAULT 0,
	total_score          NUMERIC NOT NULL DEFAULT 0,
	bmi_grade            TEXT NOT NULL DEFAULT '',
	blood_pressure_grade TEXT NOT NULL DEFAULT '',
	blood_sugar_grade    TEXT NOT NULL DEFAULT '',
	lipid_grade          TEXT NOT NULL DEFAULT '',
	liver_grade          TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_hcr_total_score ON health_check_results(total_score);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS extracted_ids (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	record_id   TEXT NOT NULL,
	total_score REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS logs (
	id         TEXT PRIMARY KEY,
	level      TEXT NOT NULL DEFAULT 'info',
	message    TEXT NOT NULL,
	user_name  TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS users (
	name     TEXT PRIMARY KEY,
	password TEXT NOT NULL
);
`

const scoredColumns = `record_id, user_name,
	bmi, sbp, dbp, bs, hba1c, ldl, tg, ast, alt, gtp,
	bmi_score, blood_pressure_score, blood_sugar_score, lipid_score, liver_score,
	total_score,
	bmi_grade, blood_pressure_grade, blood_sugar_grade, lipid_grade, liver_grade,
	created_at, updated_at`

// NewSQLStore opens (or creates) the SQLite database at path and
// bootstraps the schema. Use ":memory:" for an ephemeral store.
func NewSQLStore(ctx context.Context, path string, opts ...Option) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection: an in-memory database exists per connection, and a
	// single writer avoids SQLITE_BUSY on file databases.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	s := &SQLStore{
		db:     db,
		logger: logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// InsertScoredRecord persists one scored record.
func (s *SQLStore) InsertScoredRecord(ctx context.Context, rec model.ScoredRecord) (int64, error) {
	start := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO health_check_results (record_id, user_name,
			bmi, sbp, dbp, bs, hba1c, ldl, tg, ast, alt, gtp,
			bmi_score, blood_pressure_score, blood_sugar_score, lipid_score, liver_score,
			total_score,
			bmi_grade, blood_pressure_grade, blood_sugar_grade, lipid_grade, liver_grade)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RecordID, rec.User,
		rec.BMI, rec.SBP, rec.DBP, rec.BS, rec.HbA1c, rec.LDL, rec.TG, rec.AST, rec.ALT, rec.GTP,
		rec.BMIScore, rec.BloodPressureScore, rec.BloodSugarScore, rec.LipidScore, rec.LiverScore,
		rec.TotalScore,
		string(rec.BMIGrade), string(rec.BloodPressureGrade), string(rec.BloodSugarGrade),
		string(rec.LipidGrade), string(rec.LiverGrade),
	)
	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return 0, fmt.Errorf("%w: %s", ErrDuplicate, rec.RecordID)
		}
		return 0, fmt.Errorf("insert scored record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert scored record: %w", err)
	}
	return id, nil
}

// AllScored returns every scored record in insertion (rowid) order.
func (s *SQLStore) AllScored(ctx context.Context) ([]model.ScoredRecord, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scoredColumns+` FROM health_check_results ORDER BY id`)
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("query scored records: %w", err)
	}
	defer rows.Close()

	var records []model.ScoredRecord
	for rows.Next() {
		rec, err := scanScored(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query scored records: %w", err)
	}
	return records, nil
}

// ScoredByID returns the record with the given checkup identifier.
func (s *SQLStore) ScoredByID(ctx context.Context, recordID string) (model.ScoredRecord, error) {
	start := time.Now()
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scoredColumns+` FROM health_check_results WHERE record_id = ?`, recordID)
	rec, err := scanScored(row)
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoredRecord{}, fmt.Errorf("%w: %s", ErrNotFound, recordID)
	}
	if err != nil {
		return model.ScoredRecord{}, err
	}
	return rec, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanScored(sc scanner) (model.ScoredRecord, error) {
	var rec model.ScoredRecord
	var bmiGrade, bpGrade, bsGrade, lipidGrade, liverGrade string
	err := sc.Scan(
		&rec.RecordID, &rec.User,
		&rec.BMI, &rec.SBP, &rec.DBP, &rec.BS, &rec.HbA1c, &rec.LDL, &rec.TG, &rec.AST, &rec.ALT, &rec.GTP,
		&rec.BMIScore, &rec.BloodPressureScore, &rec.BloodSugarScore, &rec.LipidScore, &rec.LiverScore,
		&rec.TotalScore,
		&bmiGrade, &bpGrade, &bsGrade, &lipidGrade, &liverGrade,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ScoredRecord{}, err
	}
	if err != nil {
		return model.ScoredRecord{}, fmt.Errorf("scan scored record: %w", err)
	}
	rec.BMIGrade = model.Grade(bmiGrade)
	rec.BloodPressureGrade = model.Grade(bpGrade)
	rec.BloodSugarGrade = model.Grade(bsGrade)
	rec.LipidGrade = model.Grade(lipidGrade)
	rec.LiverGrade = model.Grade(liverGrade)
	return rec, nil
}

// TotalScoreStrings returns raw total_score values in insertion order.
// Values are scanned as text so the aggregator sees exactly what is
// stored, including anything that is not a number.
func (s *SQLStore) TotalScoreStrings(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx,
		`SELECT CAST(total_score AS TEXT) FROM health_check_results ORDER BY id`)
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("query total scores: %w", err)
	}
	defer rows.Close()

	var totals []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan total score: %w", err)
		}
		totals = append(totals, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query total scores: %w", err)
	}
	return totals, nil
}

// CountScored returns the number of scored records.
func (s *SQLStore) CountScored(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM health_check_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count scored records: %w", err)
	}
	return n, nil
}

// UpsertSetting inserts or replaces a settings row by key.
func (s *SQLStore) UpsertSetting(ctx context.Context, key, value string) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value,
	)
	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

// Setting returns the value stored under key.
func (s *SQLStore) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: setting %s", ErrNotFound, key)
	}
	if err != nil {
		return "", fmt.Errorf("query setting %s: %w", key, err)
	}
	return value, nil
}

// SettingsByPrefix returns all settings whose key starts with prefix.
func (s *SQLStore) SettingsByPrefix(ctx context.Context, prefix string) ([]model.Setting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM settings WHERE key LIKE ? || '%' ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("query settings by prefix: %w", err)
	}
	defer rows.Close()

	var settings []model.Setting
	for rows.Next() {
		var st model.Setting
		if err := rows.Scan(&st.Key, &st.Value, &st.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query settings by prefix: %w", err)
	}
	return settings, nil
}

// ReplaceExtracted replaces the whole extracted set with entries.
// Delete and insert run in one transaction so a failure between the two
// steps cannot leave the set empty.
func (s *SQLStore) ReplaceExtracted(ctx context.Context, entries []model.ExtractedEntry) error {
	start := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace extracted: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, `DELETE FROM extracted_ids`); err != nil {
		return fmt.Errorf("delete extracted: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO extracted_ids (record_id, total_score) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert extracted: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.RecordID, e.TotalScore); err != nil {
			return fmt.Errorf("insert extracted %s: %w", e.RecordID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace extracted: %w", err)
	}
	metrics.RecordStoreWriteLatency(float64(time.Since(start).Milliseconds()))
	metrics.UpdateExtractedEntries(len(entries))
	return nil
}

// AllExtracted returns the extracted set in stored order.
func (s *SQLStore) AllExtracted(ctx context.Context) ([]model.ExtractedEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record_id, total_score FROM extracted_ids ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query extracted: %w", err)
	}
	defer rows.Close()

	var entries []model.ExtractedEntry
	for rows.Next() {
		var e model.ExtractedEntry
		if err := rows.Scan(&e.RecordID, &e.TotalScore); err != nil {
			return nil, fmt.Errorf("scan extracted: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query extracted: %w", err)
	}
	return entries, nil
}

// CountExtracted returns the size of the extracted set.
func (s *SQLStore) CountExtracted(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM extracted_ids`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count extracted: %w", err)
	}
	return n, nil
}

// AppendLog persists one operational log entry.
func (s *SQLStore) AppendLog(ctx context.Context, entry model.LogEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (id, level, message, user_name) VALUES (?, ?, ?, ?)`,
		entry.ID, entry.Level, entry.Message, entry.User,
	)
	if err != nil {
		return fmt.Errorf("append log: %w", err)
	}
	return nil
}

// UserByName returns the stored credential row for name.
func (s *SQLStore) UserByName(ctx context.Context, name string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, `SELECT name, password FROM users WHERE name = ?`, name).
		Scan(&u.Name, &u.Password)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, fmt.Errorf("%w: user %s", ErrNotFound, name)
	}
	if err != nil {
		return model.User{}, fmt.Errorf("query user %s: %w", name, err)
	}
	return u, nil
}

// UpsertUser inserts or replaces a credential row.
func (s *SQLStore) UpsertUser(ctx context.Context, user model.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, password) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET password = excluded.password`,
		user.Name, user.Password,
	)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", user.Name, err)
	}
	return nil
}
