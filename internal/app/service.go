// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/kenshin/internal/adapters/repository"
	"github.com/okian/kenshin/internal/domain/aggregate"
	"github.com/okian/kenshin/internal/domain/csvfile"
	"github.com/okian/kenshin/internal/domain/extract"
	"github.com/okian/kenshin/internal/domain/model"
	"github.com/okian/kenshin/internal/domain/scoring"
	"github.com/okian/kenshin/internal/domain/validate"
	"github.com/okian/kenshin/pkg/logger"
	"github.com/okian/kenshin/pkg/metrics"
)

// Settings keys the service reads and writes.
const (
	SettingActiveRule         = "scoring_rule.active"
	SettingRulePrefix         = "scoring_rule:"
	SettingExtractionFraction = "extraction_fraction"
)

const defaultExtractionFraction = 0.3

// Service implements the API dependencies for the checkup system.
type Service struct {
	mu sync.RWMutex

	store  repository.Store
	logger logger.Logger

	// Configuration
	storePath       string
	defaultFraction float64

	// State
	started bool
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a pre-built store, mainly for tests.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithStorePath sets the SQLite database path opened on Start.
func WithStorePath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.storePath = path
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultExtractionFraction sets the fraction used when neither the
// request nor the settings table provides one.
func WithDefaultExtractionFraction(p float64) Option {
	return func(s *Service) {
		if extract.ValidFraction(p) {
			s.defaultFraction = p
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storePath:       "kenshin.db",
		defaultFraction: defaultExtractionFraction,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the store if one was not injected.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		store, err := repository.NewSQLStore(ctx, s.storePath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		s.store = store
	}
	s.started = true
	s.logger.Info(ctx, "checkup service started", logger.String("store", s.storePath))
	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error(context.Background(), "store close failed", logger.Error(err))
	}
	s.started = false
	s.logger.Info(context.Background(), "checkup service stopped")
}

// ensureStarted returns ErrNotStarted until Start has opened the store.
func (s *Service) ensureStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}

// ParseCSV parses an uploaded CSV into raw records and structural errors.
// An upload from which no row survives is a failed request, not a
// success with an empty result.
func (s *Service) ParseCSV(ctx context.Context, data []byte) (*csvfile.Result, error) {
	result, err := csvfile.Parse(data)
	if err != nil {
		metrics.RecordParseError()
		return nil, err
	}
	if len(result.Records) == 0 {
		metrics.RecordParseError()
		return nil, fmt.Errorf("%w: all %d rows malformed", csvfile.ErrNoData, len(result.Errors))
	}
	metrics.RecordUploadParsed(len(result.Records))
	s.logger.Debug(ctx, "parsed upload",
		logger.Int("records", len(result.Records)),
		logger.Int("structuralErrors", len(result.Errors)),
	)
	return result, nil
}

// ValidationOutcome is the result of validating one upload.
type ValidationOutcome struct {
	IsValid     bool                    `json:"isValid"`
	Errors      []model.ValidationError `json:"errors"`
	ParseErrors []csvfile.RowError      `json:"parseErrors,omitempty"`
	RowCount    int                     `json:"rowCount"`
}

// ValidateCSV parses and validates an uploaded CSV. Field checks are
// exhaustive per row; structural row errors are reported alongside and
// also make the outcome invalid.
func (s *Service) ValidateCSV(ctx context.Context, data []byte) (*ValidationOutcome, error) {
	parsed, err := s.ParseCSV(ctx, data)
	if err != nil {
		return nil, err
	}

	metrics.RecordValidationRun()
	report := validate.Records(parsed.Records)
	for _, e := range report.Errors {
		metrics.RecordValidationError(string(e.Reason))
	}

	return &ValidationOutcome{
		IsValid:     report.IsValid && len(parsed.Errors) == 0,
		Errors:      report.Errors,
		ParseErrors: parsed.Errors,
		RowCount:    report.RowCount,
	}, nil
}

// SaveRecords validates, scores, and persists the given rows for user.
// Returns the number of records inserted.
func (s *Service) SaveRecords(ctx context.Context, user string, rows []map[string]string) (int, error) {
	if err := s.ensureStarted(); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("%w: records", ErrMissingField)
	}

	records := make([]model.RawRecord, 0, len(rows))
	for i, row := range rows {
		values := make(map[string]string, len(model.Columns))
		for _, col := range model.Columns {
			v, ok := row[col]
			if !ok {
				return 0, fmt.Errorf("%w: row %d column %s", ErrMissingField, i+1, col)
			}
			values[col] = strings.TrimSpace(v)
		}
		records = append(records, model.RawRecord{Row: i + 1, Values: values})
	}

	report := validate.Records(records)
	if !report.IsValid {
		first := report.Errors[0]
		return 0, fmt.Errorf("%w: row %d column %s (%s)", ErrInvalidRecord, first.Row, first.Column, first.Reason)
	}

	scorer, err := s.activeScorer(ctx)
	if err != nil {
		return 0, err
	}

	saved := 0
	for _, rec := range records {
		in, err := scoring.InputFromRecord(rec)
		if err != nil {
			return saved, err
		}
		result, err := scorer.Score(ctx, in)
		if err != nil {
			return saved, err
		}
		if _, err := s.store.InsertScoredRecord(ctx, toScoredRecord(user, in, result)); err != nil {
			metrics.RecordSaveError()
			return saved, err
		}
		saved++
	}

	metrics.RecordRecordsSaved(saved)
	s.logger.Info(ctx, "saved records", logger.Int("count", saved), logger.String("user", user))
	return saved, nil
}

// toScoredRecord maps a scoring result onto the persisted shape. A
// non-finite total normalizes to 0 before persistence.
func toScoredRecord(user string, in scoring.Input, result scoring.Result) model.ScoredRecord {
	total := result.Total
	if math.IsNaN(total) || math.IsInf(total, 0) {
		total = 0
	}
	return model.ScoredRecord{
		RecordID: in.RecordID,
		User:     user,
		BMI:      in.Values["BMI"],
		SBP:      in.Values["sBP"],
		DBP:      in.Values["dBP"],
		BS:       in.Values["BS"],
		HbA1c:    in.Values["HbA1c"],
		LDL:      in.Values["LDL"],
		TG:       in.Values["TG"],
		AST:      in.Values["AST"],
		ALT:      in.Values["ALT"],
		GTP:      in.Values["GTP"],

		BMIScore:           result.SubScores[scoring.CategoryBMI],
		BloodPressureScore: result.SubScores[scoring.CategoryBloodPressure],
		BloodSugarScore:    result.SubScores[scoring.CategoryBloodSugar],
		LipidScore:         result.SubScores[scoring.CategoryLipid],
		LiverScore:         result.SubScores[scoring.CategoryLiver],
		TotalScore:         total,

		BMIGrade:           result.Grades[scoring.CategoryBMI],
		BloodPressureGrade: result.Grades[scoring.CategoryBloodPressure],
		BloodSugarGrade:    result.Grades[scoring.CategoryBloodSugar],
		LipidGrade:         result.Grades[scoring.CategoryLipid],
		LiverGrade:         result.Grades[scoring.CategoryLiver],
	}
}

// activeScorer loads the active scoring rule from settings. Absence or a
// malformed rule is a hard configuration error, never a silent default.
func (s *Service) activeScorer(ctx context.Context) (scoring.Scorer, error) {
	ruleID, err := s.store.Setting(ctx, SettingActiveRule)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scoring.ErrNoActiveRule, err)
	}
	raw, err := s.store.Setting(ctx, SettingRulePrefix+ruleID)
	if err != nil {
		return nil, fmt.Errorf("%w: rule %s: %v", scoring.ErrNoActiveRule, ruleID, err)
	}
	rule, err := scoring.ParseRule([]byte(raw))
	if err != nil {
		return nil, err
	}
	return scoring.NewRuleScorer(rule)
}

// RecordByID returns one persisted record.
func (s *Service) RecordByID(ctx context.Context, recordID string) (model.ScoredRecord, error) {
	if err := s.ensureStarted(); err != nil {
		return model.ScoredRecord{}, err
	}
	return s.store.ScoredByID(ctx, recordID)
}

// Aggregate buckets all stored total scores into the fixed distribution.
// A stored score that does not parse fails the whole request.
func (s *Service) Aggregate(ctx context.Context) ([]model.Bucket, error) {
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}
	totals, err := s.store.TotalScoreStrings(ctx)
	if err != nil {
		return nil, err
	}
	metrics.RecordAggregateQuery()
	return aggregate.Distribution(totals)
}

// Extract replaces the extracted set with the top fraction of records.
// fraction may be nil, in which case the extraction_fraction setting,
// then the configured default, applies. Returns the number of entries
// written; zero with a nil error means there was nothing to extract and
// the existing set was left untouched.
func (s *Service) Extract(ctx context.Context, fraction *float64) (int, error) {
	if err := s.ensureStarted(); err != nil {
		return 0, err
	}
	p, err := s.resolveFraction(ctx, fraction)
	if err != nil {
		return 0, err
	}

	records, err := s.store.AllScored(ctx)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		// No candidates: the deletion step is skipped too.
		s.logger.Info(ctx, "extraction skipped, no records")
		return 0, nil
	}

	entries := make([]model.ExtractedEntry, len(records))
	for i, rec := range records {
		entries[i] = model.ExtractedEntry{RecordID: rec.RecordID, TotalScore: rec.TotalScore}
	}
	top, err := extract.TopFraction(entries, p)
	if err != nil {
		return 0, err
	}
	if err := s.store.ReplaceExtracted(ctx, top); err != nil {
		return 0, err
	}

	metrics.RecordExtractionRun()
	s.logger.Info(ctx, "extraction finished",
		logger.Float64("fraction", p),
		logger.Int("extracted", len(top)),
		logger.Int("candidates", len(records)),
	)
	return len(top), nil
}

func (s *Service) resolveFraction(ctx context.Context, fraction *float64) (float64, error) {
	if fraction != nil {
		if !extract.ValidFraction(*fraction) {
			return 0, extract.ErrInvalidFraction
		}
		return *fraction, nil
	}
	// A bad stored value is server misconfiguration, not client input.
	if raw, err := s.store.Setting(ctx, SettingExtractionFraction); err == nil {
		p, err := strconv.ParseFloat(raw, 64)
		if err != nil || !extract.ValidFraction(p) {
			return 0, fmt.Errorf("%w: setting %s=%q", ErrBadFractionSetting, SettingExtractionFraction, raw)
		}
		return p, nil
	}
	return s.defaultFraction, nil
}

// Extracted returns the current extracted set.
func (s *Service) Extracted(ctx context.Context) ([]model.ExtractedEntry, error) {
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}
	return s.store.AllExtracted(ctx)
}

// SaveScoringRule stores a rule document under its id. Stored rules may
// be incomplete; they are validated when activated. The first rule
// saved becomes active automatically.
func (s *Service) SaveScoringRule(ctx context.Context, rule scoring.Rule) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}
	id := strings.TrimSpace(rule.ID)
	if id == "" {
		return fmt.Errorf("%w: id", ErrMissingField)
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("marshal rule: %w", err)
	}
	if err := s.store.UpsertSetting(ctx, SettingRulePrefix+id, string(data)); err != nil {
		return err
	}
	if _, err := s.store.Setting(ctx, SettingActiveRule); err != nil {
		return s.store.UpsertSetting(ctx, SettingActiveRule, id)
	}
	return nil
}

// ScoringRules returns every stored rule in key order.
func (s *Service) ScoringRules(ctx context.Context) ([]scoring.Rule, error) {
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}
	settings, err := s.store.SettingsByPrefix(ctx, SettingRulePrefix)
	if err != nil {
		return nil, err
	}
	rules := make([]scoring.Rule, 0, len(settings))
	for _, st := range settings {
		rule, err := scoring.ParseRule([]byte(st.Value))
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", st.Key, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// UpdateConfig upserts one settings row.
func (s *Service) UpdateConfig(ctx context.Context, key, value string) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: key", ErrMissingField)
	}
	return s.store.UpsertSetting(ctx, key, value)
}

// WriteLog appends one operational log entry.
func (s *Service) WriteLog(ctx context.Context, level, message, user string) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: message", ErrMissingField)
	}
	if level == "" {
		level = "info"
	}
	return s.store.AppendLog(ctx, model.LogEntry{
		ID:      uuid.NewString(),
		Level:   level,
		Message: message,
		User:    user,
	})
}

// Authenticate compares the given credentials against the users table.
// Passwords are compared as plain text, matching the upstream layout.
func (s *Service) Authenticate(ctx context.Context, name, password string) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}
	if name == "" || password == "" {
		return ErrUnauthenticated
	}
	u, err := s.store.UserByName(ctx, name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if u.Password != password {
		return ErrUnauthenticated
	}
	return nil
}

// RegisterUser stores a credential row; used by bootstrap and tooling.
func (s *Service) RegisterUser(ctx context.Context, name, password string) error {
	if err := s.ensureStarted(); err != nil {
		return err
	}
	if name == "" || password == "" {
		return fmt.Errorf("%w: name and password", ErrMissingField)
	}
	return s.store.UpsertUser(ctx, model.User{Name: name, Password: password})
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started": s.started,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	if n, err := s.store.CountScored(ctx); err == nil {
		stats["records"] = n
		metrics.UpdateRecordsTotal(n)
	}
	if n, err := s.store.CountExtracted(ctx); err == nil {
		stats["extracted"] = n
		metrics.UpdateExtractedEntries(n)
	}
	return stats
}
