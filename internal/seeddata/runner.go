package seeddata

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/kenshin/internal/domain/model"
	"github.com/okian/kenshin/pkg/logger"
)

// Run executes a complete seed pass against a running service.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get()

	log.Info(ctx, "starting kenshin seed run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("records", config.NumRecords),
		logger.Float64("invalidRatio", config.InvalidRatio),
		logger.String("timeout", config.Timeout.String()))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	records := generateRecords(config, stats)
	csv := toCSV(records)

	// Parse and validate the upload the way a client would before saving.
	var parsed struct {
		Message string `json:"message"`
		Data    []any  `json:"data"`
	}
	if err := postCSV(ctx, config, "/file/parse", csv, &parsed); err != nil {
		return fmt.Errorf("parse failed: %w", err)
	}
	log.Info(ctx, "parsed upload", logger.Int("rows", len(parsed.Data)))

	var outcome struct {
		IsValid  bool `json:"isValid"`
		RowCount int  `json:"rowCount"`
		Errors   []struct {
			Row    int    `json:"row"`
			Column string `json:"column"`
			Reason string `json:"reason"`
		} `json:"errors"`
	}
	if err := postCSV(ctx, config, "/file/validate", csv, &outcome); err != nil {
		return fmt.Errorf("validate failed: %w", err)
	}
	log.Info(ctx, "validated upload",
		logger.Any("isValid", outcome.IsValid),
		logger.Int("rowCount", outcome.RowCount),
		logger.Int("errors", len(outcome.Errors)))
	if len(outcome.Errors) != stats.InvalidPlanted {
		log.Warn(ctx, "planted and reported error counts differ",
			logger.Int("planted", stats.InvalidPlanted),
			logger.Int("reported", len(outcome.Errors)))
	}

	// Save only the clean rows; the service rejects a batch containing
	// any invalid record.
	clean := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec["sBP"] != "999" {
			clean = append(clean, rec)
		}
	}
	if len(clean) == 0 {
		return fmt.Errorf("no clean records to save")
	}
	var saved struct {
		Message string `json:"message"`
	}
	if err := postJSON(ctx, config, "/data/save", map[string]any{"records": clean}, &saved, true); err != nil {
		return fmt.Errorf("save failed: %w", err)
	}
	stats.Saved = len(clean)
	log.Info(ctx, "saved records", logger.Int("count", stats.Saved), logger.String("message", saved.Message))

	var buckets []model.Bucket
	if err := getJSON(ctx, config, "/analyze/aggregate", &buckets); err != nil {
		return fmt.Errorf("aggregate failed: %w", err)
	}
	for _, b := range buckets {
		log.Info(ctx, "score bucket", logger.String("range", b.Range), logger.Int("count", b.Count))
	}

	var extractBody map[string]any
	if config.Fraction > 0 {
		extractBody = map[string]any{"percentage": config.Fraction}
	}
	var extracted struct {
		Message string `json:"message"`
	}
	if err := postJSON(ctx, config, "/analyze/extract", extractBody, &extracted, false); err != nil {
		return fmt.Errorf("extract failed: %w", err)
	}
	log.Info(ctx, "extraction complete", logger.String("message", extracted.Message))

	var entries []model.ExtractedEntry
	if err := getJSON(ctx, config, "/analyze/extracted", &entries); err != nil {
		return fmt.Errorf("extracted listing failed: %w", err)
	}
	stats.Extracted = len(entries)
	if config.Verbose {
		for _, e := range entries {
			log.Info(ctx, "extracted entry", logger.String("recordID", e.RecordID), logger.Float64("totalScore", e.TotalScore))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "seed run finished",
		logger.Int("generated", stats.Generated),
		logger.Int("saved", stats.Saved),
		logger.Int("extracted", stats.Extracted),
		logger.String("duration", stats.Duration.String()))
	return nil
}
