// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/okian/kenshin/internal/adapters/repository"
	service "github.com/okian/kenshin/internal/app"
	"github.com/okian/kenshin/internal/domain/aggregate"
	"github.com/okian/kenshin/internal/domain/csvfile"
	"github.com/okian/kenshin/internal/domain/extract"
	"github.com/okian/kenshin/internal/domain/model"
	"github.com/okian/kenshin/internal/domain/scoring"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ParseCSV(ctx context.Context, data []byte) (*csvfile.Result, error)
	ValidateCSV(ctx context.Context, data []byte) (*service.ValidationOutcome, error)
	SaveRecords(ctx context.Context, user string, rows []map[string]string) (int, error)
	RecordByID(ctx context.Context, id string) (model.ScoredRecord, error)
	Aggregate(ctx context.Context) ([]model.Bucket, error)
	Extract(ctx context.Context, fraction *float64) (int, error)
	Extracted(ctx context.Context) ([]model.ExtractedEntry, error)
	SaveScoringRule(ctx context.Context, rule scoring.Rule) error
	ScoringRules(ctx context.Context) ([]scoring.Rule, error)
	UpdateConfig(ctx context.Context, key, value string) error
	WriteLog(ctx context.Context, level, message, user string) error
	Authenticate(ctx context.Context, name, password string) error
}

// User-facing messages. The UI is Japanese, like the data it manages.
const (
	msgParsed           = "CSVファイルを解析しました。"
	msgValidated        = "検証が完了しました。"
	msgSaved            = "健診データを保存しました。"
	msgRuleSaved        = "スコアリングルールを保存しました。"
	msgConfigUpdated    = "設定を更新しました。"
	msgLogWritten       = "ログを書き込みました。"
	msgExtracted        = "上位%d件を抽出しました。"
	msgNothingToExtract = "抽出対象のデータがありません。"
)

// Server wires HTTP routes for the business API.
type Server struct {
	fileHandler     *FileHandler
	saveHandler     *SaveHandler
	analyzeHandler  *AnalyzeHandler
	settingsHandler *SettingsHandler
	logsHandler     *LogsHandler
	statsHandler    *StatsHandler
	healthHandler   *HealthHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxUploadBytes int64) *Server {
	return &Server{
		fileHandler:     NewFileHandler(deps, maxUploadBytes),
		saveHandler:     NewSaveHandler(deps),
		analyzeHandler:  NewAnalyzeHandler(deps),
		settingsHandler: NewSettingsHandler(deps),
		logsHandler:     NewLogsHandler(deps),
		statsHandler:    NewStatsHandler(statsProvider),
		healthHandler:   NewHealthHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/file/parse", MetricsMiddleware(s.fileHandler.HandleParse, "file/parse"))
	mux.HandleFunc("/file/validate", MetricsMiddleware(s.fileHandler.HandleValidate, "file/validate"))
	mux.HandleFunc("/data/save", MetricsMiddleware(s.saveHandler.HandleSave, "data/save"))
	mux.HandleFunc("/data/result", MetricsMiddleware(s.saveHandler.HandleResult, "data/result"))
	mux.HandleFunc("/analyze/aggregate", MetricsMiddleware(s.analyzeHandler.HandleAggregate, "analyze/aggregate"))
	mux.HandleFunc("/analyze/extract", MetricsMiddleware(s.analyzeHandler.HandleExtract, "analyze/extract"))
	mux.HandleFunc("/analyze/extracted", MetricsMiddleware(s.analyzeHandler.HandleExtracted, "analyze/extracted"))
	mux.HandleFunc("/scoringRule/save", MetricsMiddleware(s.settingsHandler.HandleScoringRuleSave, "scoringRule/save"))
	// The result path is hyphenated while save is camel-cased. Kept as
	// shipped because existing clients depend on both spellings.
	mux.HandleFunc("/scoring-rule/result", MetricsMiddleware(s.settingsHandler.HandleScoringRuleResult, "scoring-rule/result"))
	mux.HandleFunc("/config/update", MetricsMiddleware(s.settingsHandler.HandleConfigUpdate, "config/update"))
	mux.HandleFunc("/log/write", MetricsMiddleware(s.logsHandler.HandleWriteLog, "log/write"))
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// allowMethods enforces the allowed methods for an endpoint. A wrong
// method answers 405 with an Allow header and a structured body.
func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", ErrMethodNotAllowed)
	return false
}

// writeServiceError maps a service-layer error onto the endpoint's
// status codes. Client input problems are 4xx; configuration and store
// failures are 500. Nothing propagates past the handler.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, service.ErrMissingField),
		errors.Is(err, service.ErrInvalidRecord),
		errors.Is(err, csvfile.ErrNoData),
		errors.Is(err, csvfile.ErrMissingColumn),
		errors.Is(err, csvfile.ErrBadEncoding),
		errors.Is(err, extract.ErrInvalidFraction):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, scoring.ErrNoActiveRule),
		errors.Is(err, scoring.ErrMalformedRule),
		errors.Is(err, service.ErrBadFractionSetting):
		writeError(w, http.StatusInternalServerError, "missing_configuration", err)
	case errors.Is(err, aggregate.ErrBadScore):
		writeError(w, http.StatusInternalServerError, "bad_stored_score", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
