package api

import (
	"io"
	"net/http"

	"github.com/okian/kenshin/internal/domain/csvfile"
	"github.com/okian/kenshin/internal/domain/model"
)

const defaultMaxUploadBytes = 8 << 20 // 8 MiB

// FileHandler handles CSV upload parsing and validation.
type FileHandler struct {
	deps      Dependencies
	maxUpload int64
}

// NewFileHandler creates a new file handler.
func NewFileHandler(deps Dependencies, maxUploadBytes int64) *FileHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = defaultMaxUploadBytes
	}
	return &FileHandler{deps: deps, maxUpload: maxUploadBytes}
}

type parseResponse struct {
	Message     string             `json:"message"`
	Data        []model.RawRecord  `json:"data"`
	ParseErrors []csvfile.RowError `json:"parseErrors,omitempty"`
}

// HandleParse handles POST /file/parse requests. The body is the raw
// CSV file content.
func (h *FileHandler) HandleParse(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	data, ok := h.readBody(w, r)
	if !ok {
		return
	}

	result, err := h.deps.ParseCSV(r.Context(), data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	records := result.Records
	if records == nil {
		records = []model.RawRecord{}
	}
	writeJSON(w, http.StatusOK, parseResponse{
		Message:     msgParsed,
		Data:        records,
		ParseErrors: result.Errors,
	})
}

type validateResponse struct {
	Message     string                  `json:"message"`
	IsValid     bool                    `json:"isValid"`
	Errors      []model.ValidationError `json:"errors"`
	ParseErrors []csvfile.RowError      `json:"parseErrors,omitempty"`
	RowCount    int                     `json:"rowCount"`
}

// HandleValidate handles POST /file/validate requests.
func (h *FileHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}
	data, ok := h.readBody(w, r)
	if !ok {
		return
	}

	outcome, err := h.deps.ValidateCSV(r.Context(), data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	errs := outcome.Errors
	if errs == nil {
		errs = []model.ValidationError{}
	}
	writeJSON(w, http.StatusOK, validateResponse{
		Message:     msgValidated,
		IsValid:     outcome.IsValid,
		Errors:      errs,
		ParseErrors: outcome.ParseErrors,
		RowCount:    outcome.RowCount,
	})
}

func (h *FileHandler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return nil, false
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "empty_body", ErrEmptyBody)
		return nil, false
	}
	return data, true
}
