package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/okian/kenshin/internal/domain/extract"
	"github.com/okian/kenshin/internal/domain/model"
)

// AnalyzeHandler handles distribution and extraction requests.
type AnalyzeHandler struct {
	deps Dependencies
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Dependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps}
}

// HandleAggregate handles GET /analyze/aggregate requests. A stored
// total score that does not parse as a number fails the whole request.
func (h *AnalyzeHandler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	buckets, err := h.deps.Aggregate(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

type extractRequest struct {
	Percentage *float64 `json:"percentage"`
}

// HandleExtract handles POST /analyze/extract requests. The optional
// body carries the extraction fraction; with no body, the stored
// extraction_fraction setting (then the configured default) applies.
func (h *AnalyzeHandler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	var fraction *float64
	if len(body) > 0 {
		var req extractRequest
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
			return
		}
		if req.Percentage == nil {
			writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing percentage", ErrBadRequest))
			return
		}
		if !extract.ValidFraction(*req.Percentage) {
			writeError(w, http.StatusBadRequest, "bad_request", extract.ErrInvalidFraction)
			return
		}
		fraction = req.Percentage
	}

	count, err := h.deps.Extract(r.Context(), fraction)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidFraction) {
			writeError(w, http.StatusBadRequest, "bad_request", err)
			return
		}
		writeServiceError(w, err)
		return
	}
	if count == 0 {
		writeJSON(w, http.StatusOK, messageResponse{Message: msgNothingToExtract})
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: fmt.Sprintf(msgExtracted, count)})
}

// HandleExtracted handles GET /analyze/extracted requests, listing the
// current extracted set ordered by total score descending.
func (h *AnalyzeHandler) HandleExtracted(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	entries, err := h.deps.Extracted(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []model.ExtractedEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
