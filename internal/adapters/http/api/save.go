package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/kenshin/internal/app"
)

// SaveHandler handles scored-record persistence requests.
type SaveHandler struct {
	deps Dependencies
}

// NewSaveHandler creates a new save handler.
func NewSaveHandler(deps Dependencies) *SaveHandler {
	return &SaveHandler{deps: deps}
}

type saveRequest struct {
	Records []map[string]string `json:"records"`
}

// HandleSave handles POST /data/save requests. The caller authenticates
// with HTTP basic auth against the users table; records are validated,
// scored with the active rule, and persisted.
func (h *SaveHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	name, password, ok := r.BasicAuth()
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthenticated", service.ErrUnauthenticated)
		return
	}
	if err := h.deps.Authenticate(r.Context(), name, password); err != nil {
		writeServiceError(w, err)
		return
	}

	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing records", ErrBadRequest))
		return
	}

	if _, err := h.deps.SaveRecords(r.Context(), name, req.Records); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgSaved})
}

// HandleResult handles GET /data/result?id=... requests, returning one
// stored record by its checkup ID.
func (h *SaveHandler) HandleResult(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing id", ErrBadRequest))
		return
	}

	rec, err := h.deps.RecordByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
