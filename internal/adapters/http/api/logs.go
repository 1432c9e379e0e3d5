package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// LogsHandler handles operational log writes.
type LogsHandler struct {
	deps Dependencies
}

// NewLogsHandler creates a new logs handler.
func NewLogsHandler(deps Dependencies) *LogsHandler {
	return &LogsHandler{deps: deps}
}

type logWriteRequest struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	User    string `json:"user"`
}

// HandleWriteLog handles POST /log/write requests.
func (h *LogsHandler) HandleWriteLog(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost) {
		return
	}

	var req logWriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing message", ErrBadRequest))
		return
	}

	if err := h.deps.WriteLog(r.Context(), req.Level, req.Message, req.User); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgLogWritten})
}
