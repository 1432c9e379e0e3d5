package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/kenshin/internal/domain/scoring"
)

// SettingsHandler handles scoring-rule and configuration requests.
type SettingsHandler struct {
	deps Dependencies
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(deps Dependencies) *SettingsHandler {
	return &SettingsHandler{deps: deps}
}

// HandleScoringRuleSave handles POST/PUT /scoringRule/save requests.
// The body is a rule document; incomplete rules may be stored and are
// only validated when scoring uses them.
func (h *SettingsHandler) HandleScoringRuleSave(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost, http.MethodPut) {
		return
	}

	var rule scoring.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(rule.ID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing id", ErrBadRequest))
		return
	}

	if err := h.deps.SaveScoringRule(r.Context(), rule); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgRuleSaved})
}

// HandleScoringRuleResult handles GET /scoring-rule/result requests,
// returning every stored rule. No rules yields an empty array.
func (h *SettingsHandler) HandleScoringRuleResult(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	rules, err := h.deps.ScoringRules(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if rules == nil {
		rules = []scoring.Rule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

type configUpdateRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// HandleConfigUpdate handles POST/PUT /config/update requests, upserting
// one settings row by key.
func (h *SettingsHandler) HandleConfigUpdate(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodPost, http.MethodPut) {
		return
	}

	var req configUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing key", ErrBadRequest))
		return
	}

	if err := h.deps.UpdateConfig(r.Context(), req.Key, req.Value); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: msgConfigUpdated})
}
