package api

import (
	"encoding/json"
	"net/http"

	"homescout/pkg/config"
)

// CriteriaHandler exposes the active scoring criteria, read-only.
type CriteriaHandler struct {
	criteria *config.Criteria
}

// NewCriteriaHandler creates a CriteriaHandler.
func NewCriteriaHandler(criteria *config.Criteria) *CriteriaHandler {
	return &CriteriaHandler{criteria: criteria}
}

func (h *CriteriaHandler) Handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.criteria)
}
