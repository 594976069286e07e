package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"

	"homescout/pkg/model"
	"homescout/pkg/store"
)

// AreaHandler serves area records from the store.
type AreaHandler struct {
	store store.AreaStore
}

// NewAreaHandler creates an AreaHandler.
func NewAreaHandler(st store.AreaStore) *AreaHandler {
	return &AreaHandler{store: st}
}

// AreaSummary is the list-view projection of an area: identity, progress
// and score, without the full enrichment payloads.
type AreaSummary struct {
	Identifier string       `json:"identifier"`
	Name       string       `json:"name"`
	Postcode   string       `json:"postcode,omitempty"`
	Status     model.Status `json:"status"`
	Score      *float64     `json:"score,omitempty"`
	Safety     string       `json:"safety,omitempty"`
	Commute    *int         `json:"commute_minutes,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// HandleList returns all areas, scored ones first by descending score.
func (h *AreaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	areas, err := h.store.ListAreas(r.Context())
	if err != nil {
		slog.Error("Failed to list areas", "error", err)
		http.Error(w, "failed to list areas", http.StatusInternalServerError)
		return
	}

	summaries := make([]AreaSummary, 0, len(areas))
	for _, area := range areas {
		s := AreaSummary{
			Identifier: area.Identifier,
			Name:       area.DisplayName(),
			Postcode:   area.Postcode,
			Status:     area.Status,
			Error:      area.ErrorDetail,
		}
		if area.Score != nil {
			total := area.Score.Total
			s.Score = &total
			s.Safety = area.Score.Safety
		}
		if area.Commute != nil {
			minutes := area.Commute.TotalMinutes
			s.Commute = &minutes
		}
		summaries = append(summaries, s)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i].Score, summaries[j].Score
		switch {
		case a != nil && b != nil:
			return *a > *b
		case a != nil:
			return true
		default:
			return false
		}
	})

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summaries)
}

// HandleGet returns one area with all enrichment records.
func (h *AreaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identifier := r.PathValue("id")
	area, err := h.store.GetArea(r.Context(), identifier)
	if err != nil {
		slog.Error("Failed to load area", "area", identifier, "error", err)
		http.Error(w, "failed to load area", http.StatusInternalServerError)
		return
	}
	if area == nil {
		http.Error(w, "area not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(area)
}
