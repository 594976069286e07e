package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"homescout/pkg/model"
	"homescout/pkg/store"
	"homescout/pkg/tracker"
)

// StatsStore is the store access the stats endpoint needs: area counts
// plus the persisted provider totals written by the pipeline.
type StatsStore interface {
	store.AreaStore
	store.StateStore
}

// StatsHandler serves pipeline progress and provider telemetry. Provider
// totals are read back from the state table, with this process's live
// counters folded on top.
type StatsHandler struct {
	tracker *tracker.Tracker
	store   StatsStore
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(t *tracker.Tracker, st StatsStore) *StatsHandler {
	return &StatsHandler{tracker: t, store: st}
}

type ProviderStatsDTO struct {
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	APISuccess    int64 `json:"api_success"`
	APIZeroResult int64 `json:"api_zero"`
	APIFailures   int64 `json:"api_errors"`
	HitRate       int64 `json:"hit_rate"`
}

type StatsResponse struct {
	Areas     map[model.Status]int        `json:"areas"`
	Providers map[string]ProviderStatsDTO `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	counts, err := h.store.CountByStatus(r.Context())
	if err != nil {
		slog.Error("Failed to count areas", "error", err)
		http.Error(w, "failed to count areas", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		Areas:     counts,
		Providers: make(map[string]ProviderStatsDTO),
	}
	totals, _ := tracker.Load(r.Context(), h.store)
	totals = tracker.Merge(totals, h.tracker.Snapshot())
	for provider, stats := range totals {
		totalCache := stats.CacheHits + stats.CacheMisses
		hitRate := int64(0)
		if totalCache > 0 {
			hitRate = (stats.CacheHits * 100) / totalCache
		}
		resp.Providers[provider] = ProviderStatsDTO{
			CacheHits:     stats.CacheHits,
			CacheMisses:   stats.CacheMisses,
			APISuccess:    stats.APISuccess,
			APIZeroResult: stats.APIZeroResult,
			APIFailures:   stats.APIFailures,
			HitRate:       hitRate,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
