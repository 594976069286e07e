// Package api serves the read-only dashboard: area records, scores,
// provider statistics and the active criteria. It never writes to the
// store; the pipeline is the only writer.
package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"homescout/pkg/version"
)

// NewServer creates and configures the HTTP server.
func NewServer(addr string, areas *AreaHandler, stats *StatsHandler, criteria *CriteriaHandler) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)

	mux.HandleFunc("GET /api/areas", areas.HandleList)
	mux.HandleFunc("GET /api/areas/{id}", areas.HandleGet)

	mux.Handle("GET /api/stats", stats)
	mux.HandleFunc("GET /api/criteria", criteria.Handle)

	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := fmt.Fprintf(w, `{"version": "%s"}`, version.Version); err != nil {
		slog.Error("Failed to write version response", "error", err)
	}
}
