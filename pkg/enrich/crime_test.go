package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescout/pkg/cache"
	"homescout/pkg/config"
	"homescout/pkg/model"
	"homescout/pkg/request"
	"homescout/pkg/tracker"
)

func newCrimeEnricher(policeURL string) *Enricher {
	e, _ := newTrackedCrimeEnricher(policeURL)
	return e
}

func newTrackedCrimeEnricher(policeURL string) (*Enricher, *tracker.Tracker) {
	tr := tracker.New()
	reqClient := request.New(cache.Null{}, tr, time.Second)
	return New(reqClient, testPolicy(), config.EnrichConfig{PoliceURL: policeURL}), tr
}

func TestCrimeAggregation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crimes-street/all-crime", r.URL.Path)
		assert.NotEmpty(t, r.URL.Query().Get("lat"))
		assert.NotEmpty(t, r.URL.Query().Get("lng"))
		_, _ = w.Write([]byte(`[
			{"category": "violent-crime", "month": "2025-05"},
			{"category": "robbery", "month": "2025-05"},
			{"category": "burglary", "month": "2025-05"},
			{"category": "bicycle-theft", "month": "2025-05"},
			{"category": "anti-social-behaviour", "month": "2025-05"},
			{"category": "drugs", "month": "2025-05"},
			{"category": "", "month": "2025-05"}
		]`))
	}))
	defer srv.Close()

	report, err := newCrimeEnricher(srv.URL).Crime(context.Background(), model.Coordinate{Lat: 51.75, Lon: -0.34})
	require.NoError(t, err)

	assert.Equal(t, 7, report.Total)
	assert.Equal(t, 2, report.Serious)
	assert.Equal(t, 2, report.Property)
	assert.Equal(t, 1, report.Antisocial)
	assert.Equal(t, "2025-05", report.Month)
	assert.Equal(t, 1, report.ByCategory["drugs"])
	assert.Equal(t, 1, report.ByCategory["other-crime"])
}

func TestCrimeEmptyArea(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	e, tr := newTrackedCrimeEnricher(srv.URL)
	report, err := e.Crime(context.Background(), model.Coordinate{Lat: 51.75, Lon: -0.34})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)

	// No recorded incidents is a zero result for the provider, not an error.
	host := strings.TrimPrefix(srv.URL, "http://")
	assert.Equal(t, int64(1), tr.Snapshot()[host].APIZeroResult)
}

func TestCrimeSourceDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newCrimeEnricher(srv.URL).Crime(context.Background(), model.Coordinate{Lat: 51.75, Lon: -0.34})
	require.ErrorIs(t, err, ErrEnrichmentUnavailable)
}

func TestCrimeLastUpdated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crime-last-updated", r.URL.Path)
		_, _ = w.Write([]byte(`{"date":"2025-05-01"}`))
	}))
	defer srv.Close()

	month, err := newCrimeEnricher(srv.URL).LastUpdated(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2025-05", month)
}
