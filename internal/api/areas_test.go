package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescout/pkg/config"
	"homescout/pkg/db"
	"homescout/pkg/model"
	"homescout/pkg/store"
	"homescout/pkg/tracker"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.SQLiteStore) {
	t.Helper()
	dbConn, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })
	st := store.NewSQLiteStore(dbConn)

	srv := NewServer("localhost:0",
		NewAreaHandler(st),
		NewStatsHandler(tracker.New(), st),
		NewCriteriaHandler(config.DefaultCriteria()),
	)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, st
}

func seedAreas(t *testing.T, st *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.SaveArea(ctx, &model.Area{
		Identifier: "st_albans",
		Name:       "St Albans",
		Status:     model.StatusComplete,
		Commute:    &model.CommuteResult{TotalMinutes: 35},
		Score:      &model.ScoreResult{Total: 82.5, Safety: "excellent"},
		Position:   0,
	}))
	require.NoError(t, st.SaveArea(ctx, &model.Area{
		Identifier: "ware",
		Name:       "Ware",
		Status:     model.StatusComplete,
		Score:      &model.ScoreResult{Total: 64.0, Safety: "good"},
		Position:   1,
	}))
	require.NoError(t, st.SaveArea(ctx, &model.Area{
		Identifier:  "hitchin",
		Name:        "Hitchin",
		Status:      model.StatusFailed,
		ErrorDetail: "commute: all providers exhausted",
		Position:    2,
	}))
}

func TestListAreas(t *testing.T) {
	ts, st := newTestServer(t)
	seedAreas(t, st)

	resp, err := http.Get(ts.URL + "/api/areas")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summaries []AreaSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summaries))
	require.Len(t, summaries, 3)

	// Scored areas first, best score on top; unscored trail.
	assert.Equal(t, "st_albans", summaries[0].Identifier)
	assert.Equal(t, "ware", summaries[1].Identifier)
	assert.Equal(t, "hitchin", summaries[2].Identifier)
	require.NotNil(t, summaries[0].Score)
	assert.InDelta(t, 82.5, *summaries[0].Score, 1e-9)
	require.NotNil(t, summaries[0].Commute)
	assert.Equal(t, 35, *summaries[0].Commute)
	assert.Nil(t, summaries[2].Score)
	assert.Contains(t, summaries[2].Error, "commute")
}

func TestGetArea(t *testing.T) {
	ts, st := newTestServer(t)
	seedAreas(t, st)

	resp, err := http.Get(ts.URL + "/api/areas/st_albans")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var area model.Area
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&area))
	assert.Equal(t, "St Albans", area.Name)
	require.NotNil(t, area.Score)
	assert.Equal(t, "excellent", area.Score.Safety)
}

func TestGetAreaNotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/areas/atlantis")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStats(t *testing.T) {
	ts, st := newTestServer(t)
	seedAreas(t, st)

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	assert.Equal(t, 2, stats.Areas[model.StatusComplete])
	assert.Equal(t, 1, stats.Areas[model.StatusFailed])
}

func TestStatsServesPersistedProviderTotals(t *testing.T) {
	ts, st := newTestServer(t)
	seedAreas(t, st)

	// A pipeline run in another process folded its counters into the
	// state table; the dashboard's own tracker has seen nothing.
	pipeline := tracker.New()
	pipeline.TrackCacheHit("postcodes")
	pipeline.TrackCacheMiss("postcodes")
	pipeline.TrackAPISuccess("postcodes")
	pipeline.TrackAPIFailure("police")
	require.NoError(t, pipeline.Persist(context.Background(), st))

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats StatsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	require.Contains(t, stats.Providers, "postcodes")
	assert.Equal(t, int64(1), stats.Providers["postcodes"].CacheHits)
	assert.Equal(t, int64(1), stats.Providers["postcodes"].APISuccess)
	assert.Equal(t, int64(50), stats.Providers["postcodes"].HitRate)
	assert.Equal(t, int64(1), stats.Providers["police"].APIFailures)
}

func TestCriteria(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/criteria")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var criteria config.Criteria
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&criteria))
	assert.Equal(t, 60, criteria.Commute.MaxMinutes)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
