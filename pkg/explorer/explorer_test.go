package explorer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homescout/pkg/commute"
	"homescout/pkg/config"
	"homescout/pkg/db"
	"homescout/pkg/enrich"
	"homescout/pkg/model"
	"homescout/pkg/scorer"
	"homescout/pkg/store"
)

type fakeGeocoder struct {
	calls int
	coord model.Coordinate
	err   error
}

func (f *fakeGeocoder) Resolve(ctx context.Context, placeOrPostcode string) (model.Coordinate, error) {
	f.calls++
	if f.err != nil {
		return model.Coordinate{}, f.err
	}
	return f.coord, nil
}

type fakeCommute struct {
	calls int
	err   error
}

func (f *fakeCommute) Compute(ctx context.Context, coord model.Coordinate) (*model.CommuteResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &model.CommuteResult{TransitMinutes: 25, WalkMinutes: 10, TotalMinutes: 35, Station: "Test Parkway"}, nil
}

type fakeEnricher struct {
	amenityCalls, natureCalls, crimeCalls int
	amenityErr, natureErr, crimeErr       error
}

func (f *fakeEnricher) Amenities(ctx context.Context, coord model.Coordinate, radiusM int) (*model.AmenityReport, error) {
	f.amenityCalls++
	if f.amenityErr != nil {
		return nil, f.amenityErr
	}
	return &model.AmenityReport{Supermarkets: []model.Place{{Name: "Morrisons"}, {Name: "Aldi"}}}, nil
}

func (f *fakeEnricher) Nature(ctx context.Context, coord model.Coordinate, radiusM int) (*model.NatureReport, error) {
	f.natureCalls++
	if f.natureErr != nil {
		return nil, f.natureErr
	}
	return &model.NatureReport{Parks: []model.Place{{Name: "Town Park"}}, CountrysideAccess: true}, nil
}

func (f *fakeEnricher) Crime(ctx context.Context, coord model.Coordinate) (*model.CrimeReport, error) {
	f.crimeCalls++
	if f.crimeErr != nil {
		return nil, f.crimeErr
	}
	return &model.CrimeReport{Serious: 40, Property: 30, Antisocial: 10, Total: 95, Month: "2025-05"}, nil
}

type fixture struct {
	store    *store.SQLiteStore
	geocoder *fakeGeocoder
	commute  *fakeCommute
	enricher *fakeEnricher
	explorer *Explorer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dbConn, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbConn.Close() })

	f := &fixture{
		store:    store.NewSQLiteStore(dbConn),
		geocoder: &fakeGeocoder{coord: model.Coordinate{Lat: 51.7527, Lon: -0.3394}},
		commute:  &fakeCommute{},
		enricher: &fakeEnricher{},
	}
	f.explorer = New(f.store, f.geocoder, f.commute, f.enricher,
		scorer.New(config.DefaultCriteria()), config.EnrichConfig{AmenityRadiusM: 1500, NatureRadiusM: 2000})
	return f
}

func (f *fixture) seed(t *testing.T, area *model.Area) {
	t.Helper()
	require.NoError(t, f.store.SaveArea(context.Background(), area))
}

func TestExploreFullRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, &model.Area{Identifier: "st_albans", Name: "St Albans", Postcode: "AL1 3JQ", Status: model.StatusPending})

	result, err := f.explorer.Explore(ctx, Options{})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "st_albans", result.AreaIdentifier)
	assert.Equal(t, model.StatusComplete, result.Status)
	assert.NotEmpty(t, result.RunID)
	require.NotNil(t, result.Score)
	assert.Equal(t, "excellent", result.Score.Safety)

	stored, err := f.store.GetArea(ctx, "st_albans")
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, stored.Status)
	assert.NotNil(t, stored.Commute)
	assert.NotNil(t, stored.Amenities)
	assert.NotNil(t, stored.Nature)
	assert.NotNil(t, stored.Crime)
	assert.NotNil(t, stored.Score)
	assert.False(t, stored.ExploredAt.IsZero())
	assert.False(t, stored.Coordinate.IsZero())
	assert.Equal(t, 1, f.geocoder.calls)
}

func TestExploreFailurePreservesPartialResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.enricher.amenityErr = enrich.ErrEnrichmentUnavailable
	f.seed(t, &model.Area{Identifier: "hitchin", Name: "Hitchin", Postcode: "SG4 9XX", Status: model.StatusPending})

	result, err := f.explorer.Explore(ctx, Options{})
	require.NoError(t, err, "expected data-source failure must not surface as an error")
	assert.True(t, result.Failed())
	assert.Contains(t, result.ErrorDetail, "amenities")

	stored, err := f.store.GetArea(ctx, "hitchin")
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, stored.Status)
	// Work done before the failure is kept.
	assert.NotNil(t, stored.Commute)
	assert.False(t, stored.Coordinate.IsZero())
	assert.Nil(t, stored.Amenities)
}

func TestExploreResumesFromPartialState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, &model.Area{
		Identifier: "ware",
		Name:       "Ware",
		Coordinate: model.Coordinate{Lat: 51.81, Lon: -0.03},
		Status:     model.StatusAmenitiesComplete,
		Commute:    &model.CommuteResult{TransitMinutes: 40, WalkMinutes: 10, TotalMinutes: 50},
		Amenities:  &model.AmenityReport{Supermarkets: []model.Place{{Name: "Tesco"}}},
	})

	result, err := f.explorer.Explore(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, result.Status)

	// Only the missing stages ran.
	assert.Equal(t, 0, f.geocoder.calls)
	assert.Equal(t, 0, f.commute.calls)
	assert.Equal(t, 0, f.enricher.amenityCalls)
	assert.Equal(t, 1, f.enricher.natureCalls)
	assert.Equal(t, 1, f.enricher.crimeCalls)

	stored, err := f.store.GetArea(ctx, "ware")
	require.NoError(t, err)
	// Records present before the resume are untouched.
	assert.Equal(t, 50, stored.Commute.TotalMinutes)
	assert.Equal(t, "Tesco", stored.Amenities.Supermarkets[0].Name)
}

type countingStore struct {
	store.AreaStore
	saves int
}

func (c *countingStore) SaveArea(ctx context.Context, area *model.Area) error {
	c.saves++
	return c.AreaStore.SaveArea(ctx, area)
}

func TestExploreSkippedStagesWriteNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, &model.Area{
		Identifier: "hertford",
		Name:       "Hertford",
		Coordinate: model.Coordinate{Lat: 51.79, Lon: -0.08},
		Status:     model.StatusCrimeComplete,
		Commute:    &model.CommuteResult{TransitMinutes: 42, WalkMinutes: 8, TotalMinutes: 50},
		Amenities:  &model.AmenityReport{Supermarkets: []model.Place{{Name: "Sainsbury's"}}},
		Nature:     &model.NatureReport{Parks: []model.Place{{Name: "Hartham Common"}}},
		Crime:      &model.CrimeReport{Serious: 40, Property: 30, Antisocial: 10, Total: 95, Month: "2025-05"},
	})

	counting := &countingStore{AreaStore: f.store}
	exp := New(counting, f.geocoder, f.commute, f.enricher,
		scorer.New(config.DefaultCriteria()), config.EnrichConfig{AmenityRadiusM: 1500, NatureRadiusM: 2000})

	result, err := exp.Explore(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, result.Status)

	// One write marking the attempt, one for the scoring stage; the five
	// skipped stages persist nothing.
	assert.Equal(t, 2, counting.saves)
}

func TestExploreRetriesFailedArea(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, &model.Area{
		Identifier:  "royston",
		Name:        "Royston",
		Coordinate:  model.Coordinate{Lat: 52.05, Lon: -0.02},
		Status:      model.StatusFailed,
		ErrorDetail: "commute: all providers exhausted",
		Commute:     &model.CommuteResult{TransitMinutes: 45, WalkMinutes: 10, TotalMinutes: 55},
	})

	result, err := f.explorer.Explore(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, result.Status)
	assert.Empty(t, result.ErrorDetail)

	// The surviving commute record is reused rather than recomputed.
	assert.Equal(t, 0, f.commute.calls)

	stored, err := f.store.GetArea(ctx, "royston")
	require.NoError(t, err)
	assert.Empty(t, stored.ErrorDetail)
	assert.Equal(t, model.StatusComplete, stored.Status)
}

func TestExploreCompleteAreaIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, &model.Area{
		Identifier: "done",
		Status:     model.StatusComplete,
		Score:      &model.ScoreResult{Total: 72.5, Safety: "good"},
	})

	result, err := f.explorer.Explore(ctx, Options{AreaID: "done"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, result.Status)
	assert.Equal(t, 72.5, result.Score.Total)

	assert.Equal(t, 0, f.geocoder.calls)
	assert.Equal(t, 0, f.commute.calls)
	assert.Equal(t, 0, f.enricher.amenityCalls)
}

func TestExploreQueueExhausted(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &model.Area{Identifier: "done", Status: model.StatusComplete})

	_, err := f.explorer.Explore(context.Background(), Options{})
	require.ErrorIs(t, err, ErrNoAreasRemaining)
}

func TestExploreUnknownArea(t *testing.T) {
	f := newFixture(t)
	_, err := f.explorer.Explore(context.Background(), Options{AreaID: "atlantis"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoAreasRemaining)
}

func TestExploreDryRunWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, &model.Area{Identifier: "baldock", Name: "Baldock", Postcode: "SG7 6AA", Status: model.StatusPending})

	result, err := f.explorer.Explore(ctx, Options{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, result.Status)
	require.NotNil(t, result.Score)

	stored, err := f.store.GetArea(ctx, "baldock")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.Nil(t, stored.Commute)
	assert.Nil(t, stored.Score)
	assert.True(t, stored.LastAttemptAt.IsZero())
}

func TestExploreQueueOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, &model.Area{Identifier: "first", Postcode: "AL1 1AA", Status: model.StatusPending, Position: 0})
	f.seed(t, &model.Area{Identifier: "second", Postcode: "AL2 2BB", Status: model.StatusPending, Position: 1})

	result, err := f.explorer.Explore(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, "first", result.AreaIdentifier)

	result, err = f.explorer.Explore(ctx, Options{})
	require.NoError(t, err)
	assert.Equal(t, "second", result.AreaIdentifier)
}

func TestExploreCommuteUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.commute.err = commute.ErrCommuteUnavailable
	f.seed(t, &model.Area{Identifier: "oban", Postcode: "PA34 4AA", Status: model.StatusPending})

	result, err := f.explorer.Explore(ctx, Options{})
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Contains(t, result.ErrorDetail, "commute")

	// No later stage ran once the commute stage failed.
	assert.Equal(t, 0, f.enricher.amenityCalls)
	assert.Equal(t, 0, f.enricher.crimeCalls)
}

func TestSyncSeedAreas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeds := &config.SeedAreas{
		Areas: []config.SeedArea{
			{Name: "St Albans", Postcode: "AL1 3JQ"},
			{Name: "Hitchin"},
			{Name: "Ware", Lat: 51.81, Lon: -0.03},
		},
		Priority: []string{"Ware"},
	}
	require.NoError(t, f.explorer.SyncSeedAreas(ctx, seeds))

	areas, err := f.store.ListAreas(ctx)
	require.NoError(t, err)
	require.Len(t, areas, 3)
	// Priority areas move to the front of the queue.
	assert.Equal(t, "ware", areas[0].Identifier)
	assert.Equal(t, "st_albans", areas[1].Identifier)
	assert.Equal(t, "hitchin", areas[2].Identifier)
	assert.Equal(t, model.StatusPending, areas[0].Status)
	assert.False(t, areas[0].Coordinate.IsZero())
}

func TestSyncSeedAreasNeverRegressesStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, &model.Area{
		Identifier: "st_albans",
		Name:       "St Albans",
		Status:     model.StatusComplete,
		Score:      &model.ScoreResult{Total: 80},
	})

	seeds := &config.SeedAreas{Areas: []config.SeedArea{{Name: "St Albans", Postcode: "AL1 3JQ"}}}
	require.NoError(t, f.explorer.SyncSeedAreas(ctx, seeds))

	stored, err := f.store.GetArea(ctx, "st_albans")
	require.NoError(t, err)
	assert.Equal(t, model.StatusComplete, stored.Status)
	assert.NotNil(t, stored.Score)
	assert.Equal(t, "AL1 3JQ", stored.Postcode)
}
