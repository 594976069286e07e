// Package explorer drives the area exploration pipeline: pick the next
// candidate area, enrich it stage by stage, score it, and persist every
// intermediate result so an interrupted run resumes where it stopped.
package explorer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"homescout/pkg/config"
	"homescout/pkg/model"
	"homescout/pkg/store"
)

// ErrNoAreasRemaining indicates every known area is already complete.
var ErrNoAreasRemaining = errors.New("no areas remaining to explore")

// Geocoder resolves a place name or postcode to coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, placeOrPostcode string) (model.Coordinate, error)
}

// CommuteFinder computes the commute from an area to the destination.
type CommuteFinder interface {
	Compute(ctx context.Context, coord model.Coordinate) (*model.CommuteResult, error)
}

// Enricher collects amenity, nature and crime data around a coordinate.
type Enricher interface {
	Amenities(ctx context.Context, coord model.Coordinate, radiusM int) (*model.AmenityReport, error)
	Nature(ctx context.Context, coord model.Coordinate, radiusM int) (*model.NatureReport, error)
	Crime(ctx context.Context, coord model.Coordinate) (*model.CrimeReport, error)
}

// AreaScorer computes the composite score for a fully enriched area.
type AreaScorer interface {
	Score(area *model.Area) (*model.ScoreResult, error)
}

// Explorer runs the exploration pipeline over the area store.
type Explorer struct {
	store    store.AreaStore
	geocoder Geocoder
	commute  CommuteFinder
	enricher Enricher
	scorer   AreaScorer
	cfg      config.EnrichConfig
	now      func() time.Time
}

// Options controls a single Explore run.
type Options struct {
	// AreaID forces exploration of a specific area instead of the queue head.
	AreaID string
	// DryRun executes the pipeline without any durable writes.
	DryRun bool
}

// New creates an Explorer.
func New(st store.AreaStore, geocoder Geocoder, commute CommuteFinder, enricher Enricher, scorer AreaScorer, cfg config.EnrichConfig) *Explorer {
	return &Explorer{
		store:    st,
		geocoder: geocoder,
		commute:  commute,
		enricher: enricher,
		scorer:   scorer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// SyncSeedAreas reconciles the configured seed list into the store.
// New areas are inserted pending; existing areas keep their status and
// records, only name, postcode and queue position are refreshed.
// Areas named in the priority list are moved to the front of the queue.
func (e *Explorer) SyncSeedAreas(ctx context.Context, seeds *config.SeedAreas) error {
	ordered := orderSeeds(seeds)
	for position, seed := range ordered {
		identifier := seed.Identifier()
		area, err := e.store.GetArea(ctx, identifier)
		if err != nil {
			return fmt.Errorf("failed to load area %s: %w", identifier, err)
		}
		if area == nil {
			area = &model.Area{
				Identifier: identifier,
				Status:     model.StatusPending,
				CreatedAt:  e.now().UTC(),
			}
		}
		area.Name = seed.Name
		area.Postcode = seed.Postcode
		area.Position = position
		if area.Coordinate.IsZero() && seed.Lat != 0 && seed.Lon != 0 {
			area.Coordinate = model.Coordinate{Lat: seed.Lat, Lon: seed.Lon}
		}
		if err := e.store.SaveArea(ctx, area); err != nil {
			return fmt.Errorf("failed to save area %s: %w", identifier, err)
		}
	}
	slog.Info("Seed areas synced", "count", len(ordered))
	return nil
}

// orderSeeds returns the seed list with priority areas moved to the front,
// preserving file order within each group.
func orderSeeds(seeds *config.SeedAreas) []config.SeedArea {
	priority := make(map[string]bool, len(seeds.Priority))
	for _, name := range seeds.Priority {
		priority[config.NormalizeIdentifier(name)] = true
	}
	ordered := make([]config.SeedArea, 0, len(seeds.Areas))
	for _, seed := range seeds.Areas {
		if priority[seed.Identifier()] {
			ordered = append(ordered, seed)
		}
	}
	for _, seed := range seeds.Areas {
		if !priority[seed.Identifier()] {
			ordered = append(ordered, seed)
		}
	}
	return ordered
}

// Explore runs the pipeline for one area: the queue head, or the area
// named in opts. Expected data-source failures mark the area failed and
// return a failed result with a nil error; the error return is reserved
// for infrastructure problems (store errors, context cancellation) and
// for ErrNoAreasRemaining.
func (e *Explorer) Explore(ctx context.Context, opts Options) (*model.ExplorationResult, error) {
	runID := uuid.NewString()

	area, err := e.selectArea(ctx, opts)
	if err != nil {
		return nil, err
	}

	if area.Status.Terminal() {
		// Re-running a complete area is a no-op returning the stored result.
		slog.Info("Area already complete", "area", area.Identifier, "run_id", runID)
		return resultFor(runID, area), nil
	}

	slog.Info("Exploring area", "area", area.Identifier, "status", area.Status,
		"run_id", runID, "dry_run", opts.DryRun)

	area.LastAttemptAt = e.now().UTC()
	area.ErrorDetail = ""
	if err := e.advance(ctx, area, model.StatusInProgress, opts.DryRun); err != nil {
		return nil, err
	}

	type stage struct {
		name string
		run  func(ctx context.Context) (bool, error)
		done model.Status // status after the stage's record is persisted
	}
	stages := []stage{
		{"geocode", func(ctx context.Context) (bool, error) { return e.stageGeocode(ctx, area) }, model.StatusInProgress},
		{"commute", func(ctx context.Context) (bool, error) { return e.stageCommute(ctx, area) }, model.StatusInProgress},
		{"amenities", func(ctx context.Context) (bool, error) { return e.stageAmenities(ctx, area) }, model.StatusAmenitiesComplete},
		{"nature", func(ctx context.Context) (bool, error) { return e.stageNature(ctx, area) }, model.StatusNatureComplete},
		{"crime", func(ctx context.Context) (bool, error) { return e.stageCrime(ctx, area) }, model.StatusCrimeComplete},
		{"score", func(ctx context.Context) (bool, error) { return e.stageScore(area) }, model.StatusComplete},
	}

	for _, st := range stages {
		ran, err := st.run(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			return e.fail(ctx, runID, area, st.name, err, opts.DryRun)
		}
		if !ran {
			// Skipped stage, nothing new to persist.
			continue
		}
		if err := e.advance(ctx, area, st.done, opts.DryRun); err != nil {
			return nil, err
		}
	}

	slog.Info("Area exploration complete", "area", area.Identifier,
		"score", area.Score.Total, "safety", area.Score.Safety, "run_id", runID)
	return resultFor(runID, area), nil
}

func (e *Explorer) selectArea(ctx context.Context, opts Options) (*model.Area, error) {
	if opts.AreaID != "" {
		identifier := config.NormalizeIdentifier(opts.AreaID)
		area, err := e.store.GetArea(ctx, identifier)
		if err != nil {
			return nil, fmt.Errorf("failed to load area %s: %w", identifier, err)
		}
		if area == nil {
			return nil, fmt.Errorf("unknown area: %s", identifier)
		}
		return area, nil
	}

	area, err := e.store.NextPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to pick next area: %w", err)
	}
	if area == nil {
		return nil, ErrNoAreasRemaining
	}
	return area, nil
}

// Each stage is skipped when its record already exists, so re-running a
// partially explored area only performs the missing work. Stages report
// whether they ran; a skipped stage performs no durable write.

func (e *Explorer) stageGeocode(ctx context.Context, area *model.Area) (bool, error) {
	if !area.Coordinate.IsZero() {
		return false, nil
	}
	query := area.Postcode
	if query == "" {
		query = area.Name
	}
	coord, err := e.geocoder.Resolve(ctx, query)
	if err != nil {
		return false, err
	}
	area.Coordinate = coord
	return true, nil
}

func (e *Explorer) stageCommute(ctx context.Context, area *model.Area) (bool, error) {
	if area.Commute != nil {
		return false, nil
	}
	commute, err := e.commute.Compute(ctx, area.Coordinate)
	if err != nil {
		return false, err
	}
	area.Commute = commute
	return true, nil
}

func (e *Explorer) stageAmenities(ctx context.Context, area *model.Area) (bool, error) {
	if area.Amenities != nil {
		return false, nil
	}
	report, err := e.enricher.Amenities(ctx, area.Coordinate, e.cfg.AmenityRadiusM)
	if err != nil {
		return false, err
	}
	area.Amenities = report
	return true, nil
}

func (e *Explorer) stageNature(ctx context.Context, area *model.Area) (bool, error) {
	if area.Nature != nil {
		return false, nil
	}
	report, err := e.enricher.Nature(ctx, area.Coordinate, e.cfg.NatureRadiusM)
	if err != nil {
		return false, err
	}
	area.Nature = report
	return true, nil
}

func (e *Explorer) stageCrime(ctx context.Context, area *model.Area) (bool, error) {
	if area.Crime != nil {
		return false, nil
	}
	report, err := e.enricher.Crime(ctx, area.Coordinate)
	if err != nil {
		return false, err
	}
	area.Crime = report
	return true, nil
}

func (e *Explorer) stageScore(area *model.Area) (bool, error) {
	score, err := e.scorer.Score(area)
	if err != nil {
		return false, err
	}
	area.Score = score
	area.ExploredAt = e.now().UTC()
	return true, nil
}

// advance persists the area with its status moved to next. Status never
// regresses: when the stored status already outranks next, only the
// records are written.
func (e *Explorer) advance(ctx context.Context, area *model.Area, next model.Status, dryRun bool) error {
	if area.Status.CanTransition(next) && next.Rank() > area.Status.Rank() {
		area.Status = next
	}
	return e.save(ctx, area, dryRun)
}

func (e *Explorer) fail(ctx context.Context, runID string, area *model.Area, stage string, cause error, dryRun bool) (*model.ExplorationResult, error) {
	area.Status = model.StatusFailed
	area.ErrorDetail = fmt.Sprintf("%s: %v", stage, cause)
	slog.Warn("Area exploration failed", "area", area.Identifier,
		"stage", stage, "error", cause, "run_id", runID)
	if err := e.save(ctx, area, dryRun); err != nil {
		return nil, err
	}
	return resultFor(runID, area), nil
}

func (e *Explorer) save(ctx context.Context, area *model.Area, dryRun bool) error {
	if dryRun {
		slog.Debug("Dry run, skipping persist", "area", area.Identifier, "status", area.Status)
		return nil
	}
	if err := e.store.SaveArea(ctx, area); err != nil {
		return fmt.Errorf("failed to persist area %s: %w", area.Identifier, err)
	}
	return nil
}

func resultFor(runID string, area *model.Area) *model.ExplorationResult {
	return &model.ExplorationResult{
		RunID:          runID,
		AreaIdentifier: area.Identifier,
		AreaName:       area.DisplayName(),
		Status:         area.Status,
		Score:          area.Score,
		ErrorDetail:    area.ErrorDetail,
	}
}
