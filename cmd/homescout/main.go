// Command homescout runs one exploration pass: pick the next area (or the
// one named with -area), enrich and score it, persist every intermediate
// result and send the summary to Telegram.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"homescout/pkg/cache"
	"homescout/pkg/commute"
	"homescout/pkg/config"
	"homescout/pkg/db"
	"homescout/pkg/enrich"
	"homescout/pkg/explorer"
	"homescout/pkg/geocode"
	"homescout/pkg/logging"
	"homescout/pkg/notify"
	"homescout/pkg/probe"
	"homescout/pkg/request"
	"homescout/pkg/scorer"
	"homescout/pkg/stations"
	"homescout/pkg/store"
	"homescout/pkg/tracker"
	"homescout/pkg/version"
)

var (
	configPath   = flag.String("config", "configs/homescout.yaml", "Path to config file")
	criteriaPath = flag.String("criteria", "configs/criteria.yaml", "Path to scoring criteria file")
	areasPath    = flag.String("areas", "configs/areas.yaml", "Path to seed areas file")
	areaID       = flag.String("area", "", "Explore a specific area instead of the queue head")
	dryRun       = flag.Bool("dry-run", false, "Run the pipeline without persisting anything")
	noNotify     = flag.Bool("no-notify", false, "Skip Telegram notifications")
	progress     = flag.Bool("progress", false, "Also send a progress digest after the run")
)

func main() {
	flag.Parse()

	// Secrets may live in a .env file next to the binary; absence is fine.
	_ = godotenv.Load()

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	appCfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("HomeScout started", "version", version.Version, "dry_run", *dryRun)

	criteria, err := config.LoadCriteria(*criteriaPath)
	if err != nil {
		return fmt.Errorf("failed to load criteria: %w", err)
	}
	seeds, err := config.LoadAreas(*areasPath)
	if err != nil {
		return fmt.Errorf("failed to load seed areas: %w", err)
	}

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	if err := dbConn.PruneCache(30 * 24 * time.Hour); err != nil {
		slog.Warn("Cache prune failed", "error", err)
	}

	deps := buildPipeline(appCfg, criteria, dbConn, st, *dryRun)

	probes := []probe.Probe{
		{Name: "Geocoder", Check: deps.geocoder.Ping, Critical: true},
		{Name: "Incident statistics", Check: func(ctx context.Context) error {
			_, err := deps.enricher.LastUpdated(ctx)
			return err
		}},
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	exp := explorer.New(st, deps.geocoder, deps.commute, deps.enricher, deps.scorer, appCfg.Enrich)
	if err := exp.SyncSeedAreas(ctx, seeds); err != nil {
		return fmt.Errorf("failed to sync seed areas: %w", err)
	}

	result, err := exp.Explore(ctx, explorer.Options{AreaID: *areaID, DryRun: *dryRun})
	if errors.Is(err, explorer.ErrNoAreasRemaining) {
		slog.Info("All areas explored, nothing to do")
		return nil
	}
	if err != nil {
		return err
	}

	if !*dryRun {
		// Fold this run's provider counters into the durable totals the
		// dashboard serves.
		if err := deps.tracker.Persist(ctx, st); err != nil {
			slog.Warn("Failed to persist provider stats", "error", err)
		}
	}

	var notifier notify.Notifier = notify.Null{}
	if !*noNotify && !*dryRun {
		notifier = notify.NewTelegram(deps.request, appCfg.Notify)
	}
	notifier.ExplorationResult(ctx, result)
	if *progress {
		counts, err := st.CountByStatus(ctx)
		if err != nil {
			slog.Warn("Failed to count areas for progress digest", "error", err)
		} else {
			notifier.Progress(ctx, counts)
		}
	}

	if result.Failed() {
		// An expected data-source failure: recorded, notified, retryable.
		slog.Warn("Run finished with area failed", "area", result.AreaIdentifier,
			"detail", result.ErrorDetail)
		return nil
	}

	slog.Info("Run finished", "area", result.AreaIdentifier, "status", result.Status)
	return nil
}

type pipeline struct {
	request  *request.Client
	tracker  *tracker.Tracker
	geocoder *geocode.Client
	commute  *commute.Finder
	enricher *enrich.Enricher
	scorer   *scorer.Scorer
}

func buildPipeline(cfg *config.Config, criteria *config.Criteria, dbConn *db.DB, st store.Store, dry bool) *pipeline {
	tr := tracker.New()

	var cacher cache.Cacher = cache.NewSQLiteCache(dbConn)
	if dry {
		// Dry runs must not leave cache rows behind either.
		cacher = cache.Null{}
	}
	reqClient := request.New(cacher, tr, time.Duration(cfg.Request.Timeout))

	policy := request.Policy{
		MaxAttempts: cfg.Request.Retries,
		BaseDelay:   time.Duration(cfg.Request.Backoff.BaseDelay),
		Multiplier:  cfg.Request.Backoff.Multiplier,
		MaxDelay:    time.Duration(cfg.Request.Backoff.MaxDelay),
	}

	stationDB := stations.NewDatabase(st, reqClient, policy, cfg.Enrich.OverpassEndpoints)

	return &pipeline{
		request:  reqClient,
		tracker:  tr,
		geocoder: geocode.NewClient(reqClient, policy, ""),
		commute:  commute.NewFinder(reqClient, policy, cfg.Commute, cfg.Destination, stationDB),
		enricher: enrich.New(reqClient, policy, cfg.Enrich),
		scorer:   scorer.New(criteria),
	}
}
