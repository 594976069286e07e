// Command areascan discovers candidate areas: it refreshes the rail
// station database from OpenStreetMap, checks the commute from every
// station within range of the destination, and appends the promising
// ones to the seed areas file for the pipeline to explore.
package main

import (
	"context"
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
	"homescout/pkg/logging"
	"homescout/pkg/model"
	"homescout/pkg/request"
	"homescout/pkg/stations"
	"homescout/pkg/store"
	"homescout/pkg/tracker"
)

var (
	configPath = flag.String("config", "configs/homescout.yaml", "Path to config file")
	areasPath  = flag.String("areas", "configs/areas.yaml", "Path to seed areas file")
	radiusKm   = flag.Float64("radius-km", 60, "Search radius around the destination")
	maxMinutes = flag.Int("max-commute", 60, "Maximum acceptable door-to-door commute in minutes")
	limit      = flag.Int("limit", 20, "Maximum number of new areas to add")
	refresh    = flag.Bool("refresh", false, "Force a station database refresh")
)

func main() {
	flag.Parse()
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

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	tr := tracker.New()
	reqClient := request.New(cache.NewSQLiteCache(dbConn), tr, time.Duration(appCfg.Request.Timeout))
	policy := request.Policy{
		MaxAttempts: appCfg.Request.Retries,
		BaseDelay:   time.Duration(appCfg.Request.Backoff.BaseDelay),
		Multiplier:  appCfg.Request.Backoff.Multiplier,
		MaxDelay:    time.Duration(appCfg.Request.Backoff.MaxDelay),
	}

	stationDB := stations.NewDatabase(st, reqClient, policy, appCfg.Enrich.OverpassEndpoints)
	known, err := st.ListStations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list stations: %w", err)
	}
	if *refresh || len(known) == 0 {
		count, err := stationDB.Refresh(ctx)
		if err != nil {
			return fmt.Errorf("station refresh failed: %w", err)
		}
		slog.Info("Station database refreshed", "stations", count)
	}

	destination := model.Coordinate{Lat: appCfg.Destination.Lat, Lon: appCfg.Destination.Lon}
	candidates, err := stationDB.Near(ctx, destination, *radiusKm)
	if err != nil {
		return fmt.Errorf("failed to find stations near destination: %w", err)
	}
	slog.Info("Scanning candidate stations", "count", len(candidates), "radius_km", *radiusKm)

	seeds, err := config.LoadAreas(*areasPath)
	if err != nil {
		return fmt.Errorf("failed to load seed areas: %w", err)
	}
	existing := make(map[string]bool, len(seeds.Areas))
	for _, seed := range seeds.Areas {
		existing[seed.Identifier()] = true
	}

	finder := commute.NewFinder(reqClient, policy, appCfg.Commute, appCfg.Destination, nil)
	added := 0
	for _, station := range candidates {
		if added >= *limit {
			break
		}
		name := station.Town
		if name == "" {
			name = station.Name
		}
		identifier := config.NormalizeIdentifier(name)
		if existing[identifier] {
			continue
		}

		result, err := finder.Compute(ctx, model.Coordinate{Lat: station.Lat, Lon: station.Lon})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("Commute check failed, skipping station", "station", station.Name, "error", err)
			continue
		}
		if result.TotalMinutes > *maxMinutes {
			slog.Debug("Station too far by transit", "station", station.Name, "total_min", result.TotalMinutes)
			continue
		}

		seeds.Areas = append(seeds.Areas, config.SeedArea{
			Name: name,
			Lat:  station.Lat,
			Lon:  station.Lon,
		})
		existing[identifier] = true
		added++
		slog.Info("Area discovered", "area", name, "station", station.Name,
			"transit_min", result.TransitMinutes, "total_min", result.TotalMinutes)
	}

	if added == 0 {
		slog.Info("No new areas discovered")
		return nil
	}
	if err := config.SaveAreas(*areasPath, seeds); err != nil {
		return fmt.Errorf("failed to save seed areas: %w", err)
	}
	slog.Info("Seed areas updated", "added", added, "total", len(seeds.Areas))
	return nil
}
