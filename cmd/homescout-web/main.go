// Command homescout-web serves the read-only dashboard over the area
// store. It shares the database with the pipeline but never writes to it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"homescout/internal/api"
	"homescout/pkg/config"
	"homescout/pkg/db"
	"homescout/pkg/logging"
	"homescout/pkg/store"
	"homescout/pkg/tracker"
	"homescout/pkg/version"
)

var (
	configPath   = flag.String("config", "configs/homescout.yaml", "Path to config file")
	criteriaPath = flag.String("criteria", "configs/criteria.yaml", "Path to scoring criteria file")
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
	appCfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("HomeScout dashboard started", "version", version.Version, "addr", appCfg.Server.Address)

	criteria, err := config.LoadCriteria(*criteriaPath)
	if err != nil {
		return fmt.Errorf("failed to load criteria: %w", err)
	}

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbConn.Close()
	st := store.NewSQLiteStore(dbConn)

	srv := api.NewServer(appCfg.Server.Address,
		api.NewAreaHandler(st),
		api.NewStatsHandler(tracker.New(), st),
		api.NewCriteriaHandler(criteria),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
