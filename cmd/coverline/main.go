package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	corecfg "github.com/coverline-io/coverline/internal/core/config"
	"github.com/coverline-io/coverline/internal/core/storage"
	"github.com/coverline-io/coverline/internal/core/storage/memory"
	"github.com/coverline-io/coverline/internal/core/storage/postgres"
	"github.com/coverline-io/coverline/internal/ingestion"
	"github.com/coverline-io/coverline/internal/maintenance"
	"github.com/coverline-io/coverline/internal/migrations"
	"github.com/coverline-io/coverline/internal/planner"
	"github.com/coverline-io/coverline/internal/projection"
	"github.com/coverline-io/coverline/internal/resolution"
	"github.com/coverline-io/coverline/internal/server"
)

func main() {
	configPath := flag.String("config", "coverline.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"database_type", cfg.Database.Type,
		"taxonomy_dimensions", len(cfg.Contexts.Definitions()),
	)

	// 2. Initialize Storage
	var store storage.SliceStore
	var healthDB *sql.DB
	if cfg.Database.Type == "memory" {
		store = memory.NewStore()
		slog.Info("Using in-memory slice store")
	} else {
		dbAdapter, err := postgres.NewAdapter(
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
		)
		if err != nil {
			slog.Error("Failed to initialize database", "error", err)
			os.Exit(1)
		}
		defer dbAdapter.Close()

		// 2.1. Run Database Migrations
		if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
			slog.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}

		store = dbAdapter
		healthDB = dbAdapter.DB()
	}

	// 3. Initialize Resolution
	resolver := resolution.NewService(
		store,
		cfg.Contexts,
		cfg.Resolution.SignatureCacheSize,
		cfg.Resolution.MaxCombinations,
	)

	// 4. Initialize API Services
	ingestionSvc := ingestion.NewService(store, cfg.Server.MaxBodySizeMB)
	plannerSvc := planner.NewService(resolver)
	projectionSvc := projection.NewService(resolver)

	// 5. Initialize Maintenance Sweeper
	var sweeper *maintenance.Sweeper
	if cfg.Maintenance.Enabled {
		sweeper = maintenance.NewSweeper(
			cfg.Maintenance.Interval(),
			store,
			cfg.Maintenance.BatchSize,
		)
		slog.Info("Maintenance sweeper initialized",
			"interval", cfg.Maintenance.Interval(),
			"batch_size", cfg.Maintenance.BatchSize,
		)
	}

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), healthDB, cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	plannerSvc.RegisterRoutes(srv.Engine)
	projectionSvc.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sweeper != nil {
		go func() {
			if err := sweeper.Start(ctx); err != nil {
				slog.Error("Sweeper stopped with error", "error", err)
			}
		}()
	} else {
		slog.Info("Maintenance sweeper disabled by config")
	}

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
