package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/exp/slog"

	"walk-router/internal/config"
	"walk-router/internal/database"
	"walk-router/internal/distance"
	"walk-router/internal/handlers"
	"walk-router/internal/logging"
	"walk-router/internal/mapdata"
	"walk-router/internal/routegraph"
	"walk-router/internal/routing"
	"walk-router/internal/server"
	"walk-router/internal/sqlite"
	"walk-router/internal/visitation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Fatal error", "err", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Debug("[CONFIG] no .env file loaded", "err", err)
	}

	cfg, err := config.Load(getEnv("WALK_ROUTER_CONFIG", "config.yaml"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Log.Level)

	store, err := openStore(cfg.Storage)
	if err != nil {
		return err
	}

	ctx := context.Background()
	data, err := mapdata.Load(ctx, cfg.Map.Path, cfg.Map.Format)
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to load map data: %w", err)
	}

	graphs := routegraph.NewService(cfg.BuilderOptions())
	graphs.Init(data.Roads, data.TechnicalRoads, data.Version)

	strategy, err := cfg.Strategy()
	if err != nil {
		store.Close()
		return err
	}
	planner := routing.NewStageRouteOptimizer(graphs, graphs,
		distance.NewRegionCache(store.RegionDistances(), data.Version),
		routing.Options{
			Strategy:        strategy,
			MaxVariants:     cfg.Optimizer.MaxVariants,
			WalkingSpeedMps: cfg.Routing.WalkingSpeedMps,
		})

	srv, err := server.New(server.Config{
		Addr: cfg.Server.Addr,
		Handler: &handlers.Handler{
			DB:      store,
			Graph:   graphs,
			Planner: planner,
			Visits:  visitation.NewTracker(graphs, cfg.VisitationOptions()),
			Regions: data.Regions,
		},
	})
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	actualAddr, err := srv.Start()
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to start server: %w", err)
	}
	slog.Info("[HTTP] walk router listening", "url", "http://"+actualAddr, "algorithm", planner.Algorithm())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	slog.Info("Received signal, starting graceful shutdown", "signal", sig)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("could not gracefully shutdown the server: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}

func openStore(cfg config.StorageConfig) (database.DataStore, error) {
	switch cfg.Driver {
	case config.DriverFile:
		path := cfg.Path
		if path == "" {
			p, err := database.GetDataFilePath()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve data file path: %w", err)
			}
			path = p
		}
		cachePath, err := database.GetRegionCachePath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve region cache path: %w", err)
		}
		regionCache, err := database.NewFileRegionCache(cachePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open region cache: %w", err)
		}
		store, err := database.NewJSONStore(path, regionCache)
		if err != nil {
			return nil, fmt.Errorf("failed to open data file: %w", err)
		}
		slog.Info("[STORE] using JSON file store", "path", path)
		return store, nil
	default:
		path := cfg.Path
		if path == "" {
			p, err := database.GetDefaultDBPath()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve database path: %w", err)
			}
			path = p
		}
		store, err := sqlite.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, nil
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
