// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/api"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/config"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/database"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/memstore"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/supervisor"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/supervisor/services"
)

// store is what the server needs from a backend.
type store interface {
	api.Store
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("driver", cfg.Database.Driver).
		Str("addr", cfg.Server.Addr()).
		Float64("adjacency_distance", cfg.Detection.AdjacencyDistance).
		Msg("Starting synapsesuggestor")
	if cfg.HasWildcardCORS() {
		logging.Warn().Msg("CORS allows every origin; set security.cors_origins in production")
	}

	st, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
	}()

	if err := run(cfg, st); err != nil {
		logging.Error().Err(err).Msg("Server stopped with error")
		// Deferred Close does not run after os.Exit.
		_ = st.Close()
		os.Exit(1)
	}
	logging.Info().Msg("Application stopped gracefully")
}

func openStore(cfg *config.Config) (store, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logging.Warn().Msg("Using the in-memory store; nothing survives a restart")
		return memstore.New(), nil
	case config.DriverDuckDB, config.DriverPostgres:
		return database.New(&cfg.Database)
	default:
		return nil, fmt.Errorf("%w: %q", database.ErrUnsupportedDriver, cfg.Database.Driver)
	}
}

// buildTree wires the HTTP server and the optional orphan sweeper.
func buildTree(cfg *config.Config, st api.Store) (*supervisor.SupervisorTree, error) {
	handler := api.NewHandler(st, cfg)
	router := api.NewRouter(handler, &cfg.Security)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if cfg.Detection.OrphanSweepInterval > 0 {
		tree.AddMaintenanceService(services.NewOrphanSweepService(handler.Engine(), cfg.Detection.OrphanSweepInterval))
		logging.Info().Dur("interval", cfg.Detection.OrphanSweepInterval).Msg("Orphan sweeper enabled")
	}
	return tree, nil
}

func run(cfg *config.Config, st api.Store) error {
	tree, err := buildTree(cfg, st)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Starting supervisor tree")
	err = tree.Serve(ctx)

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
