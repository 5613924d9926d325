// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/config"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
)

// ErrSpatialUnavailable means the engine has no GEOMETRY support.
var ErrSpatialUnavailable = errors.New("spatial extension unavailable")

// duckdbVersion is the DuckDB release bundled by duckdb-go-bindings; it
// names the local extension directory.
const duckdbVersion = "v1.4.3"

const spatialVerifyQuery = "SELECT ST_AsText(ST_GeomFromText('POINT (1 2)'))"

// installExtensions makes GEOMETRY and the ST_* functions available.
func (db *DB) installExtensions(ctx context.Context) error {
	var err error
	if db.dialect.name == config.DriverPostgres {
		err = db.installPostGIS(ctx)
	} else {
		err = db.installSpatial()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSpatialUnavailable, err)
	}
	db.spatialAvailable = true
	return nil
}

func (db *DB) installPostGIS(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS postgis"); err != nil {
		return fmt.Errorf("create extension postgis: %w", err)
	}
	var version string
	if err := db.conn.QueryRowContext(ctx, "SELECT PostGIS_Version()").Scan(&version); err != nil {
		return fmt.Errorf("postgis version: %w", err)
	}
	logging.Debug().Str("postgis", version).Msg("PostGIS available")
	return nil
}

// installSpatial follows INSTALL, LOAD, FORCE INSTALL, LOAD and verifies
// the result. INSTALL is skipped when the extension file is already on disk.
func (db *DB) installSpatial() error {
	if !isExtensionInstalledLocally("spatial") {
		if err := db.execWithHardTimeout("INSTALL spatial;"); err != nil {
			logging.Debug().Err(err).Msg("INSTALL spatial failed, trying LOAD")
		}
	}
	if err := db.execWithHardTimeout("LOAD spatial;"); err != nil {
		if forceErr := db.execWithHardTimeout("FORCE INSTALL spatial;"); forceErr != nil {
			return fmt.Errorf("load error: %w, force install error: %w", err, forceErr)
		}
		if err := db.execWithHardTimeout("LOAD spatial;"); err != nil {
			return fmt.Errorf("load after force install: %w", err)
		}
	}
	if err := db.execWithHardTimeout(spatialVerifyQuery); err != nil {
		return fmt.Errorf("spatial loaded but functions unavailable: %w", err)
	}
	return nil
}

// isExtensionInstalledLocally checks the DuckDB extension directory.
func isExtensionInstalledLocally(name string) bool {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	platform := runtime.GOOS + "_" + runtime.GOARCH
	extPath := filepath.Join(homeDir, ".duckdb", "extensions", duckdbVersion, platform, name+".duckdb_extension")
	_, err = os.Stat(extPath)
	return err == nil
}

// execWithHardTimeout runs a statement with a goroutine-enforced deadline.
// DuckDB CGO calls ignore context cancellation, so a hung INSTALL would
// otherwise block startup forever.
func (db *DB) execWithHardTimeout(query string) error {
	timeout := db.cfg.ExtensionTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := db.conn.ExecContext(ctx, query)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("%q timed out after %v", query, timeout)
	}
}
