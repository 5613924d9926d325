// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package config

import (
	"fmt"
	"strings"
	"time"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case DriverDuckDB:
		if c.Database.Path == "" {
			return fmt.Errorf("DUCKDB_PATH is required when DB_DRIVER=%s", DriverDuckDB)
		}
		if c.Database.Threads < 0 {
			return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
		}
		if c.Database.ExtensionTimeout <= 0 {
			return fmt.Errorf("DUCKDB_EXTENSION_TIMEOUT must be positive, got %s", c.Database.ExtensionTimeout)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when DB_DRIVER=%s", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("DB_DRIVER must be one of %s, %s, %s; got %q",
			DriverDuckDB, DriverPostgres, DriverMemory, c.Database.Driver)
	}
	if c.Database.TransactionRetries < 0 || c.Database.TransactionRetries > 10 {
		return fmt.Errorf("DB_TRANSACTION_RETRIES must be between 0 and 10, got %d", c.Database.TransactionRetries)
	}
	if c.Database.BreakerFailures == 0 {
		return fmt.Errorf("DB_BREAKER_FAILURES must be at least 1")
	}
	return nil
}

func (c *Config) validateDetection() error {
	d := c.Detection
	if d.AdjacencyDistance <= 0 {
		return fmt.Errorf("ADJACENCY_DISTANCE must be positive, got %g", d.AdjacencyDistance)
	}
	if d.SimplifyTolerance < 0 {
		return fmt.Errorf("SIMPLIFY_TOLERANCE must be >= 0, got %g", d.SimplifyTolerance)
	}
	if d.DefaultTileSize < 1 {
		return fmt.Errorf("DEFAULT_TILE_SIZE must be positive, got %d", d.DefaultTileSize)
	}
	if d.MaxSlicesPerTile < 1 || d.MaxSeeds < 1 {
		return fmt.Errorf("MAX_SLICES_PER_TILE and MAX_SEEDS must be positive")
	}
	if d.OrphanSweepInterval != 0 && d.OrphanSweepInterval < time.Second {
		return fmt.Errorf("ORPHAN_SWEEP_INTERVAL must be 0 (disabled) or at least 1s, got %s", d.OrphanSweepInterval)
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.TransformCacheSize < 1 {
		return fmt.Errorf("TRANSFORM_CACHE_SIZE must be positive, got %d", c.Analysis.TransformCacheSize)
	}
	if c.Analysis.DefaultXYPadding < 0 || c.Analysis.DefaultZPadding < 0 {
		return fmt.Errorf("default paddings must be >= 0")
	}
	if c.Analysis.MaxSampleSize < 1 {
		return fmt.Errorf("MAX_SAMPLE_SIZE must be positive, got %d", c.Analysis.MaxSampleSize)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow < time.Second {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be at least 1s, got %s", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

// HasWildcardCORS reports whether any allowed origin is "*".
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
