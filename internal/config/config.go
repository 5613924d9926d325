// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Package config loads service configuration from defaults, an optional YAML
// file, and environment variables (in increasing priority). See Load.
package config

import (
	"fmt"
	"time"
)

// Supported values for DatabaseConfig.Driver.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Detection DetectionConfig `koanf:"detection"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig selects and tunes the spatial store.
type DatabaseConfig struct {
	Driver string `koanf:"driver"` // duckdb, postgres or memory

	// DuckDB
	Path                   string `koanf:"path"`
	MaxMemory              string `koanf:"max_memory"`
	Threads                int    `koanf:"threads"` // 0 = runtime.NumCPU()
	PreserveInsertionOrder bool   `koanf:"preserve_insertion_order"`
	// ExtensionTimeout bounds INSTALL/LOAD of the spatial extension, which
	// cannot be interrupted once inside the driver.
	ExtensionTimeout time.Duration `koanf:"extension_timeout"`

	// PostgreSQL/PostGIS
	DSN          string `koanf:"dsn"`
	MaxOpenConns int    `koanf:"max_open_conns"` // 0 = runtime.NumCPU()

	// TransactionRetries is how many times a conflicted write transaction is
	// re-run before the conflict is returned to the caller.
	TransactionRetries int `koanf:"transaction_retries"`

	// BreakerFailures consecutive connection failures open the circuit
	// breaker for BreakerTimeout.
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// DetectionConfig holds the slice ingestion and agglomeration parameters.
type DetectionConfig struct {
	// AdjacencyDistance is the maximum hull-to-hull distance (stack pixels)
	// at which two slices in neighbouring tiles belong to the same object.
	AdjacencyDistance float64 `koanf:"adjacency_distance"`

	// SimplifyTolerance is used when an insert request does not carry its own.
	SimplifyTolerance float64 `koanf:"simplify_tolerance"`

	DefaultTileSize  int `koanf:"default_tile_size"`
	MaxSlicesPerTile int `koanf:"max_slices_per_tile"`
	MaxSeeds         int `koanf:"max_seeds"`

	// OrphanSweepInterval runs a seedless agglomeration periodically.
	// Zero disables the sweeper.
	OrphanSweepInterval time.Duration `koanf:"orphan_sweep_interval"`
}

// AnalysisConfig tunes the read-side query layer.
type AnalysisConfig struct {
	TransformCacheSize int           `koanf:"transform_cache_size"`
	TransformCacheTTL  time.Duration `koanf:"transform_cache_ttl"`
	DefaultXYPadding   float64       `koanf:"default_xy_padding"`
	DefaultZPadding    int           `koanf:"default_z_padding"`
	MaxSampleSize      int           `koanf:"max_sample_size"`
}

// SecurityConfig holds CORS and rate limiting settings
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	MaxBodyBytes      int64         `koanf:"max_body_bytes"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	Caller bool `koanf:"caller"`
}
