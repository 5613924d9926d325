// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Detection.AdjacencyDistance != 1.1 {
		t.Errorf("AdjacencyDistance = %g, want 1.1", cfg.Detection.AdjacencyDistance)
	}
	if cfg.Detection.DefaultTileSize != 512 {
		t.Errorf("DefaultTileSize = %d, want 512", cfg.Detection.DefaultTileSize)
	}
	if cfg.Database.Driver != DriverDuckDB {
		t.Errorf("Driver = %q, want duckdb", cfg.Database.Driver)
	}
	if got := cfg.Server.Addr(); got != "0.0.0.0:8090" {
		t.Errorf("Addr() = %q", got)
	}
}

func TestValidateRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "HTTP_PORT"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "DB_DRIVER"},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = DriverPostgres }, "POSTGRES_DSN"},
		{"duckdb without path", func(c *Config) { c.Database.Path = "" }, "DUCKDB_PATH"},
		{"too many retries", func(c *Config) { c.Database.TransactionRetries = 11 }, "DB_TRANSACTION_RETRIES"},
		{"zero distance", func(c *Config) { c.Detection.AdjacencyDistance = 0 }, "ADJACENCY_DISTANCE"},
		{"negative tolerance", func(c *Config) { c.Detection.SimplifyTolerance = -1 }, "SIMPLIFY_TOLERANCE"},
		{"tiny sweep", func(c *Config) { c.Detection.OrphanSweepInterval = time.Millisecond }, "ORPHAN_SWEEP_INTERVAL"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "LOG_LEVEL"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
		{"bad rate window", func(c *Config) { c.Security.RateLimitWindow = 0 }, "RATE_LIMIT_WINDOW"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestValidateMemoryDriverNeedsNothing(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Database.Driver = DriverMemory
	cfg.Database.Path = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory driver should validate: %v", err)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
database:
  driver: postgres
  dsn: postgres://file
detection:
  adjacency_distance: 2.5
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("POSTGRES_DSN", "postgres://env")
	t.Setenv("CORS_ORIGINS", "http://a.example, http://b.example")
	t.Setenv("ORPHAN_SWEEP_INTERVAL", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("Driver = %q, want postgres from file", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "postgres://env" {
		t.Errorf("DSN = %q, env should win", cfg.Database.DSN)
	}
	if cfg.Detection.AdjacencyDistance != 2.5 {
		t.Errorf("AdjacencyDistance = %g, want 2.5", cfg.Detection.AdjacencyDistance)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "http://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
	if cfg.HasWildcardCORS() {
		t.Error("explicit origins should not be a wildcard")
	}
	if cfg.Detection.OrphanSweepInterval != 5*time.Minute {
		t.Errorf("OrphanSweepInterval = %s", cfg.Detection.OrphanSweepInterval)
	}
	// Untouched values keep their defaults.
	if cfg.Server.Port != 8090 {
		t.Errorf("Port = %d, want default", cfg.Server.Port)
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DB_DRIVER", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for unknown driver")
	}
}

func TestEnvTransformIgnoresUnknown(t *testing.T) {
	t.Parallel()

	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("PATH mapped to %q", got)
	}
	if got := envTransformFunc("DUCKDB_PATH"); got != "database.path" {
		t.Errorf("DUCKDB_PATH mapped to %q", got)
	}
}
