// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/synapsesuggestor/config.yaml",
	"/etc/synapsesuggestor/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8090,
			Host:            "0.0.0.0",
			Timeout:         60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:                 DriverDuckDB,
			Path:                   "/data/synapsesuggestor.duckdb",
			MaxMemory:              "2GB",
			Threads:                0,
			PreserveInsertionOrder: true,
			ExtensionTimeout:       30 * time.Second,
			TransactionRetries:     3,
			BreakerFailures:        5,
			BreakerTimeout:         30 * time.Second,
		},
		Detection: DetectionConfig{
			AdjacencyDistance: 1.1,
			SimplifyTolerance: 0,
			DefaultTileSize:   512,
			MaxSlicesPerTile:  10000,
			MaxSeeds:          100000,
		},
		Analysis: AnalysisConfig{
			TransformCacheSize: 256,
			TransformCacheTTL:  10 * time.Minute,
			DefaultXYPadding:   0,
			DefaultZPadding:    0,
			MaxSampleSize:      10000,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   600,
			RateLimitWindow: time.Minute,
			MaxBodyBytes:    64 << 20,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from three layers:
//  1. built-in defaults
//  2. an optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. environment variables (see envMappings)
//
// The result is validated before it is returned.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths arrive from the environment as comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unlisted variables are ignored.
var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	// Database
	"db_driver":                "database.driver",
	"duckdb_path":              "database.path",
	"duckdb_max_memory":        "database.max_memory",
	"duckdb_threads":           "database.threads",
	"duckdb_preserve_order":    "database.preserve_insertion_order",
	"duckdb_extension_timeout": "database.extension_timeout",
	"postgres_dsn":             "database.dsn",
	"postgres_max_open_conns":  "database.max_open_conns",
	"db_transaction_retries":   "database.transaction_retries",
	"db_breaker_failures":      "database.breaker_failures",
	"db_breaker_timeout":       "database.breaker_timeout",

	// Detection
	"adjacency_distance":    "detection.adjacency_distance",
	"simplify_tolerance":    "detection.simplify_tolerance",
	"default_tile_size":     "detection.default_tile_size",
	"max_slices_per_tile":   "detection.max_slices_per_tile",
	"max_seeds":             "detection.max_seeds",
	"orphan_sweep_interval": "detection.orphan_sweep_interval",

	// Analysis
	"transform_cache_size": "analysis.transform_cache_size",
	"transform_cache_ttl":  "analysis.transform_cache_ttl",
	"default_xy_padding":   "analysis.default_xy_padding",
	"default_z_padding":    "analysis.default_z_padding",
	"max_sample_size":      "analysis.max_sample_size",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"max_body_bytes":      "security.max_body_bytes",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
