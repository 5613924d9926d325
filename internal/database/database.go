// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/config"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
)

// DB is the relational spatial store.
type DB struct {
	conn             *sql.DB
	cfg              *config.DatabaseConfig
	dialect          dialect
	spatialAvailable bool
	breaker          *gobreaker.CircuitBreaker[struct{}]

	// now stamps algorithm and project workflow rows.
	now func() time.Time
}

// New opens the configured engine, installs the spatial extension and
// brings the schema up to date.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	var (
		d    dialect
		conn *sql.DB
		err  error
	)
	switch cfg.Driver {
	case config.DriverDuckDB, "":
		d = duckdbDialect
		conn, err = openDuckDB(cfg)
	case config.DriverPostgres:
		d = postgresDialect
		conn, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	db := &DB{
		conn:    conn,
		cfg:     cfg,
		dialect: d,
		breaker: newBreaker(d.name, cfg),
		now:     func() time.Time { return time.Now().UTC() },
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := db.initialize(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().Str("driver", d.name).Msg("Database initialized")
	return db, nil
}

func openDuckDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	if cfg.Path != ":memory:" {
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
	}

	preserveOrder := "true"
	if !cfg.PreserveInsertionOrder {
		preserveOrder = "false"
	}
	maxMemory := cfg.MaxMemory
	if maxMemory == "" {
		maxMemory = "1GB"
	}

	// Extensions are installed explicitly by installExtensions so that a
	// missing network never stalls a query on autoload.
	connStr := fmt.Sprintf("%s?threads=%d&max_memory=%s&preserve_insertion_order=%s&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, numThreads, maxMemory, preserveOrder)

	conn, err := sql.Open(duckdbDialect.sqlDriver, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	conn.SetMaxOpenConns(numThreads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)
	return conn, nil
}

func openPostgres(cfg *config.DatabaseConfig) (*sql.DB, error) {
	conn, err := sql.Open(postgresDialect.sqlDriver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = runtime.NumCPU()
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return conn, nil
}

// initialize installs extensions, creates tables and applies migrations.
func (db *DB) initialize(ctx context.Context) error {
	if err := db.installExtensions(ctx); err != nil {
		return err
	}
	if err := db.createTables(ctx); err != nil {
		return err
	}
	if err := db.runVersionedMigrations(ctx); err != nil {
		return err
	}
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint after schema initialization")
	}
	return nil
}

// Driver returns the configured engine name.
func (db *DB) Driver() string {
	return db.dialect.name
}

// IsSpatialAvailable reports whether the spatial functions loaded.
func (db *DB) IsSpatialAvailable() bool {
	return db.spatialAvailable
}

// Conn returns the underlying connection pool.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping checks that the store answers, going through the circuit breaker.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.guard("ping", func() error { return db.conn.PingContext(ctx) })
}

// Checkpoint flushes the DuckDB WAL into the database file. It is a no-op
// on PostgreSQL.
func (db *DB) Checkpoint(ctx context.Context) error {
	if db.dialect.name != config.DriverDuckDB {
		return nil
	}
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Close checkpoints and closes the pool.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Failed to checkpoint database before close")
	}
	cancel()
	return db.conn.Close()
}
