// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/config"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
)

// Migration is a versioned schema change applied exactly once.
type Migration struct {
	Version     int
	Name        string
	Description string
	// SQL runs on both engines unless Postgres is set.
	SQL string
	// Postgres replaces SQL on PostgreSQL. "-" skips the statement there.
	Postgres string
	// DuckDB set to "-" skips the statement on DuckDB.
	DuckDB    string
	AppliedAt time.Time
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// getMigrations returns all migrations in order. Append only.
//
// DuckDB rewrites an UPDATE of an indexed column as delete+insert, which
// trips unique constraints inside the same transaction, and refuses
// ON CONFLICT DO UPDATE on indexed columns. Columns that agglomeration or
// the annotation import overwrite are therefore only indexed on PostgreSQL.
func (db *DB) getMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "idx_slice_tile", Description: "Slices by tile",
			SQL: `CREATE INDEX IF NOT EXISTS idx_slice_tile ON synapse_slice (synapse_detection_tile_id)`},
		{Version: 2, Name: "idx_slice_treenode_context", Description: "Associations by context and treenode",
			SQL: `CREATE INDEX IF NOT EXISTS idx_slice_treenode_context ON synapse_slice_treenode (project_synapse_suggestion_workflow_id, treenode_id)`},
		{Version: 3, Name: "idx_slice_treenode_slice", Description: "Associations by slice",
			SQL: `CREATE INDEX IF NOT EXISTS idx_slice_treenode_slice ON synapse_slice_treenode (synapse_slice_id)`},
		{Version: 4, Name: "idx_treenode_skeleton", Description: "Treenodes by project and skeleton",
			Postgres: `CREATE INDEX IF NOT EXISTS idx_treenode_skeleton ON treenode (project_id, skeleton_id)`,
			DuckDB:   "-"},
		{Version: 5, Name: "idx_treenode_connector_connector", Description: "Links by connector",
			SQL: `CREATE INDEX IF NOT EXISTS idx_treenode_connector_connector ON treenode_connector (connector_id)`},
		{Version: 6, Name: "idx_mapping_object", Description: "Mappings by object",
			Postgres: `CREATE INDEX IF NOT EXISTS idx_mapping_object ON synapse_slice_synapse_object (synapse_object_id)`,
			DuckDB:   "-"},
		{Version: 7, Name: "gist_slice_hull", Description: "Spatial index on slice hulls",
			Postgres: `CREATE INDEX IF NOT EXISTS gist_slice_hull ON synapse_slice USING GIST (convex_hull_2d)`,
			DuckDB:   "-"},
		{Version: 8, Name: "idx_connector_location", Description: "Connectors by project and location",
			Postgres: `CREATE INDEX IF NOT EXISTS idx_connector_location ON connector (project_id, location_z)`,
			DuckDB:   "-"},
	}
}

// statement returns the SQL for the current engine, or "" to skip.
func (m Migration) statement(driver string) string {
	if driver == config.DriverPostgres {
		switch m.Postgres {
		case "-":
			return ""
		case "":
			return m.SQL
		default:
			return m.Postgres
		}
	}
	if m.DuckDB == "-" {
		return ""
	}
	if m.DuckDB != "" {
		return m.DuckDB
	}
	return m.SQL
}

func (db *DB) getAppliedMigrations(ctx context.Context) (map[int]Migration, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT version, name, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer closeWithLog(rows, "rows")

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.Description, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[m.Version] = m
	}
	return applied, rows.Err()
}

// runVersionedMigrations applies the migrations not yet recorded.
func (db *DB) runVersionedMigrations(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.getAppliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}

	newMigrations := 0
	for _, m := range db.getMigrations() {
		if _, exists := applied[m.Version]; exists {
			continue
		}
		if stmt := m.statement(db.dialect.name); stmt != "" {
			if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
			}
		}
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES ($1, $2, $3)`,
			m.Version, m.Name, m.Description)
		if err != nil {
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
		newMigrations++
	}

	if newMigrations > 0 {
		logging.Info().Int("count", newMigrations).Msg("Applied database migrations")
	}
	return nil
}

// GetCurrentSchemaVersion returns the highest applied migration version.
func (db *DB) GetCurrentSchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := db.conn.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
