// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"fmt"
)

// sequences back every surrogate key; both engines support nextval().
var sequences = []string{
	"seq_tiling",
	"seq_detection_algorithm",
	"seq_workflow",
	"seq_tile",
	"seq_slice",
	"seq_object",
	"seq_slice_object",
	"seq_association_algorithm",
	"seq_project_workflow",
	"seq_slice_treenode",
	"seq_treenode_connector",
}

// tableStatements returns CREATE TABLE statements in dependency order.
//
// The host tables (stack, project_stack, treenode, connector,
// treenode_connector, treenode_label) mirror the CATMAID rows the queries
// join against; they are filled by the annotation import.
func (db *DB) tableStatements() []string {
	ref := db.dialect.references
	return []string{
		// Host platform mirror
		`CREATE TABLE IF NOT EXISTS stack (
			id BIGINT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			resolution_x FLOAT8 NOT NULL,
			resolution_y FLOAT8 NOT NULL,
			resolution_z FLOAT8 NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS project_stack (
			project_id BIGINT NOT NULL,
			stack_id BIGINT NOT NULL` + ref("stack", false) + `,
			translation_x FLOAT8 NOT NULL DEFAULT 0,
			translation_y FLOAT8 NOT NULL DEFAULT 0,
			translation_z FLOAT8 NOT NULL DEFAULT 0,
			PRIMARY KEY (project_id, stack_id)
		)`,
		`CREATE TABLE IF NOT EXISTS treenode (
			id BIGINT PRIMARY KEY,
			project_id BIGINT NOT NULL,
			skeleton_id BIGINT NOT NULL,
			parent_id BIGINT,
			location_x FLOAT8 NOT NULL,
			location_y FLOAT8 NOT NULL,
			location_z FLOAT8 NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS connector (
			id BIGINT PRIMARY KEY,
			project_id BIGINT NOT NULL,
			location_x FLOAT8 NOT NULL,
			location_y FLOAT8 NOT NULL,
			location_z FLOAT8 NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS treenode_connector (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_treenode_connector'),
			project_id BIGINT NOT NULL,
			treenode_id BIGINT NOT NULL` + ref("treenode", false) + `,
			connector_id BIGINT NOT NULL` + ref("connector", false) + `,
			skeleton_id BIGINT NOT NULL,
			relation TEXT NOT NULL,
			UNIQUE (treenode_id, connector_id, relation)
		)`,
		`CREATE TABLE IF NOT EXISTS treenode_label (
			project_id BIGINT NOT NULL,
			treenode_id BIGINT NOT NULL` + ref("treenode", false) + `,
			name TEXT NOT NULL,
			PRIMARY KEY (treenode_id, name)
		)`,

		// Detection
		`CREATE TABLE IF NOT EXISTS synapse_detection_tiling (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_tiling'),
			stack_id BIGINT NOT NULL,
			tile_height_px INTEGER NOT NULL,
			tile_width_px INTEGER NOT NULL,
			UNIQUE (stack_id, tile_height_px, tile_width_px)
		)`,
		`CREATE TABLE IF NOT EXISTS synapse_detection_algorithm (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_detection_algorithm'),
			hashcode TEXT NOT NULL UNIQUE,
			date TIMESTAMP NOT NULL,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS synapse_suggestion_workflow (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_workflow'),
			synapse_detection_tiling_id BIGINT NOT NULL` + ref("synapse_detection_tiling", false) + `,
			synapse_detection_algorithm_id BIGINT NOT NULL` + ref("synapse_detection_algorithm", false) + `,
			UNIQUE (synapse_detection_tiling_id, synapse_detection_algorithm_id)
		)`,
		`CREATE TABLE IF NOT EXISTS synapse_detection_tile (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_tile'),
			synapse_suggestion_workflow_id BIGINT NOT NULL` + ref("synapse_suggestion_workflow", false) + `,
			x_tile_idx INTEGER NOT NULL,
			y_tile_idx INTEGER NOT NULL,
			z_tile_idx INTEGER NOT NULL,
			UNIQUE (synapse_suggestion_workflow_id, x_tile_idx, y_tile_idx, z_tile_idx)
		)`,
		`CREATE TABLE IF NOT EXISTS synapse_slice (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_slice'),
			synapse_detection_tile_id BIGINT NOT NULL` + ref("synapse_detection_tile", false) + `,
			convex_hull_2d GEOMETRY NOT NULL,
			size_px BIGINT NOT NULL,
			xs_centroid FLOAT8 NOT NULL,
			ys_centroid FLOAT8 NOT NULL,
			uncertainty FLOAT8
		)`,
		`CREATE TABLE IF NOT EXISTS synapse_object (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_object'),
			version BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS synapse_slice_synapse_object (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_slice_object'),
			synapse_slice_id BIGINT NOT NULL UNIQUE` + ref("synapse_slice", false) + `,
			synapse_object_id BIGINT NOT NULL` + ref("synapse_object", false) + `
		)`,

		// Association
		`CREATE TABLE IF NOT EXISTS synapse_association_algorithm (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_association_algorithm'),
			hashcode TEXT NOT NULL UNIQUE,
			date TIMESTAMP NOT NULL,
			notes TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS project_synapse_suggestion_workflow (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_project_workflow'),
			project_id BIGINT NOT NULL,
			synapse_suggestion_workflow_id BIGINT NOT NULL` + ref("synapse_suggestion_workflow", false) + `,
			synapse_association_algorithm_id BIGINT NOT NULL` + ref("synapse_association_algorithm", false) + `,
			created TIMESTAMP NOT NULL,
			UNIQUE (project_id, synapse_suggestion_workflow_id, synapse_association_algorithm_id)
		)`,
		`CREATE TABLE IF NOT EXISTS synapse_slice_treenode (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_slice_treenode'),
			synapse_slice_id BIGINT` + ref("synapse_slice", true) + `,
			treenode_id BIGINT NOT NULL,
			project_synapse_suggestion_workflow_id BIGINT NOT NULL` + ref("project_synapse_suggestion_workflow", false) + `,
			contact_px BIGINT NOT NULL DEFAULT 0
		)`,
	}
}

// createTables creates sequences and tables. Indexes live in migrations.
func (db *DB) createTables(ctx context.Context) error {
	for _, seq := range sequences {
		if _, err := db.conn.ExecContext(ctx, "CREATE SEQUENCE IF NOT EXISTS "+seq+" START 1"); err != nil {
			return fmt.Errorf("failed to create sequence %s: %w", seq, err)
		}
	}
	for _, stmt := range db.tableStatements() {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create table: %w\n%s", err, stmt)
		}
	}
	return nil
}

// clearSynapseTables removes all detection and association rows but keeps
// the host mirror.
func (db *DB) clearSynapseTables(ctx context.Context) error {
	tables := []string{
		"synapse_slice_treenode",
		"project_synapse_suggestion_workflow",
		"synapse_association_algorithm",
		"synapse_slice_synapse_object",
		"synapse_object",
		"synapse_slice",
		"synapse_detection_tile",
		"synapse_suggestion_workflow",
		"synapse_detection_algorithm",
		"synapse_detection_tiling",
	}
	return db.inTx(ctx, "clear_tables", nil, func(tx queryer) error {
		for _, t := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+t); err != nil {
				return fmt.Errorf("clear %s: %w", t, err)
			}
		}
		return nil
	})
}
