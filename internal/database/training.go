// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// TreenodeIDs lists every treenode of a project, ascending.
func (db *DB) TreenodeIDs(ctx context.Context, projectID int64) ([]int64, error) {
	var ids []int64
	err := db.read("treenode_ids", func(q queryer) error {
		var err error
		ids, err = queryAndScan(ctx, q, `SELECT id FROM treenode WHERE project_id = $1 ORDER BY id`,
			[]interface{}{projectID}, scanInt64)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("treenode ids: %w", err)
	}
	return ids, nil
}

func scanTreenodeLocation(rows *sql.Rows) (models.TreenodeLocation, error) {
	var l models.TreenodeLocation
	err := rows.Scan(&l.TreenodeID, &l.X, &l.Y, &l.Z)
	return l, err
}

// TreenodeLocations returns the project coordinates of the given treenodes.
func (db *DB) TreenodeLocations(ctx context.Context, projectID int64, ids []int64) ([]models.TreenodeLocation, error) {
	var out []models.TreenodeLocation
	err := db.read("treenode_locations", func(q queryer) error {
		return chunks(ids, maxParams, func(part []int64) error {
			rows, err := queryAndScan(ctx, q, `
SELECT id, location_x, location_y, location_z FROM treenode
WHERE project_id = $1 AND id IN (`+placeholders(2, len(part))+`)`,
				append([]interface{}{projectID}, int64Args(part)...), scanTreenodeLocation)
			if err != nil {
				return err
			}
			out = append(out, rows...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("treenode locations: %w", err)
	}
	return out, nil
}

// TreenodesByLabel returns treenodes carrying any of tags, ordered by tag
// then treenode id.
func (db *DB) TreenodesByLabel(ctx context.Context, projectID int64, tags []string) ([]models.LabeledTreenode, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(tags)+1)
	args = append(args, projectID)
	for _, tag := range tags {
		args = append(args, tag)
	}

	var out []models.LabeledTreenode
	err := db.read("treenodes_by_label", func(q queryer) error {
		var err error
		out, err = queryAndScan(ctx, q, `
SELECT l.name, t.id, t.location_x, t.location_y, t.location_z
FROM treenode_label l
JOIN treenode t ON t.id = l.treenode_id
WHERE l.project_id = $1 AND l.name IN (`+placeholders(2, len(tags))+`)
ORDER BY l.name, t.id`, args, func(rows *sql.Rows) (models.LabeledTreenode, error) {
			var l models.LabeledTreenode
			err := rows.Scan(&l.Tag, &l.TreenodeID, &l.X, &l.Y, &l.Z)
			return l, err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("treenodes by label: %w", err)
	}
	return out, nil
}
