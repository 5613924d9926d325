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

func scanTileIndex(rows *sql.Rows) (models.TileIndex, error) {
	var t models.TileIndex
	err := rows.Scan(&t.X, &t.Y, &t.Z)
	return t, err
}

// DetectedTiles lists the tiles of a workflow that have been processed,
// ordered z, y, x.
func (db *DB) DetectedTiles(ctx context.Context, workflowID int64) ([]models.TileIndex, error) {
	var tiles []models.TileIndex
	err := db.read("detected_tiles", func(q queryer) error {
		if err := workflowExists(ctx, q, workflowID); err != nil {
			return err
		}
		var err error
		tiles, err = queryAndScan(ctx, q, `
SELECT x_tile_idx, y_tile_idx, z_tile_idx FROM synapse_detection_tile
WHERE synapse_suggestion_workflow_id = $1
ORDER BY z_tile_idx, y_tile_idx, x_tile_idx`, []interface{}{workflowID}, scanTileIndex)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("detected tiles: %w", err)
	}
	if tiles == nil {
		tiles = []models.TileIndex{}
	}
	return tiles, nil
}

// UndetectedTiles returns the candidates that have no tile row yet, in
// candidate order.
func (db *DB) UndetectedTiles(ctx context.Context, workflowID int64, candidates []models.TileIndex) ([]models.TileIndex, error) {
	detected, err := db.DetectedTiles(ctx, workflowID)
	if err != nil {
		return nil, err
	}
	return models.MissingTiles(detected, candidates), nil
}

// InsertSlices implements ingest.Store. The tile row is get-or-created and
// every slice inserted in one transaction.
func (db *DB) InsertSlices(ctx context.Context, tile models.TileKey, records []models.SliceRecord) (map[models.ExternalID]models.SliceID, error) {
	var ids map[models.ExternalID]models.SliceID
	err := db.inTx(ctx, "insert_slices", nil, func(q queryer) error {
		if err := workflowExists(ctx, q, tile.WorkflowID); err != nil {
			return err
		}
		tileID, err := getOrCreate(ctx, q, `
INSERT INTO synapse_detection_tile (synapse_suggestion_workflow_id, x_tile_idx, y_tile_idx, z_tile_idx)
VALUES ($1, $2, $3, $4)`,
			[]interface{}{tile.WorkflowID, tile.X, tile.Y, tile.Z}, `
SELECT id FROM synapse_detection_tile
WHERE synapse_suggestion_workflow_id = $1 AND x_tile_idx = $2 AND y_tile_idx = $3 AND z_tile_idx = $4`,
			[]interface{}{tile.WorkflowID, tile.X, tile.Y, tile.Z})
		if err != nil {
			return fmt.Errorf("tile: %w", err)
		}

		ids = make(map[models.ExternalID]models.SliceID, len(records))
		for _, r := range records {
			var id int64
			err := q.QueryRowContext(ctx, `
INSERT INTO synapse_slice (synapse_detection_tile_id, convex_hull_2d, size_px, xs_centroid, ys_centroid, uncertainty)
VALUES ($1, ST_GeomFromText($2), $3, $4, $5, $6)
RETURNING id`, tileID, r.HullWKT, r.SizePx, r.XSCentroid, r.YSCentroid, optional(r.Uncertainty)).Scan(&id)
			if err != nil {
				return fmt.Errorf("slice %s: %w", r.ExternalID, err)
			}
			ids[r.ExternalID] = models.SliceID(id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
