// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/agglomerate"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// WithAgglomerationTx implements agglomerate.Store. On PostgreSQL the
// transaction is SERIALIZABLE; DuckDB detects write-write conflicts, which
// TouchObjects turns into read-write conflicts on the objects a run reads.
func (db *DB) WithAgglomerationTx(ctx context.Context, fn func(agglomerate.Tx) error) error {
	return db.inTx(ctx, "agglomerate", db.dialect.serialTx, func(q queryer) error {
		return fn(&aggTx{q: q})
	})
}

type aggTx struct {
	q queryer
}

func (t *aggTx) ExistingSlices(ctx context.Context, ids []models.SliceID) ([]models.SliceID, error) {
	found := make([]models.SliceID, 0, len(ids))
	err := chunks(ids, maxParams, func(part []models.SliceID) error {
		rows, err := queryAndScan(ctx, t.q,
			`SELECT id FROM synapse_slice WHERE id IN (`+placeholders(1, len(part))+`)`,
			int64Args(part), scanInt64)
		if err != nil {
			return err
		}
		for _, id := range rows {
			found = append(found, models.SliceID(id))
		}
		return nil
	})
	return found, err
}

const adjacentSlicesQuery = `
SELECT s1.id, s2.id
FROM synapse_slice s1
JOIN synapse_detection_tile t1 ON t1.id = s1.synapse_detection_tile_id
JOIN synapse_detection_tile t2
  ON t2.synapse_suggestion_workflow_id = t1.synapse_suggestion_workflow_id
 AND t2.x_tile_idx BETWEEN t1.x_tile_idx - 1 AND t1.x_tile_idx + 1
 AND t2.y_tile_idx BETWEEN t1.y_tile_idx - 1 AND t1.y_tile_idx + 1
 AND t2.z_tile_idx BETWEEN t1.z_tile_idx - 1 AND t1.z_tile_idx + 1
JOIN synapse_slice s2 ON s2.synapse_detection_tile_id = t2.id
WHERE s2.id <> s1.id
  AND ST_DWithin(s1.convex_hull_2d, s2.convex_hull_2d, $1)
  AND s1.id IN (%s)`

func (t *aggTx) AdjacentSlices(ctx context.Context, seeds []models.SliceID, distance float64) ([][2]models.SliceID, error) {
	var pairs [][2]models.SliceID
	err := chunks(seeds, maxParams, func(part []models.SliceID) error {
		args := append([]interface{}{distance}, int64Args(part)...)
		rows, err := queryAndScan(ctx, t.q, fmt.Sprintf(adjacentSlicesQuery, placeholders(2, len(part))), args,
			func(rows *sql.Rows) ([2]models.SliceID, error) {
				var p [2]models.SliceID
				err := rows.Scan(&p[0], &p[1])
				return p, err
			})
		if err != nil {
			return err
		}
		pairs = append(pairs, rows...)
		return nil
	})
	return pairs, err
}

func (t *aggTx) ObjectMembers(ctx context.Context, ids []models.SliceID) (map[models.SliceID]models.ObjectID, error) {
	members := make(map[models.SliceID]models.ObjectID)
	err := chunks(ids, maxParams, func(part []models.SliceID) error {
		query := `
SELECT m.synapse_slice_id, m.synapse_object_id
FROM synapse_slice_synapse_object m
WHERE m.synapse_object_id IN (
  SELECT synapse_object_id FROM synapse_slice_synapse_object
  WHERE synapse_slice_id IN (` + placeholders(1, len(part)) + `))`
		rows, err := queryAndScan(ctx, t.q, query, int64Args(part),
			func(rows *sql.Rows) ([2]int64, error) {
				var p [2]int64
				err := rows.Scan(&p[0], &p[1])
				return p, err
			})
		if err != nil {
			return err
		}
		for _, r := range rows {
			members[models.SliceID(r[0])] = models.ObjectID(r[1])
		}
		return nil
	})
	return members, err
}

func (t *aggTx) TouchObjects(ctx context.Context, ids []models.ObjectID) error {
	return chunks(ids, maxParams, func(part []models.ObjectID) error {
		_, err := t.q.ExecContext(ctx,
			`UPDATE synapse_object SET version = version + 1 WHERE id IN (`+placeholders(1, len(part))+`)`,
			int64Args(part)...)
		if err != nil {
			return fmt.Errorf("touch objects: %w", err)
		}
		return nil
	})
}

func (t *aggTx) CreateObjects(ctx context.Context, n int) ([]models.ObjectID, error) {
	ids := make([]models.ObjectID, 0, n)
	for i := 0; i < n; i++ {
		var id int64
		if err := t.q.QueryRowContext(ctx, `INSERT INTO synapse_object (version) VALUES (0) RETURNING id`).Scan(&id); err != nil {
			return nil, fmt.Errorf("create object: %w", err)
		}
		ids = append(ids, models.ObjectID(id))
	}
	return ids, nil
}

func (t *aggTx) UpsertMappings(ctx context.Context, mappings map[models.SliceID]models.ObjectID) error {
	keys := make([]models.SliceID, 0, len(mappings))
	for s := range mappings {
		keys = append(keys, s)
	}
	slices.Sort(keys)

	return chunks(keys, maxParams/2, func(part []models.SliceID) error {
		var b strings.Builder
		b.WriteString(`INSERT INTO synapse_slice_synapse_object (synapse_slice_id, synapse_object_id) VALUES `)
		args := make([]interface{}, 0, 2*len(part))
		for i, s := range part {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "($%d, $%d)", 2*i+1, 2*i+2)
			args = append(args, int64(s), int64(mappings[s]))
		}
		b.WriteString(` ON CONFLICT (synapse_slice_id) DO UPDATE SET synapse_object_id = EXCLUDED.synapse_object_id`)
		if _, err := t.q.ExecContext(ctx, b.String(), args...); err != nil {
			return fmt.Errorf("upsert mappings: %w", err)
		}
		return nil
	})
}

func (t *aggTx) DeleteOrphanObjects(ctx context.Context) ([]models.ObjectID, error) {
	ids, err := queryAndScan(ctx, t.q, `
DELETE FROM synapse_object
WHERE id NOT IN (SELECT synapse_object_id FROM synapse_slice_synapse_object)
RETURNING id`, nil, scanInt64)
	if err != nil {
		return nil, fmt.Errorf("delete orphan objects: %w", err)
	}
	out := make([]models.ObjectID, len(ids))
	for i, id := range ids {
		out[i] = models.ObjectID(id)
	}
	return models.SortObjectIDs(out), nil
}
