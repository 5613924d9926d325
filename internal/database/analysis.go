// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// StackTransform returns the stack→project transform of a stack in a project.
func (db *DB) StackTransform(ctx context.Context, projectID, stackID int64) (models.StackTransform, error) {
	var t models.StackTransform
	err := db.read("stack_transform", func(q queryer) error {
		return q.QueryRowContext(ctx, `
SELECT s.resolution_x, s.resolution_y, s.resolution_z, ps.translation_x, ps.translation_y, ps.translation_z
FROM project_stack ps
JOIN stack s ON s.id = ps.stack_id
WHERE ps.project_id = $1 AND ps.stack_id = $2`, projectID, stackID).
			Scan(&t.ResolutionX, &t.ResolutionY, &t.ResolutionZ, &t.TranslationX, &t.TranslationY, &t.TranslationZ)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.StackTransform{}, fmt.Errorf("%w: stack %d, project %d", models.ErrStackNotFound, stackID, projectID)
	}
	if err != nil {
		return models.StackTransform{}, fmt.Errorf("stack transform: %w", err)
	}
	return t, nil
}

// SkeletonContacts returns one row per (slice, treenode) association of a
// skeleton in the context, restricted to mapped slices.
func (db *DB) SkeletonContacts(ctx context.Context, projectWorkflowID, skeletonID int64) ([]models.SkeletonContact, error) {
	var out []models.SkeletonContact
	err := db.read("skeleton_contacts", func(q queryer) error {
		var err error
		out, err = queryAndScan(ctx, q, `
SELECT m.synapse_object_id, s.id, st.treenode_id, s.xs_centroid, s.ys_centroid,
       tile.z_tile_idx, s.size_px, s.uncertainty, st.contact_px
FROM synapse_slice_treenode st
JOIN treenode tn ON tn.id = st.treenode_id
JOIN synapse_slice s ON s.id = st.synapse_slice_id
JOIN synapse_detection_tile tile ON tile.id = s.synapse_detection_tile_id
JOIN synapse_slice_synapse_object m ON m.synapse_slice_id = s.id
WHERE st.project_synapse_suggestion_workflow_id = $1 AND tn.skeleton_id = $2
ORDER BY m.synapse_object_id, s.id, st.treenode_id`, []interface{}{projectWorkflowID, skeletonID},
			func(rows *sql.Rows) (models.SkeletonContact, error) {
				var (
					c           models.SkeletonContact
					uncertainty sql.NullFloat64
				)
				err := rows.Scan(&c.ObjectID, &c.SliceID, &c.TreenodeID, &c.XSCentroid, &c.YSCentroid,
					&c.Z, &c.SizePx, &uncertainty, &c.ContactPx)
				c.Uncertainty = nullableFloat(uncertainty)
				return c, err
			})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("skeleton contacts: %w", err)
	}
	return out, nil
}

// SliceGeometries returns every slice of the given objects in the workflow
// with its hull and stack-space bounds.
func (db *DB) SliceGeometries(ctx context.Context, workflowID int64, objectIDs []models.ObjectID) ([]models.SliceGeometry, error) {
	var out []models.SliceGeometry
	err := db.read("slice_geometries", func(q queryer) error {
		return chunks(objectIDs, maxParams, func(part []models.ObjectID) error {
			rows, err := queryAndScan(ctx, q, `
SELECT m.synapse_object_id, s.id, tile.z_tile_idx,
       ST_XMin(s.convex_hull_2d), ST_XMax(s.convex_hull_2d),
       ST_YMin(s.convex_hull_2d), ST_YMax(s.convex_hull_2d),
       ST_AsText(s.convex_hull_2d)
FROM synapse_slice_synapse_object m
JOIN synapse_slice s ON s.id = m.synapse_slice_id
JOIN synapse_detection_tile tile ON tile.id = s.synapse_detection_tile_id
WHERE tile.synapse_suggestion_workflow_id = $1
  AND m.synapse_object_id IN (`+placeholders(2, len(part))+`)
ORDER BY m.synapse_object_id, s.id`, append([]interface{}{workflowID}, int64Args(part)...),
				func(rows *sql.Rows) (models.SliceGeometry, error) {
					var g models.SliceGeometry
					err := rows.Scan(&g.ObjectID, &g.SliceID, &g.Z, &g.XMin, &g.XMax, &g.YMin, &g.YMax, &g.HullWKT)
					return g, err
				})
			if err != nil {
				return err
			}
			out = append(out, rows...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("slice geometries: %w", err)
	}
	return out, nil
}

// SliceDetails returns the slice–treenode associations of skeletons under
// any association algorithm of the workflow in the project.
func (db *DB) SliceDetails(ctx context.Context, projectID, workflowID int64, skeletonIDs []int64) ([]models.SliceDetail, error) {
	var out []models.SliceDetail
	err := db.read("slice_details", func(q queryer) error {
		return chunks(skeletonIDs, maxParams, func(part []int64) error {
			rows, err := queryAndScan(ctx, q, `
SELECT s.id, m.synapse_object_id, tn.id, tn.skeleton_id,
       s.xs_centroid, s.ys_centroid, tile.z_tile_idx, s.size_px, s.uncertainty
FROM synapse_slice_treenode st
JOIN project_synapse_suggestion_workflow pw ON pw.id = st.project_synapse_suggestion_workflow_id
JOIN treenode tn ON tn.id = st.treenode_id
JOIN synapse_slice s ON s.id = st.synapse_slice_id
JOIN synapse_detection_tile tile ON tile.id = s.synapse_detection_tile_id
JOIN synapse_slice_synapse_object m ON m.synapse_slice_id = s.id
WHERE pw.project_id = $1 AND pw.synapse_suggestion_workflow_id = $2
  AND tn.skeleton_id IN (`+placeholders(3, len(part))+`)`,
				append([]interface{}{projectID, workflowID}, int64Args(part)...),
				func(rows *sql.Rows) (models.SliceDetail, error) {
					var (
						d           models.SliceDetail
						uncertainty sql.NullFloat64
					)
					err := rows.Scan(&d.SliceID, &d.ObjectID, &d.TreenodeID, &d.SkeletonID,
						&d.XS, &d.YS, &d.Z, &d.SizePx, &uncertainty)
					d.Uncertainty = nullableFloat(uncertainty)
					return d, err
				})
			if err != nil {
				return err
			}
			out = append(out, rows...)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("slice details: %w", err)
	}
	return out, nil
}

// connectorEdgesQuery selects connectors located in the box or with an edge
// whose bounding box overlaps it, then returns every edge of those
// connectors. Unlinked connectors yield one row with NULL treenode columns.
const connectorEdgesQuery = `
WITH hit AS (
  SELECT DISTINCT c.id
  FROM connector c
  LEFT JOIN treenode_connector tc ON tc.connector_id = c.id
  LEFT JOIN treenode t ON t.id = tc.treenode_id
  WHERE c.project_id = $1 AND (
    (c.location_x BETWEEN $2 AND $3 AND c.location_y BETWEEN $4 AND $5 AND c.location_z BETWEEN $6 AND $7)
    OR (t.id IS NOT NULL
      AND LEAST(c.location_x, t.location_x) <= $3 AND GREATEST(c.location_x, t.location_x) >= $2
      AND LEAST(c.location_y, t.location_y) <= $5 AND GREATEST(c.location_y, t.location_y) >= $4
      AND LEAST(c.location_z, t.location_z) <= $7 AND GREATEST(c.location_z, t.location_z) >= $6))
)
SELECT c.id, c.location_x, c.location_y, c.location_z, t.id, t.location_x, t.location_y, t.location_z
FROM connector c
JOIN hit ON hit.id = c.id
LEFT JOIN treenode_connector tc ON tc.connector_id = c.id
LEFT JOIN treenode t ON t.id = tc.treenode_id
ORDER BY c.id, t.id`

// ConnectorEdges returns connector–treenode edges near a project-space box.
func (db *DB) ConnectorEdges(ctx context.Context, projectID int64, box models.ProjectBox) ([]models.ConnectorEdge, error) {
	var out []models.ConnectorEdge
	err := db.read("connector_edges", func(q queryer) error {
		var err error
		out, err = queryAndScan(ctx, q, connectorEdgesQuery,
			[]interface{}{projectID, box.XMin, box.XMax, box.YMin, box.YMax, box.ZMin, box.ZMax},
			func(rows *sql.Rows) (models.ConnectorEdge, error) {
				var (
					e          models.ConnectorEdge
					tid        sql.NullInt64
					tx, ty, tz sql.NullFloat64
				)
				err := rows.Scan(&e.ConnectorID, &e.CX, &e.CY, &e.CZ, &tid, &tx, &ty, &tz)
				if tid.Valid {
					id := tid.Int64
					e.TreenodeID = &id
					e.TX, e.TY, e.TZ = tx.Float64, ty.Float64, tz.Float64
				}
				return e, err
			})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("connector edges: %w", err)
	}
	return out, nil
}
