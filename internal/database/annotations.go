// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package database

import (
	"context"
	"fmt"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// Upserts are issued one row per statement: both engines reject an
// ON CONFLICT DO UPDATE statement that touches the same key twice.
const (
	upsertStack = `
INSERT INTO stack (id, title, resolution_x, resolution_y, resolution_z)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title,
  resolution_x = EXCLUDED.resolution_x, resolution_y = EXCLUDED.resolution_y, resolution_z = EXCLUDED.resolution_z`

	upsertProjectStack = `
INSERT INTO project_stack (project_id, stack_id, translation_x, translation_y, translation_z)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (project_id, stack_id) DO UPDATE SET
  translation_x = EXCLUDED.translation_x, translation_y = EXCLUDED.translation_y, translation_z = EXCLUDED.translation_z`

	upsertTreenode = `
INSERT INTO treenode (id, project_id, skeleton_id, parent_id, location_x, location_y, location_z)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET project_id = EXCLUDED.project_id, skeleton_id = EXCLUDED.skeleton_id,
  parent_id = EXCLUDED.parent_id, location_x = EXCLUDED.location_x,
  location_y = EXCLUDED.location_y, location_z = EXCLUDED.location_z`

	upsertConnector = `
INSERT INTO connector (id, project_id, location_x, location_y, location_z)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET project_id = EXCLUDED.project_id,
  location_x = EXCLUDED.location_x, location_y = EXCLUDED.location_y, location_z = EXCLUDED.location_z`

	upsertLink = `
INSERT INTO treenode_connector (project_id, treenode_id, connector_id, skeleton_id, relation)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (treenode_id, connector_id, relation) DO UPDATE SET skeleton_id = EXCLUDED.skeleton_id`

	insertLabel = `
INSERT INTO treenode_label (project_id, treenode_id, name) VALUES ($1, $2, $3)
ON CONFLICT DO NOTHING`
)

// ImportAnnotations mirrors host-platform rows into the store in one
// transaction. Rows are upserted by id, so re-importing is idempotent.
func (db *DB) ImportAnnotations(ctx context.Context, projectID int64, imp *models.AnnotationImport) (models.ImportSummary, error) {
	var sum models.ImportSummary
	err := db.inTx(ctx, "import_annotations", nil, func(q queryer) error {
		sum = models.ImportSummary{}
		exec := func(what, query string, args ...interface{}) error {
			if _, err := q.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("import %s: %w", what, err)
			}
			return nil
		}

		for _, s := range imp.Stacks {
			if err := exec("stack", upsertStack, s.ID, s.Title, s.ResolutionX, s.ResolutionY, s.ResolutionZ); err != nil {
				return err
			}
			if err := exec("project stack", upsertProjectStack, projectID, s.ID, s.TranslationX, s.TranslationY, s.TranslationZ); err != nil {
				return err
			}
			sum.Stacks++
		}
		for _, t := range imp.Treenodes {
			if err := exec("treenode", upsertTreenode, t.ID, projectID, t.SkeletonID, optional(t.ParentID), t.X, t.Y, t.Z); err != nil {
				return err
			}
			sum.Treenodes++
		}
		for _, c := range imp.Connectors {
			if err := exec("connector", upsertConnector, c.ID, projectID, c.X, c.Y, c.Z); err != nil {
				return err
			}
			sum.Connectors++
		}
		for _, l := range imp.Links {
			if err := exec("link", upsertLink, projectID, l.TreenodeID, l.ConnectorID, l.SkeletonID, l.Relation); err != nil {
				return err
			}
			sum.Links++
		}
		for _, l := range imp.Labels {
			if err := exec("label", insertLabel, projectID, l.TreenodeID, l.Name); err != nil {
				return err
			}
			sum.Labels++
		}
		return nil
	})
	if err != nil {
		return models.ImportSummary{}, err
	}
	return sum, nil
}
