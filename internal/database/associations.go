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
	"slices"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/agglomerate"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

func projectWorkflowExists(ctx context.Context, q queryer, projectWorkflowID int64) error {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM project_synapse_suggestion_workflow WHERE id = $1`, projectWorkflowID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", models.ErrProjectWorkflowNotFound, projectWorkflowID)
	}
	return err
}

// AddAssociations records treenode contacts under a project workflow.
// Repeated (slice, treenode) pairs are stored as separate rows; readers sum
// them. Unknown slice ids fail the whole batch.
func (db *DB) AddAssociations(ctx context.Context, projectWorkflowID int64, rows []models.Association) (int, error) {
	err := db.inTx(ctx, "add_associations", nil, func(q queryer) error {
		if err := projectWorkflowExists(ctx, q, projectWorkflowID); err != nil {
			return err
		}
		if err := requireSlices(ctx, q, rows); err != nil {
			return err
		}
		for _, a := range rows {
			var sliceID interface{}
			if a.SliceID != nil {
				sliceID = int64(*a.SliceID)
			}
			_, err := q.ExecContext(ctx, `
INSERT INTO synapse_slice_treenode (synapse_slice_id, treenode_id, project_synapse_suggestion_workflow_id, contact_px)
VALUES ($1, $2, $3, $4)`, sliceID, a.TreenodeID, projectWorkflowID, a.ContactPx)
			if err != nil {
				return fmt.Errorf("association for treenode %d: %w", a.TreenodeID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func requireSlices(ctx context.Context, q queryer, rows []models.Association) error {
	want := make([]models.SliceID, 0, len(rows))
	for _, a := range rows {
		if a.SliceID != nil {
			want = append(want, *a.SliceID)
		}
	}
	slices.Sort(want)
	want = slices.Compact(want)
	if len(want) == 0 {
		return nil
	}

	found, err := (&aggTx{q: q}).ExistingSlices(ctx, want)
	if err != nil {
		return err
	}
	if len(found) == len(want) {
		return nil
	}
	have := make(map[models.SliceID]struct{}, len(found))
	for _, id := range found {
		have[id] = struct{}{}
	}
	var missing []models.SliceID
	for _, id := range want {
		if _, ok := have[id]; !ok {
			missing = append(missing, id)
		}
	}
	return &agglomerate.UnknownSlicesError{IDs: missing}
}

// TreenodeAssociations sums contact per (treenode, object) for a skeleton.
// Contacts without a slice are omitted.
func (db *DB) TreenodeAssociations(ctx context.Context, projectWorkflowID, skeletonID int64) ([]models.TreenodeAssociation, error) {
	var out []models.TreenodeAssociation
	err := db.read("treenode_associations", func(q queryer) error {
		if err := projectWorkflowExists(ctx, q, projectWorkflowID); err != nil {
			return err
		}
		var err error
		out, err = queryAndScan(ctx, q, `
SELECT st.treenode_id, m.synapse_object_id, SUM(st.contact_px)
FROM synapse_slice_treenode st
JOIN treenode tn ON tn.id = st.treenode_id
JOIN synapse_slice_synapse_object m ON m.synapse_slice_id = st.synapse_slice_id
WHERE st.project_synapse_suggestion_workflow_id = $1 AND tn.skeleton_id = $2
GROUP BY st.treenode_id, m.synapse_object_id
ORDER BY st.treenode_id, m.synapse_object_id`, []interface{}{projectWorkflowID, skeletonID},
			func(rows *sql.Rows) (models.TreenodeAssociation, error) {
				var a models.TreenodeAssociation
				err := rows.Scan(&a.TreenodeID, &a.ObjectID, &a.ContactPx)
				return a, err
			})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("treenode associations: %w", err)
	}
	if out == nil {
		out = []models.TreenodeAssociation{}
	}
	return out, nil
}

// UnassociatedTreenodes lists a skeleton's treenodes that have no
// association row, with or without a slice, in the context.
func (db *DB) UnassociatedTreenodes(ctx context.Context, projectID, projectWorkflowID, skeletonID int64) ([]int64, error) {
	var ids []int64
	err := db.read("unassociated_treenodes", func(q queryer) error {
		if err := projectWorkflowExists(ctx, q, projectWorkflowID); err != nil {
			return err
		}
		var err error
		ids, err = queryAndScan(ctx, q, `
SELECT tn.id FROM treenode tn
WHERE tn.project_id = $1 AND tn.skeleton_id = $2
  AND NOT EXISTS (
    SELECT 1 FROM synapse_slice_treenode st
    WHERE st.treenode_id = tn.id AND st.project_synapse_suggestion_workflow_id = $3)
ORDER BY tn.id`, []interface{}{projectID, skeletonID, projectWorkflowID}, scanInt64)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("unassociated treenodes: %w", err)
	}
	if ids == nil {
		ids = []int64{}
	}
	return ids, nil
}
