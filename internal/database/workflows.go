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
	"strings"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// getOrCreate inserts a row unless its unique key exists and returns the
// row's id either way.
func getOrCreate(ctx context.Context, q queryer, insert string, insertArgs []interface{}, lookup string, lookupArgs []interface{}) (int64, error) {
	if _, err := q.ExecContext(ctx, insert+" ON CONFLICT DO NOTHING", insertArgs...); err != nil {
		return 0, err
	}
	var id int64
	if err := q.QueryRowContext(ctx, lookup, lookupArgs...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// GetOrCreateWorkflow returns the workflow for a stack tiling and detection
// algorithm, creating the tiling, algorithm and workflow rows as needed.
func (db *DB) GetOrCreateWorkflow(ctx context.Context, stackID int64, size models.TileSize, hash string, notes *string) (models.Workflow, error) {
	wf := models.Workflow{StackID: stackID, TileSize: size}
	err := db.inTx(ctx, "get_or_create_workflow", nil, func(q queryer) error {
		tilingID, err := getOrCreate(ctx, q,
			`INSERT INTO synapse_detection_tiling (stack_id, tile_height_px, tile_width_px) VALUES ($1, $2, $3)`,
			[]interface{}{stackID, size.HeightPx, size.WidthPx},
			`SELECT id FROM synapse_detection_tiling WHERE stack_id = $1 AND tile_height_px = $2 AND tile_width_px = $3`,
			[]interface{}{stackID, size.HeightPx, size.WidthPx})
		if err != nil {
			return fmt.Errorf("tiling: %w", err)
		}

		algoID, err := getOrCreate(ctx, q,
			`INSERT INTO synapse_detection_algorithm (hashcode, date, notes) VALUES ($1, $2, $3)`,
			[]interface{}{hash, db.now(), optional(notes)},
			`SELECT id FROM synapse_detection_algorithm WHERE hashcode = $1`,
			[]interface{}{hash})
		if err != nil {
			return fmt.Errorf("detection algorithm: %w", err)
		}

		wfID, err := getOrCreate(ctx, q,
			`INSERT INTO synapse_suggestion_workflow (synapse_detection_tiling_id, synapse_detection_algorithm_id) VALUES ($1, $2)`,
			[]interface{}{tilingID, algoID},
			`SELECT id FROM synapse_suggestion_workflow WHERE synapse_detection_tiling_id = $1 AND synapse_detection_algorithm_id = $2`,
			[]interface{}{tilingID, algoID})
		if err != nil {
			return fmt.Errorf("workflow: %w", err)
		}

		wf.ID = wfID
		wf.DetectionAlgorithmID = algoID
		return nil
	})
	if err != nil {
		return models.Workflow{}, err
	}
	return wf, nil
}

// GetOrCreateProjectWorkflow binds a workflow to a project under an
// association algorithm.
func (db *DB) GetOrCreateProjectWorkflow(ctx context.Context, projectID, workflowID int64, hash string, notes *string) (models.ProjectWorkflow, error) {
	pw := models.ProjectWorkflow{ProjectID: projectID, WorkflowID: workflowID}
	err := db.inTx(ctx, "get_or_create_project_workflow", nil, func(q queryer) error {
		if err := workflowExists(ctx, q, workflowID); err != nil {
			return err
		}

		algoID, err := getOrCreate(ctx, q,
			`INSERT INTO synapse_association_algorithm (hashcode, date, notes) VALUES ($1, $2, $3)`,
			[]interface{}{hash, db.now(), optional(notes)},
			`SELECT id FROM synapse_association_algorithm WHERE hashcode = $1`,
			[]interface{}{hash})
		if err != nil {
			return fmt.Errorf("association algorithm: %w", err)
		}

		if _, err := q.ExecContext(ctx, `
INSERT INTO project_synapse_suggestion_workflow
  (project_id, synapse_suggestion_workflow_id, synapse_association_algorithm_id, created)
VALUES ($1, $2, $3, $4) ON CONFLICT DO NOTHING`, projectID, workflowID, algoID, db.now()); err != nil {
			return fmt.Errorf("project workflow: %w", err)
		}
		err = q.QueryRowContext(ctx, `
SELECT id, created FROM project_synapse_suggestion_workflow
WHERE project_id = $1 AND synapse_suggestion_workflow_id = $2 AND synapse_association_algorithm_id = $3`,
			projectID, workflowID, algoID).Scan(&pw.ID, &pw.Created)
		if err != nil {
			return fmt.Errorf("project workflow: %w", err)
		}
		pw.AssociationAlgorithmID = algoID
		return nil
	})
	if err != nil {
		return models.ProjectWorkflow{}, err
	}
	return pw, nil
}

func workflowExists(ctx context.Context, q queryer, workflowID int64) error {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM synapse_suggestion_workflow WHERE id = $1`, workflowID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %d", models.ErrWorkflowNotFound, workflowID)
	}
	return err
}

// Workflow loads a detection workflow with its tiling.
func (db *DB) Workflow(ctx context.Context, workflowID int64) (models.Workflow, error) {
	var wf models.Workflow
	err := db.read("workflow", func(q queryer) error {
		return q.QueryRowContext(ctx, `
SELECT w.id, t.stack_id, w.synapse_detection_algorithm_id, t.tile_height_px, t.tile_width_px
FROM synapse_suggestion_workflow w
JOIN synapse_detection_tiling t ON t.id = w.synapse_detection_tiling_id
WHERE w.id = $1`, workflowID).Scan(&wf.ID, &wf.StackID, &wf.DetectionAlgorithmID, &wf.TileSize.HeightPx, &wf.TileSize.WidthPx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.Workflow{}, fmt.Errorf("%w: %d", models.ErrWorkflowNotFound, workflowID)
	}
	if err != nil {
		return models.Workflow{}, fmt.Errorf("workflow %d: %w", workflowID, err)
	}
	return wf, nil
}

// ResolveProjectWorkflow returns the project workflow with the given id, or
// when projectWorkflowID is nil the most recently created one of the
// project (restricted to workflowID when set).
func (db *DB) ResolveProjectWorkflow(ctx context.Context, projectID int64, workflowID, projectWorkflowID *int64) (models.ProjectWorkflow, error) {
	where := []string{"project_id = $1"}
	args := []interface{}{projectID}
	if workflowID != nil {
		args = append(args, *workflowID)
		where = append(where, fmt.Sprintf("synapse_suggestion_workflow_id = $%d", len(args)))
	}
	if projectWorkflowID != nil {
		args = append(args, *projectWorkflowID)
		where = append(where, fmt.Sprintf("id = $%d", len(args)))
	}
	query := `
SELECT id, project_id, synapse_suggestion_workflow_id, synapse_association_algorithm_id, created
FROM project_synapse_suggestion_workflow
WHERE ` + strings.Join(where, " AND ") + `
ORDER BY created DESC, id DESC
LIMIT 1`

	var pw models.ProjectWorkflow
	err := db.read("resolve_project_workflow", func(q queryer) error {
		return q.QueryRowContext(ctx, query, args...).Scan(&pw.ID, &pw.ProjectID, &pw.WorkflowID, &pw.AssociationAlgorithmID, &pw.Created)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProjectWorkflow{}, fmt.Errorf("%w in project %d", models.ErrProjectWorkflowNotFound, projectID)
	}
	if err != nil {
		return models.ProjectWorkflow{}, fmt.Errorf("resolve project workflow: %w", err)
	}
	return pw, nil
}

// WorkflowInfo lists the project's workflow pairs, optionally for one stack.
func (db *DB) WorkflowInfo(ctx context.Context, projectID int64, stackID *int64) ([]models.WorkflowInfo, error) {
	query := `
SELECT w.id, t.stack_id, t.tile_height_px, t.tile_width_px,
       da.id, da.hashcode, da.date, da.notes,
       pw.id, aa.id, aa.hashcode, aa.date, aa.notes
FROM project_synapse_suggestion_workflow pw
JOIN synapse_suggestion_workflow w ON w.id = pw.synapse_suggestion_workflow_id
JOIN synapse_detection_tiling t ON t.id = w.synapse_detection_tiling_id
JOIN synapse_detection_algorithm da ON da.id = w.synapse_detection_algorithm_id
JOIN synapse_association_algorithm aa ON aa.id = pw.synapse_association_algorithm_id
WHERE pw.project_id = $1`
	args := []interface{}{projectID}
	if stackID != nil {
		query += ` AND t.stack_id = $2`
		args = append(args, *stackID)
	}

	var infos []models.WorkflowInfo
	err := db.read("workflow_info", func(q queryer) error {
		var err error
		infos, err = queryAndScan(ctx, q, query, args, func(rows *sql.Rows) (models.WorkflowInfo, error) {
			var (
				w                    models.WorkflowInfo
				detNotes, assocNotes sql.NullString
			)
			err := rows.Scan(&w.WorkflowID, &w.StackID, &w.TileHeightPx, &w.TileWidthPx,
				&w.DetectionAlgorithmID, &w.DetectionAlgorithmHash, &w.DetectionAlgorithmDate, &detNotes,
				&w.ProjectWorkflowID, &w.AssociationAlgorithmID, &w.AssociationAlgorithmHash, &w.AssociationAlgorithmDate, &assocNotes)
			w.DetectionAlgorithmNote = nullableString(detNotes)
			w.AssociationAlgorithmNote = nullableString(assocNotes)
			return w, err
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("workflow info: %w", err)
	}
	return infos, nil
}
