// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package models

import "time"

// ProjectWorkflow binds a detection workflow to a project and an association
// algorithm. Its id is the context under which treenode contacts are recorded.
type ProjectWorkflow struct {
	ID                     int64     `json:"project_workflow_id"`
	ProjectID              int64     `json:"project_id"`
	WorkflowID             int64     `json:"workflow_id"`
	AssociationAlgorithmID int64     `json:"association_algorithm_id"`
	Created                time.Time `json:"created"`
}

// Association is one observed contact between a slice and a treenode.
// SliceID is nil when the associator examined the node and found nothing.
type Association struct {
	SliceID    *SliceID `json:"slice_id"`
	TreenodeID int64    `json:"treenode_id" validate:"gt=0"`
	ContactPx  int64    `json:"contact_px" validate:"gte=0"`
}

// TreenodeAssociation is the summed contact between a treenode and an object.
type TreenodeAssociation struct {
	TreenodeID int64
	ObjectID   ObjectID
	ContactPx  int64
}

// Row encodes the association as [treenode_id, object_id, contact_px].
func (a TreenodeAssociation) Row() []interface{} {
	return []interface{}{a.TreenodeID, a.ObjectID, a.ContactPx}
}

// WorkflowInfo describes one detection+association workflow pair.
type WorkflowInfo struct {
	WorkflowID             int64     `json:"workflow_id"`
	StackID                int64     `json:"stack_id"`
	DetectionAlgorithmID   int64     `json:"detection_algo_id"`
	DetectionAlgorithmHash string    `json:"detection_algo_hash"`
	DetectionAlgorithmDate time.Time `json:"detection_algo_date"`
	DetectionAlgorithmNote string    `json:"detection_algo_notes"`

	ProjectWorkflowID        int64     `json:"project_workflow_id"`
	AssociationAlgorithmID   int64     `json:"association_algo_id"`
	AssociationAlgorithmHash string    `json:"association_algo_hash"`
	AssociationAlgorithmDate time.Time `json:"association_algo_date"`
	AssociationAlgorithmNote string    `json:"association_algo_notes"`

	TileHeightPx int `json:"tile_height_px"`
	TileWidthPx  int `json:"tile_width_px"`
}
