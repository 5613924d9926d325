// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Request structs for every endpoint. Query-string endpoints are parsed into
// the same kind of struct as JSON bodies so both go through
// validation.ValidateStruct.

package api

import "github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"

// WorkflowRequest gets or creates a detection workflow.
type WorkflowRequest struct {
	StackID       int64   `json:"stack_id" validate:"gt=0"`
	DetectionHash string  `json:"detection_hash" validate:"required,hashcode"`
	TileHeightPx  int     `json:"tile_height_px" validate:"gt=0,lte=65536"`
	TileWidthPx   int     `json:"tile_width_px" validate:"gt=0,lte=65536"`
	Notes         *string `json:"notes" validate:"omitempty,max=2000"`
}

// UndetectedTilesRequest filters candidate tiles down to those not yet
// processed by a workflow.
type UndetectedTilesRequest struct {
	WorkflowID int64              `json:"workflow_id" validate:"gt=0"`
	TileIdxs   []models.TileIndex `json:"tile_idxs" validate:"max=100000"`
}

// InsertSlicesRequest carries every detection of one tile.
type InsertSlicesRequest struct {
	WorkflowID    int64              `json:"workflow_id" validate:"gt=0"`
	XIdx          *int               `json:"x_idx" validate:"required,gte=0"`
	YIdx          *int               `json:"y_idx" validate:"required,gte=0"`
	ZIdx          *int               `json:"z_idx" validate:"required,gte=0"`
	SynapseSlices []models.Detection `json:"synapse_slices" validate:"dive"`
	Tolerance     *float64           `json:"tolerance" validate:"omitempty,gte=0"`
}

// AgglomerateRequest seeds an agglomeration run. An empty list only sweeps
// orphaned objects.
type AgglomerateRequest struct {
	SliceIDs []models.SliceID `json:"slice_ids" validate:"max=100000,dive,gt=0"`
}

// ProjectWorkflowRequest gets or creates an association context.
type ProjectWorkflowRequest struct {
	WorkflowID      int64   `json:"workflow_id" validate:"gt=0"`
	AssociationHash string  `json:"association_hash" validate:"required,hashcode"`
	Notes           *string `json:"notes" validate:"omitempty,max=2000"`
}

// SkeletonRequest selects a skeleton and, optionally, an association
// context. Without project_workflow_id the newest context of workflow_id
// (or of the project) is used.
type SkeletonRequest struct {
	SkeletonID        int64  `json:"skid" validate:"gt=0"`
	WorkflowID        *int64 `json:"workflow_id" validate:"omitempty,gt=0"`
	ProjectWorkflowID *int64 `json:"project_workflow_id" validate:"omitempty,gt=0"`
}

// AddAssociationsRequest records slice/treenode contacts.
type AddAssociationsRequest struct {
	ProjectWorkflowID int64                `json:"project_workflow_id" validate:"gt=0"`
	Associations      []models.Association `json:"associations" validate:"max=100000,dive"`
}

// WorkflowInfoRequest lists workflows of a project.
type WorkflowInfoRequest struct {
	StackID *int64 `json:"stack_id" validate:"omitempty,gt=0"`
}

// ExtentsRequest asks for padded bounding boxes of synapse objects.
type ExtentsRequest struct {
	WorkflowID int64             `json:"workflow_id" validate:"gt=0"`
	ObjectIDs  []models.ObjectID `json:"synapse_object_ids" validate:"required,min=1,max=10000,dive,gt=0"`
	XYPadding  *float64          `json:"xy_padding" validate:"omitempty,gte=0"`
	ZPadding   *int              `json:"z_padding" validate:"omitempty,gte=0"`
}

// IntersectingConnectorsRequest finds connectors near synapse objects.
type IntersectingConnectorsRequest struct {
	WorkflowID int64             `json:"workflow_id" validate:"gt=0"`
	ObjectIDs  []models.ObjectID `json:"synapse_object_ids" validate:"required,min=1,max=10000,dive,gt=0"`
	Tolerance  float64           `json:"tolerance" validate:"gte=0"`
}

// SlicesDetailRequest lists slice associations for skeletons.
type SlicesDetailRequest struct {
	WorkflowID  int64   `json:"workflow_id" validate:"gt=0"`
	SkeletonIDs []int64 `json:"skeleton_ids" validate:"required,min=1,max=10000,dive,gt=0"`
}

// SampleRequest draws a reproducible treenode sample.
type SampleRequest struct {
	Count int    `json:"count" validate:"gte=0"`
	Seed  *int64 `json:"seed"`
}

// LabelRequest looks up treenodes by label name.
type LabelRequest struct {
	Tags []string `json:"tags" validate:"required,min=1,max=1000,dive,required,max=255"`
}
