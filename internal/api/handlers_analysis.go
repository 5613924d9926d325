// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package api

import (
	"net/http"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// rowser is a result row with a fixed column order.
type rowser interface {
	Row() []interface{}
}

func table[T rowser](columns []string, rows []T) models.Table {
	data := make([][]interface{}, len(rows))
	for i, row := range rows {
		data[i] = row.Row()
	}
	return models.Table{Columns: columns, Data: data}
}

// WorkflowInfo lists the project's detection workflows and association
// contexts with their algorithm metadata.
//
// GET /api/v1/analysis/{project_id}/workflow-info[?stack_id=]
func (h *Handler) WorkflowInfo(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req WorkflowInfoRequest
	if req.StackID, err = queryInt64(r, "stack_id"); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validated(&req); err != nil {
		respondError(w, r, err)
		return
	}

	infos, err := h.analysis.WorkflowInfo(r.Context(), pid, req.StackID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if infos == nil {
		infos = []models.WorkflowInfo{}
	}
	WriteSuccess(w, r, infos)
}

// SkeletonSynapsesResponse is a per-object summary table plus the
// association context it was computed under.
type SkeletonSynapsesResponse struct {
	ProjectWorkflowID int64 `json:"project_workflow_id"`
	WorkflowID        int64 `json:"workflow_id"`
	models.Table
}

// SkeletonSynapses summarises every synapse object a skeleton touches.
//
// GET /api/v1/analysis/{project_id}/skeleton-synapses?skid=[&workflow_id=&project_workflow_id=]
func (h *Handler) SkeletonSynapses(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	req, err := parseSkeletonRequest(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	pw, synapses, err := h.analysis.SkeletonSynapses(r.Context(), pid, req.SkeletonID, req.WorkflowID, req.ProjectWorkflowID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, SkeletonSynapsesResponse{
		ProjectWorkflowID: pw.ID,
		WorkflowID:        pw.WorkflowID,
		Table:             table(models.SkeletonSynapseColumns, synapses),
	})
}

// SynapseExtents returns padded bounding boxes of synapse objects.
//
// POST /api/v1/analysis/{project_id}/synapse-extents
func (h *Handler) SynapseExtents(w http.ResponseWriter, r *http.Request) {
	if _, err := projectID(r); err != nil {
		respondError(w, r, err)
		return
	}
	var req ExtentsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	extents, err := h.analysis.SynapseExtents(r.Context(), req.WorkflowID, req.ObjectIDs, req.XYPadding, req.ZPadding)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, extents)
}

// IntersectingConnectors finds connectors whose location or treenode edges
// fall within tolerance of a synapse object's slices.
//
// POST /api/v1/analysis/{project_id}/intersecting-connectors
func (h *Handler) IntersectingConnectors(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req IntersectingConnectorsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	hits, err := h.analysis.IntersectingConnectors(r.Context(), pid, req.WorkflowID, req.ObjectIDs, req.Tolerance)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, table(models.ConnectorIntersectionColumns, hits))
}

// SlicesDetail lists slice/treenode association rows for skeletons.
//
// GET /api/v1/analysis/{project_id}/slices-detail?workflow_id=&skeleton_ids=1,2
func (h *Handler) SlicesDetail(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req SlicesDetailRequest
	wfID, err := queryInt64(r, "workflow_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if wfID != nil {
		req.WorkflowID = *wfID
	}
	if req.SkeletonIDs, err = queryInt64List(r, "skeleton_ids"); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validated(&req); err != nil {
		respondError(w, r, err)
		return
	}

	rows, err := h.analysis.SliceDetails(r.Context(), pid, req.WorkflowID, req.SkeletonIDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, table(models.SliceDetailColumns, rows))
}
