// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package api

import (
	"net/http"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// ProjectWorkflow gets or creates the association context of a project,
// detection workflow and association algorithm.
//
// GET /api/v1/treenode-association/{project_id}/workflow?workflow_id=&association_hash=[&notes=]
func (h *Handler) ProjectWorkflow(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	req := ProjectWorkflowRequest{AssociationHash: r.URL.Query().Get("association_hash")}
	wfID, err := queryInt64(r, "workflow_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if wfID != nil {
		req.WorkflowID = *wfID
	}
	if notes := r.URL.Query().Get("notes"); notes != "" {
		req.Notes = &notes
	}
	if err := validated(&req); err != nil {
		respondError(w, r, err)
		return
	}

	pw, err := h.store.GetOrCreateProjectWorkflow(r.Context(), pid, req.WorkflowID, req.AssociationHash, req.Notes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, pw)
}

// parseSkeletonRequest reads skid, workflow_id and project_workflow_id.
func parseSkeletonRequest(r *http.Request) (SkeletonRequest, error) {
	var req SkeletonRequest
	skid, err := queryInt64(r, "skid")
	if err != nil {
		return req, err
	}
	if skid != nil {
		req.SkeletonID = *skid
	}
	if req.WorkflowID, err = queryInt64(r, "workflow_id"); err != nil {
		return req, err
	}
	if req.ProjectWorkflowID, err = queryInt64(r, "project_workflow_id"); err != nil {
		return req, err
	}
	return req, validated(&req)
}

// resolveContext parses the skeleton request and resolves its association
// context.
func (h *Handler) resolveContext(r *http.Request) (int64, SkeletonRequest, models.ProjectWorkflow, error) {
	pid, err := projectID(r)
	if err != nil {
		return 0, SkeletonRequest{}, models.ProjectWorkflow{}, err
	}
	req, err := parseSkeletonRequest(r)
	if err != nil {
		return 0, req, models.ProjectWorkflow{}, err
	}
	pw, err := h.store.ResolveProjectWorkflow(r.Context(), pid, req.WorkflowID, req.ProjectWorkflowID)
	return pid, req, pw, err
}

// TreenodeAssociations returns [treenode_id, synapse_object_id, contact_px]
// rows for a skeleton, contact areas summed per treenode and object.
//
// GET /api/v1/treenode-association/{project_id}/get?skid=[&project_workflow_id=|&workflow_id=]
func (h *Handler) TreenodeAssociations(w http.ResponseWriter, r *http.Request) {
	_, req, pw, err := h.resolveContext(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	assoc, err := h.store.TreenodeAssociations(r.Context(), pw.ID, req.SkeletonID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rows := make([][3]int64, len(assoc))
	for i, a := range assoc {
		rows[i] = [3]int64{a.TreenodeID, int64(a.ObjectID), a.ContactPx}
	}
	WriteSuccess(w, r, rows)
}

// UnassociatedTreenodes lists the skeleton's treenodes with no association
// row in the context yet.
//
// GET /api/v1/treenode-association/{project_id}/unassociated?skid=[&project_workflow_id=|&workflow_id=]
func (h *Handler) UnassociatedTreenodes(w http.ResponseWriter, r *http.Request) {
	pid, req, pw, err := h.resolveContext(r)
	if err != nil {
		respondError(w, r, err)
		return
	}

	ids, err := h.store.UnassociatedTreenodes(r.Context(), pid, pw.ID, req.SkeletonID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if ids == nil {
		ids = []int64{}
	}
	WriteSuccess(w, r, ids)
}

// AddAssociations records slice/treenode contacts. Repeated rows accumulate.
//
// POST /api/v1/treenode-association/{project_id}/add
func (h *Handler) AddAssociations(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req AddAssociationsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	// The context must belong to the project in the path.
	if _, err := h.store.ResolveProjectWorkflow(r.Context(), pid, nil, &req.ProjectWorkflowID); err != nil {
		respondError(w, r, err)
		return
	}

	n, err := h.store.AddAssociations(r.Context(), req.ProjectWorkflowID, req.Associations)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(map[string]interface{}{
		"project_workflow_id": req.ProjectWorkflowID,
		"added":               n,
	})
}
