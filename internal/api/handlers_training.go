// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package api

import "net/http"

// SampleTreenodes draws a reproducible random sample of the project's
// treenodes in project coordinates.
//
// GET /api/v1/training-data/{project_id}/sample-treenodes[?count=&seed=]
func (h *Handler) SampleTreenodes(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req SampleRequest
	if req.Count, err = queryInt(r, "count", 0); err != nil {
		respondError(w, r, err)
		return
	}
	if req.Seed, err = queryInt64(r, "seed"); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validated(&req); err != nil {
		respondError(w, r, err)
		return
	}

	sample, err := h.analysis.SampleTreenodes(r.Context(), pid, req.Count, req.Seed)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, sample)
}

// TreenodesByLabel returns [tag, treenode_id, x, y, z] rows for treenodes
// carrying any of the requested labels.
//
// GET /api/v1/training-data/{project_id}/treenodes-by-label?tags=a&tags=b
func (h *Handler) TreenodesByLabel(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	// Label names may contain commas, so only repeated parameters are split.
	req := LabelRequest{Tags: queryStrings(r, "tags")}
	if err := validated(&req); err != nil {
		respondError(w, r, err)
		return
	}

	tbl, err := h.analysis.TreenodesByLabel(r.Context(), pid, req.Tags)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, tbl)
}
