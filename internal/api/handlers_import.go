// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package api

import (
	"net/http"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// ImportAnnotations upserts mirrored host tables (stacks, treenodes,
// connectors, links, labels) for one project. Cached stack transforms are
// dropped afterwards so new resolutions take effect immediately.
//
// POST /api/v1/annotations/{project_id}/import
func (h *Handler) ImportAnnotations(w http.ResponseWriter, r *http.Request) {
	pid, err := projectID(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	var req models.AnnotationImport
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	summary, err := h.store.ImportAnnotations(r.Context(), pid, &req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if summary.Stacks > 0 {
		h.analysis.InvalidateTransforms()
	}

	logging.Ctx(r.Context()).Info().
		Int64("project_id", pid).
		Int("stacks", summary.Stacks).
		Int("treenodes", summary.Treenodes).
		Int("connectors", summary.Connectors).
		Int("links", summary.Links).
		Int("labels", summary.Labels).
		Msg("Imported annotations")
	WriteSuccess(w, r, summary)
}
