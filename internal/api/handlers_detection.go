// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package api

import (
	"fmt"
	"net/http"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// DetectionWorkflow gets or creates the workflow for a stack, tile size and
// detection algorithm.
//
// GET /api/v1/synapse-detection/workflow?stack_id=&detection_hash=[&tile_height_px=&tile_width_px=&notes=]
func (h *Handler) DetectionWorkflow(w http.ResponseWriter, r *http.Request) {
	req := WorkflowRequest{
		DetectionHash: r.URL.Query().Get("detection_hash"),
	}
	stackID, err := queryInt64(r, "stack_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if stackID != nil {
		req.StackID = *stackID
	}
	if req.TileHeightPx, err = queryInt(r, "tile_height_px", h.config.Detection.DefaultTileSize); err != nil {
		respondError(w, r, err)
		return
	}
	if req.TileWidthPx, err = queryInt(r, "tile_width_px", h.config.Detection.DefaultTileSize); err != nil {
		respondError(w, r, err)
		return
	}
	if notes := r.URL.Query().Get("notes"); notes != "" {
		req.Notes = &notes
	}
	if err := validated(&req); err != nil {
		respondError(w, r, err)
		return
	}

	wf, err := h.store.GetOrCreateWorkflow(r.Context(), req.StackID,
		models.TileSize{HeightPx: req.TileHeightPx, WidthPx: req.TileWidthPx}, req.DetectionHash, req.Notes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, wf)
}

// DetectedTiles lists the tile indices a workflow has already processed.
//
// GET /api/v1/synapse-detection/tiles/detected?workflow_id=
func (h *Handler) DetectedTiles(w http.ResponseWriter, r *http.Request) {
	workflowID, err := queryInt64(r, "workflow_id")
	if err != nil {
		respondError(w, r, err)
		return
	}
	if workflowID == nil || *workflowID <= 0 {
		respondError(w, r, invalidParam("workflow_id", "required", "workflow_id is required"))
		return
	}

	tiles, err := h.store.DetectedTiles(r.Context(), *workflowID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, tiles)
}

// UndetectedTiles filters candidate tiles down to those without a tile row.
//
// POST /api/v1/synapse-detection/tiles/undetected
func (h *Handler) UndetectedTiles(w http.ResponseWriter, r *http.Request) {
	var req UndetectedTilesRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	tiles, err := h.store.UndetectedTiles(r.Context(), req.WorkflowID, req.TileIdxs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	WriteSuccess(w, r, tiles)
}

// InsertSynapseSlices stores one tile's detections and returns the new
// slice id for every external id. It does not agglomerate.
//
// POST /api/v1/synapse-detection/tiles/insert-synapse-slices
func (h *Handler) InsertSynapseSlices(w http.ResponseWriter, r *http.Request) {
	var req InsertSlicesRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	tile := models.TileKey{
		WorkflowID: req.WorkflowID,
		TileIndex:  models.TileIndex{X: *req.XIdx, Y: *req.YIdx, Z: *req.ZIdx},
	}
	ids, err := h.ingest.InsertSlices(r.Context(), tile, req.SynapseSlices, req.Tolerance)
	if err != nil {
		respondError(w, r, err)
		return
	}
	NewResponseWriter(w, r).Created(ids)
}

// AgglomerateSlices merges the given slices with their neighbours into
// synapse objects.
//
// POST /api/v1/synapse-detection/slices/agglomerate
func (h *Handler) AgglomerateSlices(w http.ResponseWriter, r *http.Request) {
	var req AgglomerateRequest
	if err := decodeAndValidate(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if limit := h.config.Detection.MaxSeeds; limit > 0 && len(req.SliceIDs) > limit {
		respondError(w, r, invalidParam("slice_ids", "max",
			fmt.Sprintf("slice_ids must contain at most %d items", limit)))
		return
	}

	result, err := h.engine.Agglomerate(r.Context(), req.SliceIDs)
	if err != nil {
		respondError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Debug().
		Int("mappings", len(result.Mappings)).
		Int("deleted", len(result.Deleted)).
		Msg("Agglomeration request served")
	WriteSuccess(w, r, result)
}
