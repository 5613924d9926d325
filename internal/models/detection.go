// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package models

import (
	"fmt"

	"github.com/goccy/go-json"
)

// TileIndex is a tile position within a workflow. It marshals as [x, y, z].
type TileIndex struct {
	X int
	Y int
	Z int
}

// MarshalJSON encodes the index as a three-element array.
func (t TileIndex) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{t.X, t.Y, t.Z})
}

// UnmarshalJSON decodes a three-element array.
func (t *TileIndex) UnmarshalJSON(data []byte) error {
	var xyz []int
	if err := json.Unmarshal(data, &xyz); err != nil {
		return fmt.Errorf("tile index must be [x, y, z]: %w", err)
	}
	if len(xyz) != 3 {
		return fmt.Errorf("tile index must have 3 elements, got %d", len(xyz))
	}
	t.X, t.Y, t.Z = xyz[0], xyz[1], xyz[2]
	return nil
}

// Adjacent reports whether o lies in the 3x3x3 neighbourhood of t
// (including t itself).
func (t TileIndex) Adjacent(o TileIndex) bool {
	return abs(t.X-o.X) <= 1 && abs(t.Y-o.Y) <= 1 && abs(t.Z-o.Z) <= 1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// MissingTiles returns the candidates absent from detected, in candidate
// order and without repeats.
func MissingTiles(detected, candidates []TileIndex) []TileIndex {
	seen := make(map[TileIndex]struct{}, len(detected)+len(candidates))
	for _, t := range detected {
		seen[t] = struct{}{}
	}
	out := make([]TileIndex, 0, len(candidates))
	for _, t := range candidates {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// TileKey identifies a tile globally.
type TileKey struct {
	WorkflowID int64
	TileIndex
}

// Detection is one 2D synapse cross-section reported by the detector for a
// tile. Exactly one of WKT and GeoJSON is expected.
type Detection struct {
	ID          ExternalID      `json:"id" validate:"required"`
	WKT         string          `json:"wkt_str,omitempty"`
	GeoJSON     json.RawMessage `json:"geometry,omitempty"`
	XSCentroid  float64         `json:"xs_centroid"`
	YSCentroid  float64         `json:"ys_centroid"`
	SizePx      int64           `json:"size_px" validate:"gte=0"`
	Uncertainty *float64        `json:"uncertainty,omitempty"`
}

// SliceRecord is a detection whose geometry has been reduced to the stored
// 2D convex hull.
type SliceRecord struct {
	ExternalID  ExternalID
	HullWKT     string
	XSCentroid  float64
	YSCentroid  float64
	SizePx      int64
	Uncertainty *float64
}

// TileSize is the pixel size of tiles in a tiling.
type TileSize struct {
	HeightPx int `json:"height_px"`
	WidthPx  int `json:"width_px"`
}

// Workflow is a tiling of one stack processed by one detection algorithm.
type Workflow struct {
	ID                   int64    `json:"workflow_id"`
	StackID              int64    `json:"stack_id"`
	DetectionAlgorithmID int64    `json:"detection_algorithm_id"`
	TileSize             TileSize `json:"tile_size"`
}

// AgglomerationResult is the outcome of one agglomeration run.
type AgglomerationResult struct {
	Mappings map[SliceID]ObjectID `json:"slice_object_mappings"`
	Deleted  []ObjectID           `json:"deleted_objects"`
}

// NewAgglomerationResult returns a result with non-nil members so that an
// empty run encodes as {} and [] rather than null.
func NewAgglomerationResult() *AgglomerationResult {
	return &AgglomerationResult{
		Mappings: make(map[SliceID]ObjectID),
		Deleted:  []ObjectID{},
	}
}

// Survivors returns the distinct objects the touched slices now map to,
// ascending.
func (r *AgglomerationResult) Survivors() []ObjectID {
	seen := make(map[ObjectID]struct{}, len(r.Mappings))
	out := make([]ObjectID, 0)
	for _, obj := range r.Mappings {
		if _, ok := seen[obj]; ok {
			continue
		}
		seen[obj] = struct{}{}
		out = append(out, obj)
	}
	return SortObjectIDs(out)
}
