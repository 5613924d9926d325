// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// SynapseExtents returns the padded stack-space bounding box of each
// object. Nil paddings fall back to the configured defaults. Every
// requested object must exist in the workflow.
func (s *Service) SynapseExtents(ctx context.Context, workflowID int64, objectIDs []models.ObjectID, xyPadding *float64, zPadding *int) ([]models.ObjectExtent, error) {
	xyPad := s.opts.DefaultXYPadding
	if xyPadding != nil {
		xyPad = *xyPadding
	}
	zPad := s.opts.DefaultZPadding
	if zPadding != nil {
		zPad = *zPadding
	}

	geoms, err := s.objectGeometries(ctx, workflowID, objectIDs)
	if err != nil {
		return nil, err
	}
	return Extents(geoms, xyPad, zPad), nil
}

// objectGeometries fetches member slices and fails when an object has none.
func (s *Service) objectGeometries(ctx context.Context, workflowID int64, objectIDs []models.ObjectID) ([]models.SliceGeometry, error) {
	if len(objectIDs) == 0 {
		return nil, nil
	}
	geoms, err := s.store.SliceGeometries(ctx, workflowID, objectIDs)
	if err != nil {
		return nil, fmt.Errorf("slice geometries: %w", err)
	}
	found := make(map[models.ObjectID]bool, len(objectIDs))
	for _, g := range geoms {
		found[g.ObjectID] = true
	}
	var missing []models.ObjectID
	for _, id := range objectIDs {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w in workflow %d: %v", models.ErrObjectNotFound, workflowID, models.SortObjectIDs(missing))
	}
	return geoms, nil
}

// Extents folds slice bounds into one box per object, ordered by object id.
func Extents(geoms []models.SliceGeometry, xyPad float64, zPad int) []models.ObjectExtent {
	byObject := make(map[models.ObjectID]*models.ObjectExtent)
	var order []models.ObjectID
	for _, g := range geoms {
		e, ok := byObject[g.ObjectID]
		if !ok {
			e = &models.ObjectExtent{
				ObjectID: g.ObjectID,
				XMin:     g.XMin, XMax: g.XMax,
				YMin: g.YMin, YMax: g.YMax,
				ZMin: g.Z, ZMax: g.Z,
			}
			byObject[g.ObjectID] = e
			order = append(order, g.ObjectID)
		}
		e.XMin = min(e.XMin, g.XMin)
		e.XMax = max(e.XMax, g.XMax)
		e.YMin = min(e.YMin, g.YMin)
		e.YMax = max(e.YMax, g.YMax)
		e.ZMin = min(e.ZMin, g.Z)
		e.ZMax = max(e.ZMax, g.Z)
		e.SliceIDs = append(e.SliceIDs, g.SliceID)
	}

	models.SortObjectIDs(order)
	out := make([]models.ObjectExtent, 0, len(order))
	for _, id := range order {
		e := byObject[id]
		e.XMin -= xyPad
		e.XMax += xyPad
		e.YMin -= xyPad
		e.YMax += xyPad
		e.ZMin -= zPad
		e.ZMax += zPad
		sort.Slice(e.SliceIDs, func(i, j int) bool { return e.SliceIDs[i] < e.SliceIDs[j] })
		out = append(out, *e)
	}
	return out
}
