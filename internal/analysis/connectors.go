// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/twpayne/go-geos"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/geometry"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// ErrNegativeTolerance rejects a negative intersection tolerance.
var ErrNegativeTolerance = errors.New("tolerance must not be negative")

// projectSlice is a slice hull moved into project space. Its section
// occupies z in [Z-HalfDepth, Z+HalfDepth].
type projectSlice struct {
	objectID  models.ObjectID
	hull      *geos.Geom
	box       geometry.Box
	z         float64
	halfDepth float64
}

// IntersectingConnectors finds connectors lying within tolerance (project
// units) of any slice of the given objects. A connector matches when its own
// location, or any edge to a linked treenode, passes within tolerance of a
// slice hull in that slice's section.
func (s *Service) IntersectingConnectors(ctx context.Context, projectID, workflowID int64, objectIDs []models.ObjectID, tolerance float64) ([]models.ConnectorIntersection, error) {
	if tolerance < 0 {
		return nil, ErrNegativeTolerance
	}
	geoms, err := s.objectGeometries(ctx, workflowID, objectIDs)
	if err != nil || len(geoms) == 0 {
		return []models.ConnectorIntersection{}, err
	}
	transform, err := s.workflowTransform(ctx, projectID, workflowID)
	if err != nil {
		return nil, err
	}

	sections, box, err := toProject(geoms, transform, tolerance)
	if err != nil {
		return nil, err
	}
	edges, err := s.store.ConnectorEdges(ctx, projectID, box)
	if err != nil {
		return nil, fmt.Errorf("connector edges: %w", err)
	}
	return matchConnectors(sections, edges, tolerance)
}

// toProject transforms slice hulls and returns the search box around them.
func toProject(geoms []models.SliceGeometry, t models.StackTransform, tolerance float64) ([]projectSlice, models.ProjectBox, error) {
	affine := geometry.Affine(t.ResolutionX, t.ResolutionY, t.TranslationX, t.TranslationY)
	halfDepth := math.Abs(t.ResolutionZ) / 2

	out := make([]projectSlice, 0, len(geoms))
	var all geometry.Box
	var zMin, zMax float64
	for i, g := range geoms {
		hull, err := geometry.ParseWKT(g.HullWKT)
		if err != nil {
			return nil, models.ProjectBox{}, fmt.Errorf("slice %d: %w", g.SliceID, err)
		}
		moved, err := geometry.Transform(hull, affine)
		if err != nil {
			return nil, models.ProjectBox{}, fmt.Errorf("slice %d: %w", g.SliceID, err)
		}
		b, err := geometry.Bounds(moved)
		if err != nil {
			return nil, models.ProjectBox{}, err
		}
		_, _, z := t.ToProject(0, 0, float64(g.Z))
		out = append(out, projectSlice{objectID: g.ObjectID, hull: moved, box: b, z: z, halfDepth: halfDepth})

		if i == 0 {
			all, zMin, zMax = b, z, z
		} else {
			all = all.Union(b)
			zMin, zMax = min(zMin, z), max(zMax, z)
		}
	}

	all = all.Pad(tolerance)
	return out, models.ProjectBox{
		XMin: all.MinX, XMax: all.MaxX,
		YMin: all.MinY, YMax: all.MaxY,
		ZMin: zMin - halfDepth, ZMax: zMax + halfDepth,
	}, nil
}

type hitKey struct {
	objectID    models.ObjectID
	connectorID int64
}

func matchConnectors(sections []projectSlice, edges []models.ConnectorEdge, tolerance float64) ([]models.ConnectorIntersection, error) {
	linked := make(map[int64]map[int64]struct{})
	for _, e := range edges {
		if _, ok := linked[e.ConnectorID]; !ok {
			linked[e.ConnectorID] = make(map[int64]struct{})
		}
		if e.TreenodeID != nil {
			linked[e.ConnectorID][*e.TreenodeID] = struct{}{}
		}
	}

	hits := make(map[hitKey]models.ConnectorIntersection)
	for _, sec := range sections {
		for _, e := range edges {
			key := hitKey{sec.objectID, e.ConnectorID}
			if _, done := hits[key]; done {
				continue
			}
			ok, err := edgeTouches(sec, e, tolerance)
			if err != nil {
				return nil, fmt.Errorf("connector %d: %w", e.ConnectorID, err)
			}
			if ok {
				hits[key] = models.ConnectorIntersection{
					ObjectID:    sec.objectID,
					ConnectorID: e.ConnectorID,
					X:           e.CX, Y: e.CY, Z: e.CZ,
					TreenodeIDs: sortedKeys(linked[e.ConnectorID]),
				}
			}
		}
	}

	out := make([]models.ConnectorIntersection, 0, len(hits))
	for _, h := range hits {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ObjectID != out[j].ObjectID {
			return out[i].ObjectID < out[j].ObjectID
		}
		return out[i].ConnectorID < out[j].ConnectorID
	})
	return out, nil
}

// edgeTouches tests the connector, and its edge to the treenode when
// present, against one section.
func edgeTouches(sec projectSlice, e models.ConnectorEdge, tolerance float64) (bool, error) {
	lo, hi := sec.z-sec.halfDepth, sec.z+sec.halfDepth
	cIn := e.CZ >= lo && e.CZ <= hi

	near := sec.box.Pad(tolerance)
	if cIn && pointInBox(near, e.CX, e.CY) {
		p, err := geometry.Point(e.CX, e.CY)
		if err != nil {
			return false, err
		}
		if ok, err := geometry.WithinDistance(sec.hull, p, tolerance); err != nil || ok {
			return ok, err
		}
	}
	if e.TreenodeID == nil {
		return false, nil
	}

	tIn := e.TZ >= lo && e.TZ <= hi
	var probe *geos.Geom
	var err error
	switch {
	case cIn && tIn:
		if !near.Intersects(segmentBox(e.CX, e.CY, e.TX, e.TY)) {
			return false, nil
		}
		probe, err = geometry.Segment(e.CX, e.CY, e.TX, e.TY)
	case e.CZ != e.TZ && (e.CZ-sec.z)*(e.TZ-sec.z) <= 0:
		frac := (sec.z - e.CZ) / (e.TZ - e.CZ)
		x := e.CX + frac*(e.TX-e.CX)
		y := e.CY + frac*(e.TY-e.CY)
		if !pointInBox(near, x, y) {
			return false, nil
		}
		probe, err = geometry.Point(x, y)
	default:
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return geometry.WithinDistance(sec.hull, probe, tolerance)
}

func pointInBox(b geometry.Box, x, y float64) bool {
	return x >= b.MinX && x <= b.MaxX && y >= b.MinY && y <= b.MaxY
}

func segmentBox(x1, y1, x2, y2 float64) geometry.Box {
	return geometry.Box{MinX: min(x1, x2), MinY: min(y1, y2), MaxX: max(x1, x2), MaxY: max(y1, y2)}
}
