// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// StackTransform returns the stack→project transform of a stack in a project.
func (s *Store) StackTransform(_ context.Context, projectID, stackID int64) (models.StackTransform, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ps, ok := s.projectStacks[[2]int64{projectID, stackID}]
	if !ok {
		return models.StackTransform{}, fmt.Errorf("%w: stack %d, project %d", models.ErrStackNotFound, stackID, projectID)
	}
	st := s.stacks[stackID]
	ps.ResolutionX, ps.ResolutionY, ps.ResolutionZ = st.ResolutionX, st.ResolutionY, st.ResolutionZ
	return ps.Transform(), nil
}

func algorithmByID(table map[string]algorithm, id int64) algorithm {
	for _, a := range table {
		if a.id == id {
			return a
		}
	}
	return algorithm{}
}

// WorkflowInfo lists the project's workflow pairs, optionally for one stack.
func (s *Store) WorkflowInfo(_ context.Context, projectID int64, stackID *int64) ([]models.WorkflowInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.WorkflowInfo
	for _, pw := range s.projectWorkflows {
		if pw.ProjectID != projectID {
			continue
		}
		wf := s.workflows[pw.WorkflowID]
		if stackID != nil && wf.StackID != *stackID {
			continue
		}
		det := algorithmByID(s.detectionAlgo, wf.DetectionAlgorithmID)
		assoc := algorithmByID(s.associationAlgo, pw.AssociationAlgorithmID)
		out = append(out, models.WorkflowInfo{
			WorkflowID:               wf.ID,
			StackID:                  wf.StackID,
			DetectionAlgorithmID:     det.id,
			DetectionAlgorithmHash:   det.hash,
			DetectionAlgorithmDate:   det.date,
			DetectionAlgorithmNote:   det.notes,
			ProjectWorkflowID:        pw.ID,
			AssociationAlgorithmID:   assoc.id,
			AssociationAlgorithmHash: assoc.hash,
			AssociationAlgorithmDate: assoc.date,
			AssociationAlgorithmNote: assoc.notes,
			TileHeightPx:             wf.TileSize.HeightPx,
			TileWidthPx:              wf.TileSize.WidthPx,
		})
	}
	return out, nil
}

// SkeletonContacts returns one row per mapped (slice, treenode) contact of
// a skeleton in the context.
func (s *Store) SkeletonContacts(_ context.Context, projectWorkflowID, skeletonID int64) ([]models.SkeletonContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SkeletonContact
	for _, c := range s.contacts {
		if c.projectWorkflowID != projectWorkflowID || c.sliceID == nil {
			continue
		}
		tn, ok := s.treenodes[c.treenodeID]
		if !ok || tn.SkeletonID != skeletonID {
			continue
		}
		obj, ok := s.mappings[*c.sliceID]
		if !ok {
			continue
		}
		sl := s.slices[*c.sliceID]
		out = append(out, models.SkeletonContact{
			ObjectID:    obj,
			SliceID:     sl.id,
			TreenodeID:  c.treenodeID,
			XSCentroid:  sl.xs,
			YSCentroid:  sl.ys,
			Z:           sl.tile.Z,
			SizePx:      sl.sizePx,
			Uncertainty: sl.uncertainty,
			ContactPx:   c.contactPx,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ObjectID != b.ObjectID {
			return a.ObjectID < b.ObjectID
		}
		if a.SliceID != b.SliceID {
			return a.SliceID < b.SliceID
		}
		return a.TreenodeID < b.TreenodeID
	})
	return out, nil
}

// SliceGeometries returns the slices of the given objects in the workflow.
func (s *Store) SliceGeometries(_ context.Context, workflowID int64, objectIDs []models.ObjectID) ([]models.SliceGeometry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.SliceGeometry
	for _, obj := range models.SortObjectIDs(slices.Clone(objectIDs)) {
		members := make([]models.SliceID, 0, len(s.objects[obj]))
		for id := range s.objects[obj] {
			members = append(members, id)
		}
		for _, id := range models.SortSliceIDs(members) {
			sl := s.slices[id]
			if sl.tile.WorkflowID != workflowID {
				continue
			}
			out = append(out, models.SliceGeometry{
				ObjectID: obj,
				SliceID:  id,
				Z:        sl.tile.Z,
				XMin:     sl.box.MinX, XMax: sl.box.MaxX,
				YMin: sl.box.MinY, YMax: sl.box.MaxY,
				HullWKT: sl.hullWKT,
			})
		}
	}
	return out, nil
}

// SliceDetails returns one row per slice–treenode association of skeletons
// under any association algorithm of the workflow in the project. A slice
// repeats when it has several associations.
func (s *Store) SliceDetails(_ context.Context, projectID, workflowID int64, skeletonIDs []int64) ([]models.SliceDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[int64]struct{}, len(skeletonIDs))
	for _, id := range skeletonIDs {
		wanted[id] = struct{}{}
	}
	var out []models.SliceDetail
	for _, c := range s.contacts {
		if c.sliceID == nil {
			continue
		}
		pw := s.projectWorkflows[c.projectWorkflowID]
		if pw.ProjectID != projectID || pw.WorkflowID != workflowID {
			continue
		}
		tn, ok := s.treenodes[c.treenodeID]
		if !ok {
			continue
		}
		if _, ok := wanted[tn.SkeletonID]; !ok {
			continue
		}
		obj, ok := s.mappings[*c.sliceID]
		if !ok {
			continue
		}
		sl := s.slices[*c.sliceID]
		out = append(out, models.SliceDetail{
			SliceID: sl.id, ObjectID: obj, TreenodeID: tn.ID, SkeletonID: tn.SkeletonID,
			XS: sl.xs, YS: sl.ys, Z: sl.tile.Z, SizePx: sl.sizePx, Uncertainty: sl.uncertainty,
		})
	}
	return out, nil
}

func inRange(v, lo, hi float64) bool { return v >= lo && v <= hi }

func spans(a, b, lo, hi float64) bool { return min(a, b) <= hi && max(a, b) >= lo }

// ConnectorEdges returns every edge of connectors located in the box or
// with an edge whose bounding box overlaps it.
func (s *Store) ConnectorEdges(_ context.Context, projectID int64, box models.ProjectBox) ([]models.ConnectorEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byConnector := make(map[int64][]int64)
	for _, l := range s.links {
		if l.projectID != projectID {
			continue
		}
		byConnector[l.ConnectorID] = append(byConnector[l.ConnectorID], l.TreenodeID)
	}

	var out []models.ConnectorEdge
	for id, c := range s.connectors {
		if c.projectID != projectID {
			continue
		}
		var edges []models.ConnectorEdge
		hit := inRange(c.X, box.XMin, box.XMax) && inRange(c.Y, box.YMin, box.YMax) && inRange(c.Z, box.ZMin, box.ZMax)
		for _, tid := range byConnector[id] {
			e := models.ConnectorEdge{ConnectorID: id, CX: c.X, CY: c.Y, CZ: c.Z}
			if tn, ok := s.treenodes[tid]; ok {
				treenodeID := tid
				e.TreenodeID = &treenodeID
				e.TX, e.TY, e.TZ = tn.X, tn.Y, tn.Z
				hit = hit || (spans(c.X, tn.X, box.XMin, box.XMax) &&
					spans(c.Y, tn.Y, box.YMin, box.YMax) &&
					spans(c.Z, tn.Z, box.ZMin, box.ZMax))
			}
			edges = append(edges, e)
		}
		if !hit {
			continue
		}
		if len(edges) == 0 {
			edges = append(edges, models.ConnectorEdge{ConnectorID: id, CX: c.X, CY: c.Y, CZ: c.Z})
		}
		out = append(out, edges...)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ConnectorID != b.ConnectorID {
			return a.ConnectorID < b.ConnectorID
		}
		switch {
		case a.TreenodeID == nil:
			return false
		case b.TreenodeID == nil:
			return true
		default:
			return *a.TreenodeID < *b.TreenodeID
		}
	})
	return out, nil
}

// TreenodeIDs lists every treenode of a project, ascending.
func (s *Store) TreenodeIDs(_ context.Context, projectID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for id, tn := range s.treenodes {
		if tn.projectID == projectID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// TreenodeLocations returns the project coordinates of the given treenodes.
func (s *Store) TreenodeLocations(_ context.Context, projectID int64, ids []int64) ([]models.TreenodeLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.TreenodeLocation, 0, len(ids))
	for _, id := range ids {
		tn, ok := s.treenodes[id]
		if !ok || tn.projectID != projectID {
			continue
		}
		out = append(out, models.TreenodeLocation{TreenodeID: id, X: tn.X, Y: tn.Y, Z: tn.Z})
	}
	return out, nil
}

// TreenodesByLabel returns treenodes carrying any of tags, ordered by tag
// then treenode id.
func (s *Store) TreenodesByLabel(_ context.Context, projectID int64, tags []string) ([]models.LabeledTreenode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		wanted[tag] = struct{}{}
	}
	var out []models.LabeledTreenode
	for key, pid := range s.labels {
		if pid != projectID {
			continue
		}
		if _, ok := wanted[key.name]; !ok {
			continue
		}
		tn, ok := s.treenodes[key.treenodeID]
		if !ok {
			continue
		}
		out = append(out, models.LabeledTreenode{
			Tag:              key.name,
			TreenodeLocation: models.TreenodeLocation{TreenodeID: tn.ID, X: tn.X, Y: tn.Y, Z: tn.Z},
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tag != out[j].Tag {
			return out[i].Tag < out[j].Tag
		}
		return out[i].TreenodeID < out[j].TreenodeID
	})
	return out, nil
}
