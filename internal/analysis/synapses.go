// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package analysis

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// SkeletonSynapses summarises every synapse object the skeleton touches
// under one association context. When projectWorkflowID is nil the
// project's most recent context for workflowID (or for any workflow when
// that is nil too) is used.
func (s *Service) SkeletonSynapses(ctx context.Context, projectID, skeletonID int64, workflowID, projectWorkflowID *int64) (*models.ProjectWorkflow, []models.SkeletonSynapse, error) {
	pw, err := s.store.ResolveProjectWorkflow(ctx, projectID, workflowID, projectWorkflowID)
	if err != nil {
		return nil, nil, err
	}
	contacts, err := s.store.SkeletonContacts(ctx, pw.ID, skeletonID)
	if err != nil {
		return nil, nil, fmt.Errorf("skeleton contacts: %w", err)
	}
	return &pw, AggregateContacts(contacts), nil
}

// AggregateContacts groups contact rows by object. Slice attributes count
// once per slice however many treenodes touch it; contact areas are summed
// over every row.
func AggregateContacts(contacts []models.SkeletonContact) []models.SkeletonSynapse {
	type group struct {
		treenodes map[int64]struct{}
		slices    map[models.SliceID]models.SkeletonContact
		contact   int64
	}
	groups := make(map[models.ObjectID]*group)
	for _, c := range contacts {
		g, ok := groups[c.ObjectID]
		if !ok {
			g = &group{treenodes: map[int64]struct{}{}, slices: map[models.SliceID]models.SkeletonContact{}}
			groups[c.ObjectID] = g
		}
		g.treenodes[c.TreenodeID] = struct{}{}
		g.slices[c.SliceID] = c
		g.contact += c.ContactPx
	}

	out := make([]models.SkeletonSynapse, 0, len(groups))
	for obj, g := range groups {
		ids := make([]models.SliceID, 0, len(g.slices))
		for id := range g.slices {
			ids = append(ids, id)
		}
		models.SortSliceIDs(ids)

		xs := make([]float64, len(ids))
		ys := make([]float64, len(ids))
		zs := make([]float64, len(ids))
		zSlices := make([]int, len(ids))
		var size int64
		var uncertain []float64
		for i, id := range ids {
			sl := g.slices[id]
			xs[i], ys[i], zs[i] = sl.XSCentroid, sl.YSCentroid, float64(sl.Z)
			zSlices[i] = sl.Z
			size += sl.SizePx
			if sl.Uncertainty != nil {
				uncertain = append(uncertain, *sl.Uncertainty)
			}
		}
		slices.Sort(zSlices)

		syn := models.SkeletonSynapse{
			ObjectID:    obj,
			TreenodeIDs: sortedKeys(g.treenodes),
			XS:          stat.Mean(xs, nil),
			YS:          stat.Mean(ys, nil),
			ZS:          stat.Mean(zs, nil),
			ZSlices:     zSlices,
			SizePx:      size,
			ContactPx:   g.contact,
		}
		if len(uncertain) > 0 {
			avg := stat.Mean(uncertain, nil)
			syn.UncertaintyAvg = &avg
		}
		out = append(out, syn)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID < out[j].ObjectID })
	return out
}

// SliceDetails lists slice–treenode rows for skeletons in one workflow.
func (s *Service) SliceDetails(ctx context.Context, projectID, workflowID int64, skeletonIDs []int64) ([]models.SliceDetail, error) {
	if len(skeletonIDs) == 0 {
		return []models.SliceDetail{}, nil
	}
	rows, err := s.store.SliceDetails(ctx, projectID, workflowID, skeletonIDs)
	if err != nil {
		return nil, fmt.Errorf("slice details: %w", err)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].SliceID != rows[j].SliceID {
			return rows[i].SliceID < rows[j].SliceID
		}
		return rows[i].TreenodeID < rows[j].TreenodeID
	})
	return rows, nil
}

// WorkflowInfo lists the project's workflows, newest detection algorithm
// first and then newest association algorithm.
func (s *Service) WorkflowInfo(ctx context.Context, projectID int64, stackID *int64) ([]models.WorkflowInfo, error) {
	infos, err := s.store.WorkflowInfo(ctx, projectID, stackID)
	if err != nil {
		return nil, fmt.Errorf("workflow info: %w", err)
	}
	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		if !a.DetectionAlgorithmDate.Equal(b.DetectionAlgorithmDate) {
			return a.DetectionAlgorithmDate.After(b.DetectionAlgorithmDate)
		}
		if !a.AssociationAlgorithmDate.Equal(b.AssociationAlgorithmDate) {
			return a.AssociationAlgorithmDate.After(b.AssociationAlgorithmDate)
		}
		return a.ProjectWorkflowID > b.ProjectWorkflowID
	})
	return infos, nil
}

func sortedKeys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
