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

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/agglomerate"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// GetOrCreateProjectWorkflow binds a workflow to a project under an
// association algorithm.
func (s *Store) GetOrCreateProjectWorkflow(_ context.Context, projectID, workflowID int64, hash string, notes *string) (models.ProjectWorkflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[workflowID]; !ok {
		return models.ProjectWorkflow{}, fmt.Errorf("%w: %d", models.ErrWorkflowNotFound, workflowID)
	}
	algo := s.algorithmFor(s.associationAlgo, hash, notes)
	key := projectWorkflowKey{projectID: projectID, workflowID: workflowID, algorithmID: algo.id}
	if id, ok := s.pwByKey[key]; ok {
		return s.projectWorkflows[id], nil
	}
	pw := models.ProjectWorkflow{
		ID:                     s.nextID(),
		ProjectID:              projectID,
		WorkflowID:             workflowID,
		AssociationAlgorithmID: algo.id,
		Created:                s.now(),
	}
	s.projectWorkflows[pw.ID] = pw
	s.pwByKey[key] = pw.ID
	return pw, nil
}

// ResolveProjectWorkflow returns the given project workflow, or the newest
// one of the project (restricted to workflowID when set).
func (s *Store) ResolveProjectWorkflow(_ context.Context, projectID int64, workflowID, projectWorkflowID *int64) (models.ProjectWorkflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.ProjectWorkflow
	for _, pw := range s.projectWorkflows {
		if pw.ProjectID != projectID {
			continue
		}
		if workflowID != nil && pw.WorkflowID != *workflowID {
			continue
		}
		if projectWorkflowID != nil && pw.ID != *projectWorkflowID {
			continue
		}
		if best == nil || pw.Created.After(best.Created) || (pw.Created.Equal(best.Created) && pw.ID > best.ID) {
			p := pw
			best = &p
		}
	}
	if best == nil {
		return models.ProjectWorkflow{}, fmt.Errorf("%w in project %d", models.ErrProjectWorkflowNotFound, projectID)
	}
	return *best, nil
}

// AddAssociations records treenode contacts under a project workflow.
func (s *Store) AddAssociations(_ context.Context, projectWorkflowID int64, rows []models.Association) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projectWorkflows[projectWorkflowID]; !ok {
		return 0, fmt.Errorf("%w: %d", models.ErrProjectWorkflowNotFound, projectWorkflowID)
	}
	var missing []models.SliceID
	for _, a := range rows {
		if a.SliceID == nil {
			continue
		}
		if _, ok := s.slices[*a.SliceID]; !ok {
			missing = append(missing, *a.SliceID)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return 0, &agglomerate.UnknownSlicesError{IDs: slices.Compact(missing)}
	}

	for _, a := range rows {
		c := contact{treenodeID: a.TreenodeID, projectWorkflowID: projectWorkflowID, contactPx: a.ContactPx}
		if a.SliceID != nil {
			id := *a.SliceID
			c.sliceID = &id
		}
		s.contacts = append(s.contacts, c)
	}
	return len(rows), nil
}

type treenodeObject struct {
	treenodeID int64
	objectID   models.ObjectID
}

// TreenodeAssociations sums contact per (treenode, object) for a skeleton.
func (s *Store) TreenodeAssociations(_ context.Context, projectWorkflowID, skeletonID int64) ([]models.TreenodeAssociation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.projectWorkflows[projectWorkflowID]; !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrProjectWorkflowNotFound, projectWorkflowID)
	}
	sums := make(map[treenodeObject]int64)
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
		sums[treenodeObject{c.treenodeID, obj}] += c.contactPx
	}

	out := make([]models.TreenodeAssociation, 0, len(sums))
	for k, v := range sums {
		out = append(out, models.TreenodeAssociation{TreenodeID: k.treenodeID, ObjectID: k.objectID, ContactPx: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TreenodeID != out[j].TreenodeID {
			return out[i].TreenodeID < out[j].TreenodeID
		}
		return out[i].ObjectID < out[j].ObjectID
	})
	return out, nil
}

// UnassociatedTreenodes lists a skeleton's treenodes with no association
// row in the context.
func (s *Store) UnassociatedTreenodes(_ context.Context, projectID, projectWorkflowID, skeletonID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.projectWorkflows[projectWorkflowID]; !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrProjectWorkflowNotFound, projectWorkflowID)
	}
	seen := make(map[int64]struct{})
	for _, c := range s.contacts {
		if c.projectWorkflowID == projectWorkflowID {
			seen[c.treenodeID] = struct{}{}
		}
	}
	out := []int64{}
	for id, tn := range s.treenodes {
		if tn.projectID != projectID || tn.SkeletonID != skeletonID {
			continue
		}
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out, nil
}
