// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/geometry"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

func (s *Store) algorithmFor(table map[string]algorithm, hash string, notes *string) algorithm {
	if a, ok := table[hash]; ok {
		return a
	}
	a := algorithm{id: s.nextID(), hash: hash, date: s.now()}
	if notes != nil {
		a.notes = *notes
	}
	table[hash] = a
	return a
}

// GetOrCreateWorkflow returns the workflow for a stack tiling and detection
// algorithm, creating rows as needed.
func (s *Store) GetOrCreateWorkflow(_ context.Context, stackID int64, size models.TileSize, hash string, notes *string) (models.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tk := tilingKey{stackID: stackID, size: size}
	tilingID, ok := s.tilings[tk]
	if !ok {
		tilingID = s.nextID()
		s.tilings[tk] = tilingID
	}
	algo := s.algorithmFor(s.detectionAlgo, hash, notes)

	key := [2]int64{tilingID, algo.id}
	if id, ok := s.workflowByKey[key]; ok {
		return s.workflows[id].Workflow, nil
	}
	wf := workflow{
		Workflow: models.Workflow{
			ID:                   s.nextID(),
			StackID:              stackID,
			DetectionAlgorithmID: algo.id,
			TileSize:             size,
		},
		tilingID: tilingID,
	}
	s.workflows[wf.ID] = wf
	s.workflowByKey[key] = wf.ID
	return wf.Workflow, nil
}

// Workflow loads a detection workflow.
func (s *Store) Workflow(_ context.Context, workflowID int64) (models.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wf, ok := s.workflows[workflowID]
	if !ok {
		return models.Workflow{}, fmt.Errorf("%w: %d", models.ErrWorkflowNotFound, workflowID)
	}
	return wf.Workflow, nil
}

func (s *Store) detectedTilesLocked(workflowID int64) ([]models.TileIndex, error) {
	if _, ok := s.workflows[workflowID]; !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrWorkflowNotFound, workflowID)
	}
	out := []models.TileIndex{}
	for key := range s.tileByKey {
		if key.WorkflowID == workflowID {
			out = append(out, key.TileIndex)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})
	return out, nil
}

// DetectedTiles lists the processed tiles of a workflow, ordered z, y, x.
func (s *Store) DetectedTiles(_ context.Context, workflowID int64) ([]models.TileIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detectedTilesLocked(workflowID)
}

// UndetectedTiles returns the candidates without a tile.
func (s *Store) UndetectedTiles(_ context.Context, workflowID int64, candidates []models.TileIndex) ([]models.TileIndex, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	detected, err := s.detectedTilesLocked(workflowID)
	if err != nil {
		return nil, err
	}
	return models.MissingTiles(detected, candidates), nil
}

// InsertSlices implements ingest.Store. Hulls are parsed before anything
// is written so that a bad record leaves the store untouched.
func (s *Store) InsertSlices(_ context.Context, key models.TileKey, records []models.SliceRecord) (map[models.ExternalID]models.SliceID, error) {
	parsed := make([]*slice, len(records))
	for i, r := range records {
		hull, err := geometry.ParseWKT(r.HullWKT)
		if err != nil {
			return nil, fmt.Errorf("slice %s: %w", r.ExternalID, err)
		}
		box, err := geometry.Bounds(hull)
		if err != nil {
			return nil, fmt.Errorf("slice %s: %w", r.ExternalID, err)
		}
		parsed[i] = &slice{
			hull: hull, hullWKT: r.HullWKT, box: box,
			sizePx: r.SizePx, xs: r.XSCentroid, ys: r.YSCentroid, uncertainty: r.Uncertainty,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.workflows[key.WorkflowID]; !ok {
		return nil, fmt.Errorf("%w: %d", models.ErrWorkflowNotFound, key.WorkflowID)
	}
	tileID, ok := s.tileByKey[key]
	if !ok {
		tileID = s.nextID()
		s.tileByKey[key] = tileID
		s.tiles[tileID] = tile{id: tileID, key: key}
	}

	ids := make(map[models.ExternalID]models.SliceID, len(records))
	for i, sl := range parsed {
		sl.id = models.SliceID(s.nextID())
		sl.tileID = tileID
		sl.tile = key
		s.slices[sl.id] = sl
		s.tileSlices[tileID] = append(s.tileSlices[tileID], sl.id)
		ids[records[i].ExternalID] = sl.id
	}
	return ids, nil
}
