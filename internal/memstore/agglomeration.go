// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package memstore

import (
	"context"
	"fmt"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/agglomerate"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/geometry"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// WithAgglomerationTx runs fn under the write lock. Writes are journaled and
// undone if fn fails, so a failed run leaves no trace.
func (s *Store) WithAgglomerationTx(ctx context.Context, fn func(agglomerate.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &aggTx{s: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type aggTx struct {
	s    *Store
	undo []func()
}

func (t *aggTx) rollback() {
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *aggTx) ExistingSlices(_ context.Context, ids []models.SliceID) ([]models.SliceID, error) {
	out := make([]models.SliceID, 0, len(ids))
	for _, id := range ids {
		if _, ok := t.s.slices[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (t *aggTx) AdjacentSlices(ctx context.Context, seeds []models.SliceID, distance float64) ([][2]models.SliceID, error) {
	var pairs [][2]models.SliceID
	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sl, ok := t.s.slices[seed]
		if !ok {
			continue
		}
		reach := sl.box.Pad(distance)
		for _, tileID := range t.s.neighbourTiles(sl.tile) {
			for _, otherID := range t.s.tileSlices[tileID] {
				if otherID == seed {
					continue
				}
				other := t.s.slices[otherID]
				if !reach.Intersects(other.box) {
					continue
				}
				near, err := geometry.WithinDistance(sl.hull, other.hull, distance)
				if err != nil {
					return nil, fmt.Errorf("slices %d and %d: %w", seed, otherID, err)
				}
				if near {
					pairs = append(pairs, [2]models.SliceID{seed, otherID})
				}
			}
		}
	}
	return pairs, nil
}

// neighbourTiles returns the stored tiles in the 3x3x3 block around key.
func (s *Store) neighbourTiles(key models.TileKey) []int64 {
	var out []int64
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				n := key
				n.X, n.Y, n.Z = key.X+dx, key.Y+dy, key.Z+dz
				if id, ok := s.tileByKey[n]; ok {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

func (t *aggTx) ObjectMembers(_ context.Context, ids []models.SliceID) (map[models.SliceID]models.ObjectID, error) {
	out := make(map[models.SliceID]models.ObjectID)
	for _, id := range ids {
		obj, ok := t.s.mappings[id]
		if !ok {
			continue
		}
		for member := range t.s.objects[obj] {
			out[member] = obj
		}
	}
	return out, nil
}

// TouchObjects is a no-op: the write lock already excludes other runs.
func (t *aggTx) TouchObjects(context.Context, []models.ObjectID) error {
	return nil
}

func (t *aggTx) CreateObjects(_ context.Context, n int) ([]models.ObjectID, error) {
	ids := make([]models.ObjectID, n)
	for i := range ids {
		id := models.ObjectID(t.s.nextID())
		t.s.objects[id] = make(map[models.SliceID]struct{})
		ids[i] = id
		t.undo = append(t.undo, func() { delete(t.s.objects, id) })
	}
	return ids, nil
}

func (t *aggTx) UpsertMappings(_ context.Context, mappings map[models.SliceID]models.ObjectID) error {
	for sliceID, obj := range mappings {
		members, ok := t.s.objects[obj]
		if !ok {
			return fmt.Errorf("%w: %d", models.ErrObjectNotFound, obj)
		}
		prev, had := t.s.mappings[sliceID]
		if had {
			delete(t.s.objects[prev], sliceID)
		}
		t.s.mappings[sliceID] = obj
		members[sliceID] = struct{}{}

		t.undo = append(t.undo, func() {
			delete(t.s.objects[obj], sliceID)
			if had {
				t.s.mappings[sliceID] = prev
				t.s.objects[prev][sliceID] = struct{}{}
			} else {
				delete(t.s.mappings, sliceID)
			}
		})
	}
	return nil
}

func (t *aggTx) DeleteOrphanObjects(context.Context) ([]models.ObjectID, error) {
	deleted := make([]models.ObjectID, 0)
	for id, members := range t.s.objects {
		if len(members) > 0 {
			continue
		}
		delete(t.s.objects, id)
		deleted = append(deleted, id)
		t.undo = append(t.undo, func() { t.s.objects[id] = make(map[models.SliceID]struct{}) })
	}
	return models.SortObjectIDs(deleted), nil
}
