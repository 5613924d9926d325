// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package agglomerate

import (
	"context"
	"errors"
	"math"
	"sort"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// box is an axis-aligned stand-in for a slice hull.
type box struct{ minX, minY, maxX, maxY float64 }

func (b box) distance(o box) float64 {
	dx := math.Max(0, math.Max(b.minX-o.maxX, o.minX-b.maxX))
	dy := math.Max(0, math.Max(b.minY-o.maxY, o.minY-b.maxY))
	return math.Hypot(dx, dy)
}

type fakeSlice struct {
	workflow int64
	tile     models.TileIndex
	hull     box
}

// fakeStore is a single-threaded in-memory Tx. Writes go straight to the
// maps; WithAgglomerationTx snapshots and restores them on error to behave
// like a rollback.
type fakeStore struct {
	slices   map[models.SliceID]fakeSlice
	objects  map[models.ObjectID]bool
	mappings map[models.SliceID]models.ObjectID
	nextObj  models.ObjectID
	touched  []models.ObjectID
	upserts  int

	failUpsert error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		slices:   make(map[models.SliceID]fakeSlice),
		objects:  make(map[models.ObjectID]bool),
		mappings: make(map[models.SliceID]models.ObjectID),
		nextObj:  100,
	}
}

func (f *fakeStore) addSlice(id models.SliceID, tile models.TileIndex, hull box) {
	f.slices[id] = fakeSlice{workflow: 1, tile: tile, hull: hull}
}

func (f *fakeStore) addObject(id models.ObjectID, members ...models.SliceID) {
	f.objects[id] = true
	for _, s := range members {
		f.mappings[s] = id
	}
}

func (f *fakeStore) WithAgglomerationTx(_ context.Context, fn func(Tx) error) error {
	objects := make(map[models.ObjectID]bool, len(f.objects))
	for k, v := range f.objects {
		objects[k] = v
	}
	mappings := make(map[models.SliceID]models.ObjectID, len(f.mappings))
	for k, v := range f.mappings {
		mappings[k] = v
	}
	next := f.nextObj
	if err := fn(f); err != nil {
		f.objects, f.mappings, f.nextObj = objects, mappings, next
		return err
	}
	return nil
}

func (f *fakeStore) ExistingSlices(_ context.Context, ids []models.SliceID) ([]models.SliceID, error) {
	var out []models.SliceID
	for _, id := range ids {
		if _, ok := f.slices[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (f *fakeStore) AdjacentSlices(_ context.Context, seeds []models.SliceID, distance float64) ([][2]models.SliceID, error) {
	var out [][2]models.SliceID
	for _, seed := range seeds {
		s, ok := f.slices[seed]
		if !ok {
			continue
		}
		for id, o := range f.slices {
			if id == seed || o.workflow != s.workflow || !s.tile.Adjacent(o.tile) {
				continue
			}
			if s.hull.distance(o.hull) <= distance {
				out = append(out, [2]models.SliceID{seed, id})
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ObjectMembers(_ context.Context, ids []models.SliceID) (map[models.SliceID]models.ObjectID, error) {
	wanted := make(map[models.ObjectID]bool)
	for _, id := range ids {
		if obj, ok := f.mappings[id]; ok {
			wanted[obj] = true
		}
	}
	out := make(map[models.SliceID]models.ObjectID)
	for slice, obj := range f.mappings {
		if wanted[obj] {
			out[slice] = obj
		}
	}
	return out, nil
}

func (f *fakeStore) TouchObjects(_ context.Context, ids []models.ObjectID) error {
	f.touched = append(f.touched, ids...)
	return nil
}

func (f *fakeStore) CreateObjects(_ context.Context, n int) ([]models.ObjectID, error) {
	out := make([]models.ObjectID, n)
	for i := range out {
		f.nextObj++
		out[i] = f.nextObj
		f.objects[f.nextObj] = true
	}
	return out, nil
}

func (f *fakeStore) UpsertMappings(_ context.Context, m map[models.SliceID]models.ObjectID) error {
	if f.failUpsert != nil {
		return f.failUpsert
	}
	for s, o := range m {
		if !f.objects[o] {
			return errors.New("mapping to unknown object")
		}
		f.mappings[s] = o
		f.upserts++
	}
	return nil
}

func (f *fakeStore) DeleteOrphanObjects(_ context.Context) ([]models.ObjectID, error) {
	used := make(map[models.ObjectID]bool)
	for _, o := range f.mappings {
		used[o] = true
	}
	var out []models.ObjectID
	for o := range f.objects {
		if !used[o] {
			delete(f.objects, o)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}
