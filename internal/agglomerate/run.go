// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package agglomerate

import (
	"context"
	"fmt"
	"slices"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/graph"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// Report is the result of one run plus counters for logging and metrics.
type Report struct {
	Result     *models.AgglomerationResult
	Seeds      int
	Components int
	Written    int
	Created    []models.ObjectID
	Merged     []models.ObjectID
}

// Run executes one agglomeration over an open transaction. It returns an
// *UnknownSlicesError before writing anything if a seed is not stored.
func Run(ctx context.Context, tx Tx, seeds []models.SliceID, distance float64) (*Report, error) {
	unique := dedupe(seeds)
	report := &Report{Result: models.NewAgglomerationResult(), Seeds: len(unique)}

	if len(unique) > 0 {
		if err := checkSeedsExist(ctx, tx, unique); err != nil {
			return nil, err
		}
		if err := remap(ctx, tx, unique, distance, report); err != nil {
			return nil, err
		}
	}

	deleted, err := tx.DeleteOrphanObjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("delete orphan objects: %w", err)
	}
	report.Result.Deleted = models.SortObjectIDs(append(report.Result.Deleted, deleted...))
	return report, nil
}

func remap(ctx context.Context, tx Tx, seeds []models.SliceID, distance float64, report *Report) error {
	g, err := FindAdjacent(ctx, tx, seeds, distance)
	if err != nil {
		return err
	}

	current, err := tx.ObjectMembers(ctx, g.Nodes())
	if err != nil {
		return fmt.Errorf("object members: %w", err)
	}
	linkObjectMembers(g, current)

	touched := distinctObjects(current)
	if len(touched) > 0 {
		if err := tx.TouchObjects(ctx, touched); err != nil {
			return fmt.Errorf("touch objects: %w", err)
		}
	}

	components := g.ConnectedComponents()
	report.Components = len(components)

	assigned := make(map[models.SliceID]models.ObjectID, g.Len())
	var fresh [][]models.SliceID
	for _, component := range components {
		existing := componentObjects(component, current)
		if len(existing) == 0 {
			fresh = append(fresh, component)
			continue
		}
		survivor := existing[0]
		report.Merged = append(report.Merged, existing[1:]...)
		if err := assign(assigned, component, survivor); err != nil {
			return err
		}
	}

	if len(fresh) > 0 {
		created, err := tx.CreateObjects(ctx, len(fresh))
		if err != nil {
			return fmt.Errorf("create objects: %w", err)
		}
		if len(created) != len(fresh) {
			return fmt.Errorf("create objects: asked for %d, got %d", len(fresh), len(created))
		}
		for i, component := range fresh {
			if err := assign(assigned, component, created[i]); err != nil {
				return err
			}
		}
		report.Created = created
	}

	changed := make(map[models.SliceID]models.ObjectID)
	for slice, obj := range assigned {
		if prev, ok := current[slice]; !ok || prev != obj {
			changed[slice] = obj
		}
	}
	if len(changed) > 0 {
		if err := tx.UpsertMappings(ctx, changed); err != nil {
			return fmt.Errorf("upsert mappings: %w", err)
		}
	}

	report.Written = len(changed)
	report.Result.Mappings = assigned
	slices.Sort(report.Merged)
	return nil
}

func checkSeedsExist(ctx context.Context, tx Tx, seeds []models.SliceID) error {
	existing, err := tx.ExistingSlices(ctx, seeds)
	if err != nil {
		return fmt.Errorf("existing slices: %w", err)
	}
	if len(existing) == len(seeds) {
		return nil
	}
	known := make(map[models.SliceID]struct{}, len(existing))
	for _, id := range existing {
		known[id] = struct{}{}
	}
	var missing []models.SliceID
	for _, id := range seeds {
		if _, ok := known[id]; !ok {
			missing = append(missing, id)
		}
	}
	return &UnknownSlicesError{IDs: missing}
}

// linkObjectMembers joins all slices of each object with a star of edges
// rooted at the object's smallest slice.
func linkObjectMembers(g *graph.Graph, current map[models.SliceID]models.ObjectID) {
	byObject := make(map[models.ObjectID][]models.SliceID)
	for slice, obj := range current {
		byObject[obj] = append(byObject[obj], slice)
	}
	for _, members := range byObject {
		root := slices.Min(members)
		g.AddNode(root)
		for _, m := range members {
			g.AddEdge(root, m)
		}
	}
}

func componentObjects(component []models.SliceID, current map[models.SliceID]models.ObjectID) []models.ObjectID {
	seen := make(map[models.ObjectID]struct{})
	var out []models.ObjectID
	for _, slice := range component {
		obj, ok := current[slice]
		if !ok {
			continue
		}
		if _, dup := seen[obj]; dup {
			continue
		}
		seen[obj] = struct{}{}
		out = append(out, obj)
	}
	return models.SortObjectIDs(out)
}

func distinctObjects(current map[models.SliceID]models.ObjectID) []models.ObjectID {
	seen := make(map[models.ObjectID]struct{}, len(current))
	out := make([]models.ObjectID, 0)
	for _, obj := range current {
		if _, ok := seen[obj]; !ok {
			seen[obj] = struct{}{}
			out = append(out, obj)
		}
	}
	return models.SortObjectIDs(out)
}

func assign(assigned map[models.SliceID]models.ObjectID, component []models.SliceID, obj models.ObjectID) error {
	for _, slice := range component {
		if prev, ok := assigned[slice]; ok && prev != obj {
			return &invariantError{slice: slice, existing: prev, proposed: obj}
		}
		assigned[slice] = obj
	}
	return nil
}

func dedupe(ids []models.SliceID) []models.SliceID {
	if len(ids) == 0 {
		return nil
	}
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
