// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package analysis

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// DefaultSampleCount is used when a sample request gives no count.
const DefaultSampleCount = 50

// ErrSampleTooLarge means the project has no more treenodes than requested.
var ErrSampleTooLarge = errors.New("sample size must be smaller than the number of treenodes")

// SampleColumns names the columns of a treenode sample.
var SampleColumns = []string{"treenode_id", "xp", "yp", "zp"}

// LabelColumns names the columns of a label lookup.
var LabelColumns = []string{"tag_name", "treenode_id", "xp", "yp", "zp"}

// Sample is a reproducible random treenode sample.
type Sample struct {
	Seed int64 `json:"seed"`
	models.Table
}

// SampleTreenodes draws count treenodes from the project. The same seed
// over the same treenodes always yields the same sample. A nil seed picks
// one at random and reports it.
func (s *Service) SampleTreenodes(ctx context.Context, projectID int64, count int, seed *int64) (*Sample, error) {
	if count <= 0 {
		count = DefaultSampleCount
	}
	if s.opts.MaxSampleSize > 0 && count > s.opts.MaxSampleSize {
		return nil, fmt.Errorf("%w: at most %d may be requested", ErrSampleTooLarge, s.opts.MaxSampleSize)
	}

	ids, err := s.store.TreenodeIDs(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("treenode ids: %w", err)
	}
	if count >= len(ids) {
		return nil, fmt.Errorf("%w: %d requested, %d exist in project %d", ErrSampleTooLarge, count, len(ids), projectID)
	}

	var sd int64
	if seed != nil {
		sd = *seed
	} else {
		sd = rand.Int63()
	}
	picked := pick(ids, count, sd)

	locs, err := s.store.TreenodeLocations(ctx, projectID, picked)
	if err != nil {
		return nil, fmt.Errorf("treenode locations: %w", err)
	}
	byID := make(map[int64]models.TreenodeLocation, len(locs))
	for _, l := range locs {
		byID[l.TreenodeID] = l
	}

	sample := &Sample{Seed: sd, Table: models.Table{Columns: SampleColumns, Data: make([][]interface{}, 0, count)}}
	for _, id := range picked {
		l, ok := byID[id]
		if !ok {
			continue
		}
		sample.Data = append(sample.Data, []interface{}{l.TreenodeID, l.X, l.Y, l.Z})
	}
	return sample, nil
}

// pick shuffles a sorted copy of ids with a seeded source and keeps the
// first count.
func pick(ids []int64, count int, seed int64) []int64 {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	rd := rand.New(rand.NewSource(seed))
	rd.Shuffle(len(sorted), func(i, j int) { sorted[i], sorted[j] = sorted[j], sorted[i] })
	return sorted[:count]
}

// TreenodesByLabel returns treenodes carrying any of the tags.
func (s *Service) TreenodesByLabel(ctx context.Context, projectID int64, tags []string) (*models.Table, error) {
	table := &models.Table{Columns: LabelColumns, Data: [][]interface{}{}}
	if len(tags) == 0 {
		return table, nil
	}
	rows, err := s.store.TreenodesByLabel(ctx, projectID, tags)
	if err != nil {
		return nil, fmt.Errorf("treenodes by label: %w", err)
	}
	for _, r := range rows {
		table.Data = append(table.Data, []interface{}{r.Tag, r.TreenodeID, r.X, r.Y, r.Z})
	}
	return table, nil
}
