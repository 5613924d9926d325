// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package agglomerate

import (
	"context"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// Tx is the store access one agglomeration run needs. All calls of a run go
// through the same Tx, and nothing is visible to other callers until the
// surrounding transaction commits.
type Tx interface {
	// ExistingSlices returns the subset of ids that are stored slices.
	ExistingSlices(ctx context.Context, ids []models.SliceID) ([]models.SliceID, error)

	// AdjacentSlices returns (seed, other) pairs for every stored slice
	// "other" adjacent to a seed: same workflow, tiles at most one index
	// apart on each axis, hulls within distance, ids different.
	AdjacentSlices(ctx context.Context, seeds []models.SliceID, distance float64) ([][2]models.SliceID, error)

	// ObjectMembers returns the complete slice→object mapping of every
	// object that owns at least one of ids.
	ObjectMembers(ctx context.Context, ids []models.SliceID) (map[models.SliceID]models.ObjectID, error)

	// TouchObjects marks objects as written by this transaction so that
	// concurrent runs reading the same objects conflict.
	TouchObjects(ctx context.Context, ids []models.ObjectID) error

	// CreateObjects allocates n new objects.
	CreateObjects(ctx context.Context, n int) ([]models.ObjectID, error)

	// UpsertMappings inserts or overwrites the mapping of each slice.
	UpsertMappings(ctx context.Context, mappings map[models.SliceID]models.ObjectID) error

	// DeleteOrphanObjects removes every object with no mapped slice and
	// returns the removed ids.
	DeleteOrphanObjects(ctx context.Context) ([]models.ObjectID, error)
}

// Store runs fn inside one write transaction. fn may be invoked again after
// a serialization conflict; it must not keep state between invocations.
type Store interface {
	WithAgglomerationTx(ctx context.Context, fn func(Tx) error) error
}
