// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package agglomerate

import (
	"context"
	"time"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/metrics"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// Engine runs agglomerations against a Store.
type Engine struct {
	store    Store
	distance float64
}

// NewEngine creates an engine using distance as the hull adjacency threshold.
func NewEngine(store Store, distance float64) *Engine {
	return &Engine{store: store, distance: distance}
}

// Agglomerate remaps the objects reachable from seeds and removes orphaned
// objects, all in one transaction. A nil or empty seed set only removes
// orphans.
func (e *Engine) Agglomerate(ctx context.Context, seeds []models.SliceID) (*models.AgglomerationResult, error) {
	start := time.Now()

	var report *Report
	err := e.store.WithAgglomerationTx(ctx, func(tx Tx) error {
		r, err := Run(ctx, tx, seeds, e.distance)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		metrics.RecordAgglomeration(elapsed, 0, 0, 0, 0, err)
		logging.Ctx(ctx).Warn().Err(err).Int("seeds", len(seeds)).Dur("elapsed", elapsed).Msg("Agglomeration failed")
		return nil, err
	}

	deleted := len(report.Result.Deleted)
	metrics.RecordAgglomeration(elapsed, report.Seeds, report.Written, len(report.Created), deleted, nil)
	logging.Ctx(ctx).Info().
		Int("seeds", report.Seeds).
		Int("components", report.Components).
		Int("mappings_written", report.Written).
		Int("objects_created", len(report.Created)).
		Int("objects_merged", len(report.Merged)).
		Int("objects_deleted", deleted).
		Dur("elapsed", elapsed).
		Msg("Agglomeration complete")

	return report.Result, nil
}
