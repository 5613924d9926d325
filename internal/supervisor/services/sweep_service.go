// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// Agglomerator is satisfied by *agglomerate.Engine.
type Agglomerator interface {
	Agglomerate(ctx context.Context, seeds []models.SliceID) (*models.AgglomerationResult, error)
}

// maxSweepFailures consecutive failed sweeps end Serve with an error, which
// hands the backoff decision to the supervisor.
const maxSweepFailures = 3

// OrphanSweepService periodically runs a seedless agglomeration, deleting
// synapse objects that lost every slice mapping.
type OrphanSweepService struct {
	engine   Agglomerator
	interval time.Duration
	name     string
}

// NewOrphanSweepService sweeps every interval. Callers skip registering it
// when the interval is zero.
func NewOrphanSweepService(engine Agglomerator, interval time.Duration) *OrphanSweepService {
	return &OrphanSweepService{
		engine:   engine,
		interval: interval,
		name:     "orphan-sweeper",
	}
}

// Serve implements suture.Service.
func (s *OrphanSweepService) Serve(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("%s: interval must be positive, got %v", s.name, s.interval)
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		result, err := s.engine.Agglomerate(ctx, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			if failures >= maxSweepFailures {
				return fmt.Errorf("%s: %d consecutive failures: %w", s.name, failures, err)
			}
			continue
		}
		failures = 0
		if len(result.Deleted) > 0 {
			logging.Info().Int("deleted", len(result.Deleted)).Msg("Swept orphaned synapse objects")
		}
	}
}

// String implements fmt.Stringer for suture's event log.
func (s *OrphanSweepService) String() string {
	return s.name
}
