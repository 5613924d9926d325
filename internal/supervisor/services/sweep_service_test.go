// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

type fakeAgglomerator struct {
	calls    atomic.Int32
	nilSeeds atomic.Int32
	err      error
}

func (f *fakeAgglomerator) Agglomerate(_ context.Context, seeds []models.SliceID) (*models.AgglomerationResult, error) {
	f.calls.Add(1)
	if seeds == nil {
		f.nilSeeds.Add(1)
	}
	if f.err != nil {
		return nil, f.err
	}
	res := models.NewAgglomerationResult()
	res.Deleted = []models.ObjectID{1}
	return res, nil
}

var _ suture.Service = (*OrphanSweepService)(nil)

func TestOrphanSweepService_SweepsUntilCanceled(t *testing.T) {
	engine := &fakeAgglomerator{}
	svc := NewOrphanSweepService(engine, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() = %v, want deadline exceeded", err)
	}
	if engine.calls.Load() < 2 {
		t.Errorf("sweeps = %d, want at least 2", engine.calls.Load())
	}
	if engine.nilSeeds.Load() != engine.calls.Load() {
		t.Error("sweeps must run without seeds")
	}
}

func TestOrphanSweepService_GivesUpAfterRepeatedFailures(t *testing.T) {
	boom := errors.New("database unavailable")
	engine := &fakeAgglomerator{err: boom}
	svc := NewOrphanSweepService(engine, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := svc.Serve(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("Serve() = %v, want wrapped %v", err, boom)
	}
	if got := engine.calls.Load(); got != maxSweepFailures {
		t.Errorf("attempts = %d, want %d", got, maxSweepFailures)
	}
}

func TestOrphanSweepService_RejectsZeroInterval(t *testing.T) {
	svc := NewOrphanSweepService(&fakeAgglomerator{}, 0)
	if err := svc.Serve(context.Background()); err == nil {
		t.Error("Serve() with zero interval should fail")
	}
	if svc.String() != "orphan-sweeper" {
		t.Errorf("String() = %q", svc.String())
	}
}
