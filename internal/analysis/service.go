// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Package analysis answers read-only questions about detected synapses:
// per-skeleton summaries, object extents, connector intersection and
// training-data sampling. Stores return flat rows; aggregation happens here
// so every backend produces identical results.
package analysis

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/metrics"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// Store is the read side used by the analysis layer.
type Store interface {
	Workflow(ctx context.Context, workflowID int64) (models.Workflow, error)
	StackTransform(ctx context.Context, projectID, stackID int64) (models.StackTransform, error)
	ResolveProjectWorkflow(ctx context.Context, projectID int64, workflowID, projectWorkflowID *int64) (models.ProjectWorkflow, error)
	WorkflowInfo(ctx context.Context, projectID int64, stackID *int64) ([]models.WorkflowInfo, error)

	SkeletonContacts(ctx context.Context, projectWorkflowID, skeletonID int64) ([]models.SkeletonContact, error)
	SliceGeometries(ctx context.Context, workflowID int64, objectIDs []models.ObjectID) ([]models.SliceGeometry, error)
	SliceDetails(ctx context.Context, projectID, workflowID int64, skeletonIDs []int64) ([]models.SliceDetail, error)
	ConnectorEdges(ctx context.Context, projectID int64, box models.ProjectBox) ([]models.ConnectorEdge, error)

	TreenodeIDs(ctx context.Context, projectID int64) ([]int64, error)
	TreenodeLocations(ctx context.Context, projectID int64, ids []int64) ([]models.TreenodeLocation, error)
	TreenodesByLabel(ctx context.Context, projectID int64, tags []string) ([]models.LabeledTreenode, error)
}

// Options configure a Service.
type Options struct {
	TransformCacheSize int
	TransformCacheTTL  time.Duration
	DefaultXYPadding   float64
	DefaultZPadding    int
	MaxSampleSize      int
}

type transformKey struct {
	projectID int64
	stackID   int64
}

// Service runs analysis queries against a Store.
type Service struct {
	store      Store
	opts       Options
	transforms *expirable.LRU[transformKey, models.StackTransform]
}

func NewService(store Store, opts Options) *Service {
	size := opts.TransformCacheSize
	if size <= 0 {
		size = 256
	}
	return &Service{
		store:      store,
		opts:       opts,
		transforms: expirable.NewLRU[transformKey, models.StackTransform](size, nil, opts.TransformCacheTTL),
	}
}

// InvalidateTransforms drops cached stack transforms. Call it after stack
// metadata changes.
func (s *Service) InvalidateTransforms() {
	s.transforms.Purge()
}

func (s *Service) stackTransform(ctx context.Context, projectID, stackID int64) (models.StackTransform, error) {
	key := transformKey{projectID, stackID}
	if t, ok := s.transforms.Get(key); ok {
		metrics.TransformCacheHits.Inc()
		return t, nil
	}
	metrics.TransformCacheMisses.Inc()

	t, err := s.store.StackTransform(ctx, projectID, stackID)
	if err != nil {
		return models.StackTransform{}, err
	}
	s.transforms.Add(key, t)
	return t, nil
}

// workflowTransform returns the stack→project transform of a workflow's stack.
func (s *Service) workflowTransform(ctx context.Context, projectID, workflowID int64) (models.StackTransform, error) {
	wf, err := s.store.Workflow(ctx, workflowID)
	if err != nil {
		return models.StackTransform{}, err
	}
	return s.stackTransform(ctx, projectID, wf.StackID)
}
