// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package api

import (
	"context"
	"time"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/agglomerate"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/analysis"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/config"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/ingest"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// Store is everything the HTTP layer needs from a spatial store. Both
// *database.DB and *memstore.Store implement it.
type Store interface {
	agglomerate.Store
	ingest.Store
	analysis.Store

	Driver() string
	Ping(ctx context.Context) error

	GetOrCreateWorkflow(ctx context.Context, stackID int64, size models.TileSize, hash string, notes *string) (models.Workflow, error)
	GetOrCreateProjectWorkflow(ctx context.Context, projectID, workflowID int64, hash string, notes *string) (models.ProjectWorkflow, error)
	DetectedTiles(ctx context.Context, workflowID int64) ([]models.TileIndex, error)
	UndetectedTiles(ctx context.Context, workflowID int64, candidates []models.TileIndex) ([]models.TileIndex, error)

	AddAssociations(ctx context.Context, projectWorkflowID int64, rows []models.Association) (int, error)
	TreenodeAssociations(ctx context.Context, projectWorkflowID, skeletonID int64) ([]models.TreenodeAssociation, error)
	UnassociatedTreenodes(ctx context.Context, projectID, projectWorkflowID, skeletonID int64) ([]int64, error)

	ImportAnnotations(ctx context.Context, projectID int64, imp *models.AnnotationImport) (models.ImportSummary, error)
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across files by route group:
//   - handlers_health.go: liveness and readiness
//   - handlers_detection.go: workflows, tiles, slice ingestion, agglomeration
//   - handlers_association.go: association contexts and treenode contacts
//   - handlers_analysis.go: skeleton summaries, extents, connectors
//   - handlers_training.go: training-data sampling
//   - handlers_import.go: host annotation import
type Handler struct {
	store     Store
	engine    *agglomerate.Engine
	ingest    *ingest.Service
	analysis  *analysis.Service
	config    *config.Config
	startTime time.Time
}

// NewHandler wires the domain services to store.
//
//	handler := api.NewHandler(store, cfg)
//	router := api.NewRouter(handler, &cfg.Security)
//	http.ListenAndServe(cfg.Server.Addr(), router.SetupChi())
func NewHandler(store Store, cfg *config.Config) *Handler {
	return &Handler{
		store:  store,
		engine: agglomerate.NewEngine(store, cfg.Detection.AdjacencyDistance),
		ingest: ingest.NewService(store, ingest.Options{
			DefaultTolerance: cfg.Detection.SimplifyTolerance,
			MaxSlices:        cfg.Detection.MaxSlicesPerTile,
		}),
		analysis: analysis.NewService(store, analysis.Options{
			TransformCacheSize: cfg.Analysis.TransformCacheSize,
			TransformCacheTTL:  cfg.Analysis.TransformCacheTTL,
			DefaultXYPadding:   cfg.Analysis.DefaultXYPadding,
			DefaultZPadding:    cfg.Analysis.DefaultZPadding,
			MaxSampleSize:      cfg.Analysis.MaxSampleSize,
		}),
		config:    cfg,
		startTime: time.Now(),
	}
}

// Engine returns the agglomeration engine shared with background services.
func (h *Handler) Engine() *agglomerate.Engine {
	return h.engine
}
