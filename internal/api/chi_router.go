// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/config"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/middleware"
)

// Router sets up HTTP routes using the Chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router for handler using the security settings for
// CORS, rate limiting and body size.
func NewRouter(handler *Handler, sec *config.SecurityConfig) *Router {
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(ChiMiddlewareConfigFromSecurity(sec)),
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	h := router.handler
	mw := router.chiMiddleware

	r := chi.NewRouter()

	// Global middleware, applied in order
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(mw.CORS()) // CORS must be global to handle OPTIONS preflight
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(mw.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(mw.MaxBody())
		r.Use(middleware.Compression)

		// Detector workers post one request per tile, so ingestion has
		// its own budget.
		r.Route("/synapse-detection", func(r chi.Router) {
			r.Use(mw.RateLimitIngest())
			r.Get("/workflow", h.DetectionWorkflow)
			r.Get("/tiles/detected", h.DetectedTiles)
			r.Post("/tiles/undetected", h.UndetectedTiles)
			r.Post("/tiles/insert-synapse-slices", h.InsertSynapseSlices)
			r.Post("/slices/agglomerate", h.AgglomerateSlices)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RateLimit())

			r.Route("/treenode-association/{project_id}", func(r chi.Router) {
				r.Get("/workflow", h.ProjectWorkflow)
				r.Get("/get", h.TreenodeAssociations)
				r.Get("/unassociated", h.UnassociatedTreenodes)
				r.Post("/add", h.AddAssociations)
			})

			r.Route("/analysis/{project_id}", func(r chi.Router) {
				r.Get("/workflow-info", h.WorkflowInfo)
				r.Get("/skeleton-synapses", h.SkeletonSynapses)
				r.Post("/synapse-extents", h.SynapseExtents)
				r.Post("/intersecting-connectors", h.IntersectingConnectors)
				r.Get("/slices-detail", h.SlicesDetail)
			})

			r.Route("/training-data/{project_id}", func(r chi.Router) {
				r.Get("/sample-treenodes", h.SampleTreenodes)
				r.Get("/treenodes-by-label", h.TreenodesByLabel)
			})

			r.Post("/annotations/{project_id}/import", h.ImportAnnotations)
		})
	})

	return r
}
