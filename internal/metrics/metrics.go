// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synapsesuggestor_db_query_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_db_query_errors_total",
			Help: "Total number of failed store operations",
		},
		[]string{"driver", "operation", "error_type"},
	)

	DBTransactionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_db_transaction_retries_total",
			Help: "Write transactions re-run after a serialization conflict",
		},
		[]string{"driver", "operation"},
	)

	// 0 closed, 1 half-open, 2 open
	DBCircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "synapsesuggestor_db_circuit_breaker_state",
			Help: "Store circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"driver"},
	)

	// Agglomeration metrics
	AgglomerationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_agglomeration_runs_total",
			Help: "Agglomeration runs by outcome",
		},
		[]string{"outcome"},
	)

	AgglomerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synapsesuggestor_agglomeration_duration_seconds",
			Help:    "Wall time of agglomeration runs including retries",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	AgglomerationSeeds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "synapsesuggestor_agglomeration_seeds",
			Help:    "Distinct seed slices per agglomeration run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		},
	)

	SlicesRemapped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_slices_remapped_total",
			Help: "Slice to object mappings written by agglomeration",
		},
	)

	ObjectsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_objects_created_total",
			Help: "Synapse objects allocated by agglomeration",
		},
	)

	ObjectsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_objects_deleted_total",
			Help: "Orphaned synapse objects deleted by agglomeration",
		},
	)

	// Ingestion metrics
	SlicesInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_slices_inserted_total",
			Help: "Synapse slices stored by ingestion",
		},
	)

	IngestRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_ingest_rejected_total",
			Help: "Detections rejected before storage",
		},
		[]string{"reason"},
	)

	// Analysis cache metrics
	TransformCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_transform_cache_hits_total",
			Help: "Stack transform cache hits",
		},
	)

	TransformCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_transform_cache_misses_total",
			Help: "Stack transform cache misses",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "synapsesuggestor_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "synapsesuggestor_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "synapsesuggestor_api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)
)

// RecordDBQuery records one store operation.
func RecordDBQuery(driver, operation string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(driver, operation, errorType(err)).Inc()
	}
}

// RecordTransactionRetry counts a conflict-triggered retry.
func RecordTransactionRetry(driver, operation string) {
	DBTransactionRetries.WithLabelValues(driver, operation).Inc()
}

// SetCircuitBreakerState publishes the breaker state as 0/1/2.
func SetCircuitBreakerState(driver string, state int) {
	DBCircuitBreakerState.WithLabelValues(driver).Set(float64(state))
}

// RecordAgglomeration records one finished agglomeration run.
func RecordAgglomeration(duration time.Duration, seeds, remapped, created, deleted int, err error) {
	AgglomerationDuration.Observe(duration.Seconds())
	if err != nil {
		AgglomerationRuns.WithLabelValues(errorType(err)).Inc()
		return
	}
	AgglomerationRuns.WithLabelValues("success").Inc()
	AgglomerationSeeds.Observe(float64(seeds))
	SlicesRemapped.Add(float64(remapped))
	ObjectsCreated.Add(float64(created))
	ObjectsDeleted.Add(float64(deleted))
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// Classifier lets error types expose a low-cardinality label.
type Classifier interface {
	MetricLabel() string
}

// errorType keeps label cardinality bounded: errors that classify themselves
// use their label, everything else is "error".
func errorType(err error) string {
	var c Classifier
	if errors.As(err, &c) {
		return c.MetricLabel()
	}
	return "error"
}
