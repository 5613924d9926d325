// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

/*
Package middleware provides the HTTP middleware shared by every API route.

  - RequestID: reuses or generates X-Request-ID and seeds the logging context
  - PrometheusMetrics: request count, latency and in-flight gauge, labelled
    by chi route pattern so path parameters do not explode cardinality
  - Compression: gzip via klauspost/compress for bodies above MinGzipSize

All three have the chi signature func(http.Handler) http.Handler:

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.PrometheusMetrics, middleware.Compression)

The handler reads the id back with GetRequestID(r.Context()).
*/
package middleware
