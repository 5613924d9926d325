// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

/*
Package api serves the synapse bookkeeping HTTP API under /api/v1.

Route groups:

  - /synapse-detection: detection workflows, processed tiles, slice
    ingestion and agglomeration
  - /treenode-association/{project_id}: association contexts and
    slice/treenode contacts
  - /analysis/{project_id}: skeleton summaries, object extents, connector
    intersection, slice details
  - /training-data/{project_id}: treenode samples and label lookups
  - /annotations/{project_id}/import: host table mirroring
  - /health/live, /health/ready and the root /metrics endpoint

Every response uses the envelope in response.go. Store and domain errors
are mapped to status codes in errors.go: missing rows are 404, invalid
geometry 400, validation failures 422, transaction conflicts that outlived
their retries 409 and an open circuit breaker 503.

Handlers depend on the Store interface, so the same router runs over
DuckDB, PostGIS or the in-memory store.
*/
package api
