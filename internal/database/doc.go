// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Package database is the relational spatial store behind the synapse
// bookkeeping service.
//
// # Backends
//
// The same SQL runs on two engines through database/sql:
//   - DuckDB with the spatial extension (github.com/duckdb/duckdb-go/v2),
//     the default, embedded in the server process
//   - PostgreSQL with PostGIS (github.com/jackc/pgx/v5/stdlib), for
//     deployments that already run one next to CATMAID
//
// Queries use $n placeholders, GEOMETRY columns and the ST_* functions the
// two engines share. Where they differ (foreign keys, transaction isolation,
// conflict errors) the dialect type decides.
//
// # Files
//
//   - database.go: lifecycle (open, initialise, ping, close)
//   - dialect.go: per-engine SQL and error differences
//   - extensions.go: spatial / PostGIS installation
//   - schema.go, migrations.go: tables, sequences and versioned migrations
//   - resilience.go: circuit breaker and conflict retries around transactions
//   - query_helpers.go: row scanning and parameter chunking
//   - agglomeration.go: the transaction used by the agglomeration engine
//   - workflows.go, tiles.go, associations.go, analysis.go, training.go,
//     annotations.go: the store operations used by the HTTP handlers
//
// # Concurrency
//
// Agglomeration transactions run SERIALIZABLE on PostgreSQL. DuckDB only
// detects write-write conflicts, so the agglomeration transaction bumps the
// version of every object it reads (see aggTx.TouchObjects) to turn
// overlapping runs into conflicts. Conflicted transactions are re-run with
// exponential backoff up to database.transaction_retries times and then
// surface as ErrTransactionConflict.
package database
