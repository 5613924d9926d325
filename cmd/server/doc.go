// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

/*
Command server runs the synapsesuggestor HTTP API.

Startup:

 1. Configuration: defaults, then an optional YAML file (CONFIG_PATH), then
    environment variables
 2. Logging: zerolog, JSON or console
 3. Store: DuckDB with the spatial extension, PostgreSQL with PostGIS, or
    the in-memory store, chosen by database.driver
 4. Supervisor tree: the HTTP server and, when
    detection.orphan_sweep_interval is set, the orphan sweeper

SIGINT or SIGTERM cancels the tree; the HTTP server drains for
server.shutdown_timeout before the store is closed.

Examples:

	# Local development against the in-memory store
	DB_DRIVER=memory LOG_FORMAT=console ./server

	# PostGIS
	DB_DRIVER=postgres POSTGRES_DSN=postgres://catmaid@db/catmaid ./server
*/
package main
