// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Package testinfra starts Docker containers for integration tests using
// testcontainers-go.
//
// # PostGIS Container
//
// PostGISContainer runs postgis/postgis and exposes a pgx DSN for the
// PostgreSQL store backend:
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostGISContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    db, err := database.New(&config.DatabaseConfig{Driver: "postgres", DSN: pg.DSN})
//	    // ...
//	}
//
// # Build Tags
//
// Everything here is behind the integration build tag:
//
//	go test -tags integration ./...
package testinfra
