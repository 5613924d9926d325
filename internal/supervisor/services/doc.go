// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Package services adapts long-running components to suture.Service.
//
//   - HTTPServerService: the API server with graceful shutdown
//   - OrphanSweepService: periodic seedless agglomeration
//
// Each wrapper depends on a small interface rather than the concrete
// component, so tests drive them with fakes.
package services
