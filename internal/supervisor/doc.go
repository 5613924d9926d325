// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

/*
Package supervisor runs the long-lived parts of the service under a suture v4
tree.

	RootSupervisor ("synapsesuggestor")
	├── MaintenanceSupervisor ("maintenance-layer")
	│   └── OrphanSweepService (when detection.orphan_sweep_interval > 0)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

A crashing sweeper is restarted with backoff without touching the HTTP
server. Supervisor events are logged through sutureslog, bridged to the
process-wide zerolog logger by logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
	    ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddMaintenanceService(services.NewOrphanSweepService(handler.Engine(), cfg.Detection.OrphanSweepInterval))
	err = tree.Serve(ctx)

Service wrappers live in the services subpackage.
*/
package supervisor
