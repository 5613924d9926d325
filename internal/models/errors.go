// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package models

import "errors"

// Lookup failures shared by every store implementation.
var (
	ErrWorkflowNotFound        = errors.New("workflow not found")
	ErrProjectWorkflowNotFound = errors.New("project workflow not found")
	ErrStackNotFound           = errors.New("stack not found in project")
	ErrObjectNotFound          = errors.New("synapse object not found")
)
