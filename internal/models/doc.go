// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

/*
Package models defines the domain types shared by the store, the engine and
the HTTP layer.

Detection side:

  - Workflow: a tiling of one stack combined with one detection algorithm
  - TileKey / TileIndex: a tile of a workflow
  - Detection: one 2D detection as submitted by the external detector
  - SliceRecord: a detection ready to be stored (convex hull WKT)
  - AgglomerationResult: the slice→object remapping produced by one run

Association and analysis side:

  - ProjectWorkflow: the context id grouping treenode contacts
  - Association / TreenodeAssociation: slice↔treenode contacts
  - SliceGeometry, ObjectExtent, SkeletonSynapse, ConnectorIntersection
  - StackTransform: stack→project affine mapping

Host annotation mirror:

  - AnnotationImport and its parts (stacks, treenodes, connectors, links, labels)

Identifier types are distinct int64 types so that slice and object ids cannot
be swapped silently; they marshal as JSON numbers and as JSON object keys.
*/
package models
