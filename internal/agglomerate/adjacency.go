// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package agglomerate

import (
	"context"
	"fmt"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/graph"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// FindAdjacent builds the adjacency graph of seeds. Every seed is a node,
// isolated or not; ids the store does not know contribute no edges.
func FindAdjacent(ctx context.Context, tx Tx, seeds []models.SliceID, distance float64) (*graph.Graph, error) {
	g := graph.New()
	if len(seeds) == 0 {
		return g, nil
	}
	for _, id := range seeds {
		g.AddNode(id)
	}

	pairs, err := tx.AdjacentSlices(ctx, seeds, distance)
	if err != nil {
		return nil, fmt.Errorf("adjacent slices: %w", err)
	}
	for _, p := range pairs {
		g.AddEdge(p[0], p[1])
	}
	return g, nil
}
