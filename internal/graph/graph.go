// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Package graph is a small undirected graph over slice ids, backed by
// gonum's simple graph.
package graph

import (
	"cmp"
	"slices"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// Graph is an undirected graph of slice ids. The zero value is not usable;
// call New.
type Graph struct {
	g *simple.UndirectedGraph
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{g: simple.NewUndirectedGraph()}
}

// AddNode adds id if it is not already present.
func (g *Graph) AddNode(id models.SliceID) {
	if g.g.Node(int64(id)) == nil {
		g.g.AddNode(simple.Node(id))
	}
}

// AddEdge connects a and b, adding either node as needed. A self edge only
// adds the node.
func (g *Graph) AddEdge(a, b models.SliceID) {
	g.AddNode(a)
	g.AddNode(b)
	if a == b {
		return
	}
	g.g.SetEdge(g.g.NewEdge(simple.Node(a), simple.Node(b)))
}

// HasNode reports whether id is a node.
func (g *Graph) HasNode(id models.SliceID) bool {
	return g.g.Node(int64(id)) != nil
}

// HasEdge reports whether a and b are directly connected.
func (g *Graph) HasEdge(a, b models.SliceID) bool {
	return g.g.HasEdgeBetween(int64(a), int64(b))
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return g.g.Nodes().Len()
}

// Degree returns the number of neighbours of id.
func (g *Graph) Degree(id models.SliceID) int {
	return g.g.From(int64(id)).Len()
}

// Nodes returns all nodes in ascending order.
func (g *Graph) Nodes() []models.SliceID {
	it := g.g.Nodes()
	out := make([]models.SliceID, 0, it.Len())
	for it.Next() {
		out = append(out, models.SliceID(it.Node().ID()))
	}
	return models.SortSliceIDs(out)
}

// ConnectedComponents returns the components of the graph. Members of each
// component are ascending and components are ordered by their smallest
// member.
func (g *Graph) ConnectedComponents() [][]models.SliceID {
	ccs := topo.ConnectedComponents(g.g)
	components := make([][]models.SliceID, 0, len(ccs))
	for _, cc := range ccs {
		component := make([]models.SliceID, len(cc))
		for i, n := range cc {
			component[i] = models.SliceID(n.ID())
		}
		slices.Sort(component)
		components = append(components, component)
	}
	slices.SortFunc(components, func(a, b []models.SliceID) int {
		return cmp.Compare(a[0], b[0])
	})
	return components
}
