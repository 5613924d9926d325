// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Package memstore is a non-relational spatial store held in process
// memory. It implements the same operations as the database package with
// explicit read-modify-write under one lock: an agglomeration holds the
// write lock for its whole run, so runs never interleave.
//
// Hulls are kept as parsed GEOS geometries next to their bounding boxes;
// adjacency checks the 3x3x3 tile neighbourhood, then the boxes, then the
// exact distance.
//
// Nothing is persisted. The store suits tests, demos and single-process
// deployments that rebuild their state from the detector.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/twpayne/go-geos"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/geometry"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

type tilingKey struct {
	stackID int64
	size    models.TileSize
}

type algorithm struct {
	id    int64
	hash  string
	date  time.Time
	notes string
}

type workflow struct {
	models.Workflow
	tilingID int64
}

type tile struct {
	id  int64
	key models.TileKey
}

type slice struct {
	id          models.SliceID
	tileID      int64
	tile        models.TileKey
	hull        *geos.Geom
	hullWKT     string
	box         geometry.Box
	sizePx      int64
	xs, ys      float64
	uncertainty *float64
}

type contact struct {
	sliceID           *models.SliceID
	treenodeID        int64
	projectWorkflowID int64
	contactPx         int64
}

type projectWorkflowKey struct {
	projectID, workflowID, algorithmID int64
}

type treenode struct {
	projectID int64
	models.Treenode
}

type connector struct {
	projectID int64
	models.Connector
}

type linkKey struct {
	treenodeID, connectorID int64
	relation                string
}

type link struct {
	projectID int64
	models.ConnectorLink
}

type labelKey struct {
	treenodeID int64
	name       string
}

// Store is the in-memory spatial store. The zero value is not usable; call
// New.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq int64

	tilings       map[tilingKey]int64
	detectionAlgo map[string]algorithm
	workflows     map[int64]workflow
	workflowByKey map[[2]int64]int64

	tiles      map[int64]tile
	tileByKey  map[models.TileKey]int64
	tileSlices map[int64][]models.SliceID
	slices     map[models.SliceID]*slice

	// objects maps every object to its member slices; an empty set is an
	// orphan awaiting cleanup.
	objects  map[models.ObjectID]map[models.SliceID]struct{}
	mappings map[models.SliceID]models.ObjectID

	associationAlgo  map[string]algorithm
	projectWorkflows map[int64]models.ProjectWorkflow
	pwByKey          map[projectWorkflowKey]int64
	contacts         []contact

	stacks        map[int64]models.Stack
	projectStacks map[[2]int64]models.Stack
	treenodes     map[int64]treenode
	connectors    map[int64]connector
	links         map[linkKey]link
	labels        map[labelKey]int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:              func() time.Time { return time.Now().UTC() },
		tilings:          make(map[tilingKey]int64),
		detectionAlgo:    make(map[string]algorithm),
		workflows:        make(map[int64]workflow),
		workflowByKey:    make(map[[2]int64]int64),
		tiles:            make(map[int64]tile),
		tileByKey:        make(map[models.TileKey]int64),
		tileSlices:       make(map[int64][]models.SliceID),
		slices:           make(map[models.SliceID]*slice),
		objects:          make(map[models.ObjectID]map[models.SliceID]struct{}),
		mappings:         make(map[models.SliceID]models.ObjectID),
		associationAlgo:  make(map[string]algorithm),
		projectWorkflows: make(map[int64]models.ProjectWorkflow),
		pwByKey:          make(map[projectWorkflowKey]int64),
		stacks:           make(map[int64]models.Stack),
		projectStacks:    make(map[[2]int64]models.Stack),
		treenodes:        make(map[int64]treenode),
		connectors:       make(map[int64]connector),
		links:            make(map[linkKey]link),
		labels:           make(map[labelKey]int64),
	}
}

// nextID hands out ids from one sequence shared by every table. Callers
// hold the write lock.
func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

// Driver names the backend for logs and health output.
func (s *Store) Driver() string { return "memory" }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close releases nothing.
func (s *Store) Close() error { return nil }
