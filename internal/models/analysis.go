// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package models

// SliceGeometry is a mapped slice with its hull and stack-space bounds.
type SliceGeometry struct {
	ObjectID ObjectID
	SliceID  SliceID
	Z        int
	XMin     float64
	XMax     float64
	YMin     float64
	YMax     float64
	HullWKT  string
}

// ObjectExtent is the padded bounding box of an object in stack space.
type ObjectExtent struct {
	ObjectID ObjectID  `json:"synapse_object_id"`
	XMin     float64   `json:"xmin"`
	XMax     float64   `json:"xmax"`
	YMin     float64   `json:"ymin"`
	YMax     float64   `json:"ymax"`
	ZMin     int       `json:"zmin"`
	ZMax     int       `json:"zmax"`
	SliceIDs []SliceID `json:"synapse_slice_ids"`
}

// SkeletonContact is one (slice, treenode) contact of a skeleton together
// with the slice's object and detection attributes.
type SkeletonContact struct {
	ObjectID    ObjectID
	SliceID     SliceID
	TreenodeID  int64
	XSCentroid  float64
	YSCentroid  float64
	Z           int
	SizePx      int64
	Uncertainty *float64
	ContactPx   int64
}

// SkeletonSynapse aggregates a skeleton's contacts with one object.
type SkeletonSynapse struct {
	ObjectID       ObjectID
	TreenodeIDs    []int64
	XS             float64
	YS             float64
	ZS             float64
	ZSlices        []int
	SizePx         int64
	ContactPx      int64
	UncertaintyAvg *float64
}

// SkeletonSynapseColumns names the positions of SkeletonSynapse.Row.
var SkeletonSynapseColumns = []string{
	"synapse", "nodes", "xs", "ys", "zs", "z_slices", "size_px", "contact_px", "uncertainty_avg",
}

// Row encodes the synapse in SkeletonSynapseColumns order.
func (s SkeletonSynapse) Row() []interface{} {
	return []interface{}{
		s.ObjectID, s.TreenodeIDs, s.XS, s.YS, s.ZS, s.ZSlices, s.SizePx, s.ContactPx, s.UncertaintyAvg,
	}
}

// SliceDetail is one slice–treenode association row for a set of skeletons.
type SliceDetail struct {
	SliceID     SliceID
	ObjectID    ObjectID
	TreenodeID  int64
	SkeletonID  int64
	XS          float64
	YS          float64
	Z           int
	SizePx      int64
	Uncertainty *float64
}

// SliceDetailColumns names the positions of SliceDetail.Row.
var SliceDetailColumns = []string{"slice", "object", "node", "skeleton", "xs", "ys", "zs", "size", "uncertainty"}

func (d SliceDetail) Row() []interface{} {
	return []interface{}{
		d.SliceID, d.ObjectID, d.TreenodeID, d.SkeletonID, d.XS, d.YS, d.Z, d.SizePx, d.Uncertainty,
	}
}

// StackTransform maps stack coordinates (pixels, section index) to project
// coordinates: p = s*resolution + translation on each axis.
type StackTransform struct {
	ResolutionX  float64
	ResolutionY  float64
	ResolutionZ  float64
	TranslationX float64
	TranslationY float64
	TranslationZ float64
}

// IdentityTransform leaves coordinates unchanged.
var IdentityTransform = StackTransform{ResolutionX: 1, ResolutionY: 1, ResolutionZ: 1}

// ToProject transforms a stack-space point.
func (t StackTransform) ToProject(x, y, z float64) (float64, float64, float64) {
	return x*t.ResolutionX + t.TranslationX,
		y*t.ResolutionY + t.TranslationY,
		z*t.ResolutionZ + t.TranslationZ
}

// ConnectorEdge is a connector and, when linked, one of its treenodes.
// Coordinates are project space.
type ConnectorEdge struct {
	ConnectorID int64
	CX, CY, CZ  float64
	TreenodeID  *int64
	TX, TY, TZ  float64
}

// ProjectBox is an axis-aligned box in project space.
type ProjectBox struct {
	XMin, XMax float64
	YMin, YMax float64
	ZMin, ZMax float64
}

// ConnectorIntersection is a connector found near an object's slices.
type ConnectorIntersection struct {
	ObjectID    ObjectID
	ConnectorID int64
	X, Y, Z     float64
	TreenodeIDs []int64
}

// ConnectorIntersectionColumns names the positions of ConnectorIntersection.Row.
var ConnectorIntersectionColumns = []string{"synapse_id", "connector_id", "x", "y", "z", "treenode_ids"}

func (c ConnectorIntersection) Row() []interface{} {
	return []interface{}{c.ObjectID, c.ConnectorID, c.X, c.Y, c.Z, c.TreenodeIDs}
}

// TreenodeLocation is a treenode in project space.
type TreenodeLocation struct {
	TreenodeID int64
	X, Y, Z    float64
}

// LabeledTreenode is a treenode carrying a label.
type LabeledTreenode struct {
	Tag string
	TreenodeLocation
}

// Table is the {columns, data} shape used by tabular endpoints.
type Table struct {
	Columns []string        `json:"columns"`
	Data    [][]interface{} `json:"data"`
}
