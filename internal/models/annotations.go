// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package models

// AnnotationImport is a batch of host-platform annotations mirrored into
// the local store. Rows are upserted by id.
type AnnotationImport struct {
	Stacks     []Stack         `json:"stacks" validate:"dive"`
	Treenodes  []Treenode      `json:"treenodes" validate:"dive"`
	Connectors []Connector     `json:"connectors" validate:"dive"`
	Links      []ConnectorLink `json:"links" validate:"dive"`
	Labels     []Label         `json:"labels" validate:"dive"`
}

// Stack carries a stack's resolution and its translation in the project.
type Stack struct {
	ID           int64   `json:"id" validate:"gt=0"`
	Title        string  `json:"title"`
	ResolutionX  float64 `json:"resolution_x" validate:"gt=0"`
	ResolutionY  float64 `json:"resolution_y" validate:"gt=0"`
	ResolutionZ  float64 `json:"resolution_z" validate:"gt=0"`
	TranslationX float64 `json:"translation_x"`
	TranslationY float64 `json:"translation_y"`
	TranslationZ float64 `json:"translation_z"`
}

// Transform returns the stack's stack→project transform.
func (s Stack) Transform() StackTransform {
	return StackTransform{
		ResolutionX: s.ResolutionX, ResolutionY: s.ResolutionY, ResolutionZ: s.ResolutionZ,
		TranslationX: s.TranslationX, TranslationY: s.TranslationY, TranslationZ: s.TranslationZ,
	}
}

// Treenode is a skeleton node in project coordinates.
type Treenode struct {
	ID         int64   `json:"id" validate:"gt=0"`
	SkeletonID int64   `json:"skeleton_id" validate:"gt=0"`
	ParentID   *int64  `json:"parent_id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
}

// Connector is a synapse annotation in project coordinates.
type Connector struct {
	ID int64   `json:"id" validate:"gt=0"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	Z  float64 `json:"z"`
}

// ConnectorLink links a treenode to a connector.
type ConnectorLink struct {
	TreenodeID  int64  `json:"treenode_id" validate:"gt=0"`
	ConnectorID int64  `json:"connector_id" validate:"gt=0"`
	SkeletonID  int64  `json:"skeleton_id" validate:"gt=0"`
	Relation    string `json:"relation" validate:"oneof=presynaptic_to postsynaptic_to gapjunction_with abutting"`
}

// Label attaches a text tag to a treenode.
type Label struct {
	TreenodeID int64  `json:"treenode_id" validate:"gt=0"`
	Name       string `json:"name" validate:"required,max=255"`
}

// ImportSummary counts the rows written by an annotation import.
type ImportSummary struct {
	Stacks     int `json:"stacks"`
	Treenodes  int `json:"treenodes"`
	Connectors int `json:"connectors"`
	Links      int `json:"links"`
	Labels     int `json:"labels"`
}
