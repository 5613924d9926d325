// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package memstore

import (
	"context"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

// ImportAnnotations upserts host-platform rows by id.
func (s *Store) ImportAnnotations(_ context.Context, projectID int64, imp *models.AnnotationImport) (models.ImportSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var sum models.ImportSummary
	for _, st := range imp.Stacks {
		s.stacks[st.ID] = st
		s.projectStacks[[2]int64{projectID, st.ID}] = st
		sum.Stacks++
	}
	for _, tn := range imp.Treenodes {
		s.treenodes[tn.ID] = treenode{projectID: projectID, Treenode: tn}
		sum.Treenodes++
	}
	for _, c := range imp.Connectors {
		s.connectors[c.ID] = connector{projectID: projectID, Connector: c}
		sum.Connectors++
	}
	for _, l := range imp.Links {
		s.links[linkKey{l.TreenodeID, l.ConnectorID, l.Relation}] = link{projectID: projectID, ConnectorLink: l}
		sum.Links++
	}
	for _, l := range imp.Labels {
		key := labelKey{l.TreenodeID, l.Name}
		if _, ok := s.labels[key]; !ok {
			s.labels[key] = projectID
		}
		sum.Labels++
	}
	return sum, nil
}
