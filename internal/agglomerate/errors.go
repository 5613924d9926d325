// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package agglomerate

import (
	"errors"
	"fmt"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
)

var (
	// ErrSliceNotFound is matched by UnknownSlicesError.
	ErrSliceNotFound = errors.New("synapse slice not found")

	// ErrMappingInvariant means one run tried to map a slice to two
	// different objects. It indicates a bug and is never retried.
	ErrMappingInvariant = errors.New("slice mapped to more than one object")
)

// UnknownSlicesError lists seed ids that have no stored slice.
type UnknownSlicesError struct {
	IDs []models.SliceID
}

func (e *UnknownSlicesError) Error() string {
	return fmt.Sprintf("%d unknown synapse slice id(s): %v", len(e.IDs), e.IDs)
}

// Is makes errors.Is(err, ErrSliceNotFound) true.
func (e *UnknownSlicesError) Is(target error) bool {
	return target == ErrSliceNotFound
}

// MetricLabel implements metrics.Classifier.
func (e *UnknownSlicesError) MetricLabel() string {
	return "not_found"
}

type invariantError struct {
	slice    models.SliceID
	existing models.ObjectID
	proposed models.ObjectID
}

func (e *invariantError) Error() string {
	return fmt.Sprintf("%v: slice %d already assigned to object %d, now %d",
		ErrMappingInvariant, e.slice, e.existing, e.proposed)
}

func (e *invariantError) Unwrap() error { return ErrMappingInvariant }

func (e *invariantError) MetricLabel() string { return "invariant" }
