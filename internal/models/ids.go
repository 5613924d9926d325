// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package models

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/goccy/go-json"
)

// SliceID identifies a stored synapse slice.
type SliceID int64

// ObjectID identifies a synapse object (a 3D group of slices).
type ObjectID int64

// SortSliceIDs sorts ids ascending in place and returns them.
func SortSliceIDs(ids []SliceID) []SliceID {
	slices.Sort(ids)
	return ids
}

// SortObjectIDs sorts ids ascending in place and returns them.
func SortObjectIDs(ids []ObjectID) []ObjectID {
	slices.Sort(ids)
	return ids
}

// ExternalID is the caller's correlation id for a detection. Detectors send
// either numbers or strings; both are normalised to their decimal/string form.
type ExternalID string

// UnmarshalJSON accepts a JSON string or number.
func (e *ExternalID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return errors.New("external id must not be null")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("external id: %w", err)
		}
		*e = ExternalID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("external id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*e = ExternalID(strconv.FormatInt(i, 10))
		return nil
	}
	*e = ExternalID(n.String())
	return nil
}
