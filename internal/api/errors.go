// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/agglomerate"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/analysis"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/database"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/geometry"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/validation"
)

// ErrEmptyBody is returned when a POST arrives without a JSON body.
var ErrEmptyBody = errors.New("request body is required")

var notFoundErrors = []error{
	agglomerate.ErrSliceNotFound,
	models.ErrWorkflowNotFound,
	models.ErrProjectWorkflowNotFound,
	models.ErrStackNotFound,
	models.ErrObjectNotFound,
}

var badRequestErrors = []error{
	geometry.ErrInvalidGeometry,
	analysis.ErrNegativeTolerance,
	analysis.ErrSampleTooLarge,
	ErrEmptyBody,
}

// respondError maps an error from the domain or store layers onto the
// response envelope.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	rw := NewResponseWriter(w, r)

	var verr *validation.RequestValidationError
	if errors.As(err, &verr) {
		rw.ValidationError("Request validation failed", verr.Details())
		return
	}

	var unknown *agglomerate.UnknownSlicesError
	if errors.As(err, &unknown) {
		rw.ErrorWithDetails(http.StatusNotFound, ErrCodeNotFound, unknown.Error(),
			map[string]interface{}{"synapse_slice_ids": unknown.IDs})
		return
	}

	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			rw.NotFound(err.Error())
			return
		}
	}
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			rw.BadRequest(err.Error())
			return
		}
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		rw.Error(http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "request body too large")
	case errors.Is(err, database.ErrTransactionConflict):
		rw.Conflict("concurrent modification, retry the request")
	case errors.Is(err, database.ErrCircuitOpen):
		rw.ServiceUnavailable("database temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		rw.ServiceUnavailable("request timed out")
	default:
		rw.DatabaseError(err)
	}
}
