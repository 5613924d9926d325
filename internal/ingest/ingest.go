// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Package ingest records detector output for one tile.
//
// Every detection is parsed and reduced to its 2D convex hull before the
// store is touched, so a bad geometry rejects the whole request without
// writes. The store then creates the tile row if needed and inserts all
// slices in one transaction. Ingestion never agglomerates; callers do that
// separately with the returned slice ids.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/geometry"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/logging"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/metrics"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/validation"
)

// Store persists a tile's slices atomically. It returns
// models.ErrWorkflowNotFound when the tile's workflow does not exist.
type Store interface {
	InsertSlices(ctx context.Context, tile models.TileKey, records []models.SliceRecord) (map[models.ExternalID]models.SliceID, error)
}

// Options bound a single ingestion call.
type Options struct {
	// DefaultTolerance is used when the caller gives none.
	DefaultTolerance float64
	// MaxSlices caps detections per tile; 0 disables the cap.
	MaxSlices int
}

// Service validates detections and hands hulls to the store.
type Service struct {
	store Store
	opts  Options
}

func NewService(store Store, opts Options) *Service {
	return &Service{store: store, opts: opts}
}

// InsertSlices stores detections for one tile and returns the new slice id
// of every detection keyed by its external id.
func (s *Service) InsertSlices(ctx context.Context, tile models.TileKey, detections []models.Detection, tolerance *float64) (map[models.ExternalID]models.SliceID, error) {
	tol := s.opts.DefaultTolerance
	if tolerance != nil {
		tol = *tolerance
	}

	records, err := s.prepare(detections, tol)
	if err != nil {
		metrics.IngestRejected.WithLabelValues(rejectReason(err)).Inc()
		logging.Ctx(ctx).Debug().Err(err).
			Int64("workflow_id", tile.WorkflowID).
			Int("detections", len(detections)).
			Msg("Rejected tile detections")
		return nil, err
	}

	ids, err := s.store.InsertSlices(ctx, tile, records)
	if err != nil {
		return nil, fmt.Errorf("insert slices: %w", err)
	}

	metrics.SlicesInserted.Add(float64(len(ids)))
	logging.Ctx(ctx).Debug().
		Int64("workflow_id", tile.WorkflowID).
		Ints("tile", []int{tile.X, tile.Y, tile.Z}).
		Int("slices", len(ids)).
		Msg("Inserted synapse slices")
	return ids, nil
}

func (s *Service) prepare(detections []models.Detection, tolerance float64) ([]models.SliceRecord, error) {
	if tolerance < 0 {
		return nil, fieldError("tolerance", "gte", "tolerance must not be negative")
	}
	if s.opts.MaxSlices > 0 && len(detections) > s.opts.MaxSlices {
		return nil, fieldError("detections", "max",
			fmt.Sprintf("at most %d detections per tile, got %d", s.opts.MaxSlices, len(detections)))
	}

	seen := make(map[models.ExternalID]int, len(detections))
	records := make([]models.SliceRecord, 0, len(detections))
	for i, d := range detections {
		field := "detections[" + strconv.Itoa(i) + "]"
		if d.ID == "" {
			return nil, fieldError(field+".id", "required", "detection id is required")
		}
		if first, dup := seen[d.ID]; dup {
			return nil, fieldError(field+".id", "unique",
				fmt.Sprintf("detection id %q repeats detections[%d]", d.ID, first))
		}
		seen[d.ID] = i
		if d.SizePx < 0 {
			return nil, fieldError(field+".size_px", "gte", "size_px must not be negative")
		}

		hull, err := geometry.HullWKT(d.WKT, d.GeoJSON, tolerance)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, err)
		}
		records = append(records, models.SliceRecord{
			ExternalID:  d.ID,
			HullWKT:     hull,
			XSCentroid:  d.XSCentroid,
			YSCentroid:  d.YSCentroid,
			SizePx:      d.SizePx,
			Uncertainty: d.Uncertainty,
		})
	}
	return records, nil
}

func fieldError(field, tag, msg string) *validation.RequestValidationError {
	return &validation.RequestValidationError{
		Fields: []validation.FieldError{{Field: field, Tag: tag, Message: msg}},
	}
}

func rejectReason(err error) string {
	if errors.Is(err, geometry.ErrInvalidGeometry) {
		return "geometry"
	}
	var ve *validation.RequestValidationError
	if errors.As(err, &ve) && len(ve.Fields) > 0 {
		return ve.Fields[0].Tag
	}
	return "other"
}
