// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package ingest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/geometry"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/metrics"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/models"
	"github.com/clbarnes/CATMAID-synapsesuggestor/internal/validation"
)

type recordingStore struct {
	calls   int
	tile    models.TileKey
	records []models.SliceRecord
	err     error
}

func (r *recordingStore) InsertSlices(_ context.Context, tile models.TileKey, records []models.SliceRecord) (map[models.ExternalID]models.SliceID, error) {
	r.calls++
	r.tile = tile
	r.records = records
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[models.ExternalID]models.SliceID, len(records))
	for i, rec := range records {
		out[rec.ExternalID] = models.SliceID(100 + i)
	}
	return out, nil
}

func square(id string, x float64) models.Detection {
	return models.Detection{
		ID:         models.ExternalID(id),
		WKT:        fmt.Sprintf("POLYGON ((%[1]g 0, %[2]g 0, %[2]g 2, %[1]g 2, %[1]g 0))", x, x+2),
		XSCentroid: x + 1,
		YSCentroid: 1,
		SizePx:     4,
	}
}

var testTile = models.TileKey{WorkflowID: 1, TileIndex: models.TileIndex{X: 0, Y: 0, Z: 1}}

func TestInsertSlices(t *testing.T) {
	store := &recordingStore{}
	svc := NewService(store, Options{})

	concave := models.Detection{
		ID:      "l-shape",
		GeoJSON: []byte(`{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,1],[1,1],[1,4],[0,4],[0,0]]]}`),
		SizePx:  7,
	}
	before := testutil.ToFloat64(metrics.SlicesInserted)

	ids, err := svc.InsertSlices(context.Background(), testTile, []models.Detection{square("a", 0), concave}, nil)
	if err != nil {
		t.Fatalf("InsertSlices() error = %v", err)
	}
	if len(ids) != 2 || ids["a"] != 100 || ids["l-shape"] != 101 {
		t.Errorf("ids = %v", ids)
	}
	if store.tile != testTile {
		t.Errorf("tile = %+v", store.tile)
	}

	hull, err := geometry.ParseWKT(store.records[1].HullWKT)
	if err != nil {
		t.Fatal(err)
	}
	if got := hull.Area(); got < 12.49 || got > 12.51 {
		t.Errorf("stored geometry should be the convex hull, area = %v", got)
	}
	if got := testutil.ToFloat64(metrics.SlicesInserted) - before; got != 2 {
		t.Errorf("SlicesInserted grew by %v, want 2", got)
	}
}

func TestInsertSlicesRejectsBeforeStore(t *testing.T) {
	tests := []struct {
		name       string
		detections []models.Detection
		tolerance  *float64
		opts       Options
		wantField  string
		wantGeom   bool
	}{
		{
			name:       "duplicate external id",
			detections: []models.Detection{square("7", 0), square("7", 5)},
			wantField:  "detections[1].id",
		},
		{
			name:       "missing id",
			detections: []models.Detection{square("", 0)},
			wantField:  "detections[0].id",
		},
		{
			name:       "negative size",
			detections: []models.Detection{func() models.Detection { d := square("a", 0); d.SizePx = -1; return d }()},
			wantField:  "detections[0].size_px",
		},
		{
			name:       "negative tolerance",
			detections: []models.Detection{square("a", 0)},
			tolerance:  ptr(-0.5),
			wantField:  "tolerance",
		},
		{
			name:       "too many detections",
			detections: []models.Detection{square("a", 0), square("b", 5)},
			opts:       Options{MaxSlices: 1},
			wantField:  "detections",
		},
		{
			name:       "invalid geometry",
			detections: []models.Detection{square("a", 0), {ID: "b", WKT: "POLYGON ((0 0, 2 2, 2 0, 0 2, 0 0))"}},
			wantGeom:   true,
		},
		{
			name:       "no geometry",
			detections: []models.Detection{{ID: "a"}},
			wantGeom:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			_, err := NewService(store, tt.opts).InsertSlices(context.Background(), testTile, tt.detections, tt.tolerance)
			if err == nil {
				t.Fatal("expected error")
			}
			if store.calls != 0 {
				t.Error("store must not be called for rejected input")
			}
			if tt.wantGeom {
				if !errors.Is(err, geometry.ErrInvalidGeometry) {
					t.Errorf("error = %v, want ErrInvalidGeometry", err)
				}
				return
			}
			var ve *validation.RequestValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("error = %T %v, want RequestValidationError", err, err)
			}
			if ve.Fields[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", ve.Fields[0].Field, tt.wantField)
			}
		})
	}
}

// Uncertainty is detector-defined and stored as given, whatever its range.
func TestInsertSlicesKeepsUncertainty(t *testing.T) {
	store := &recordingStore{}
	high, negative := square("high", 0), square("negative", 5)
	high.Uncertainty = ptr(2.5)
	negative.Uncertainty = ptr(-0.3)

	_, err := NewService(store, Options{}).InsertSlices(context.Background(), testTile,
		[]models.Detection{high, negative, square("unset", 10)}, nil)
	if err != nil {
		t.Fatalf("InsertSlices() error = %v", err)
	}
	if len(store.records) != 3 {
		t.Fatalf("stored %d records, want 3", len(store.records))
	}
	if u := store.records[0].Uncertainty; u == nil || *u != 2.5 {
		t.Errorf("high uncertainty = %v, want 2.5", u)
	}
	if u := store.records[1].Uncertainty; u == nil || *u != -0.3 {
		t.Errorf("negative uncertainty = %v, want -0.3", u)
	}
	if store.records[2].Uncertainty != nil {
		t.Errorf("unset uncertainty = %v, want nil", *store.records[2].Uncertainty)
	}
}

func TestInsertSlicesTolerance(t *testing.T) {
	var b []byte
	b = append(b, "POLYGON (("...)
	const n = 64
	for i := 0; i <= n; i++ {
		a := 2 * math.Pi * float64(i%n) / n
		if i > 0 {
			b = append(b, ", "...)
		}
		b = append(b, fmt.Sprintf("%g %g", 10*math.Cos(a), 10*math.Sin(a))...)
	}
	b = append(b, "))"...)
	det := models.Detection{ID: "disc", WKT: string(b), SizePx: 400}

	exact := &recordingStore{}
	if _, err := NewService(exact, Options{}).InsertSlices(context.Background(), testTile, []models.Detection{det}, nil); err != nil {
		t.Fatal(err)
	}
	simplified := &recordingStore{}
	if _, err := NewService(simplified, Options{DefaultTolerance: 0.5}).InsertSlices(context.Background(), testTile, []models.Detection{det}, nil); err != nil {
		t.Fatal(err)
	}
	override := &recordingStore{}
	if _, err := NewService(override, Options{DefaultTolerance: 0.5}).InsertSlices(context.Background(), testTile, []models.Detection{det}, ptr(0)); err != nil {
		t.Fatal(err)
	}

	count := func(s *recordingStore) int {
		g, err := geometry.ParseWKT(s.records[0].HullWKT)
		if err != nil {
			t.Fatal(err)
		}
		return g.NumCoordinates()
	}
	if count(simplified) >= count(exact) {
		t.Errorf("simplified hull has %d coordinates, exact %d", count(simplified), count(exact))
	}
	if count(override) != count(exact) {
		t.Errorf("explicit zero tolerance should not simplify")
	}
}

func TestInsertSlicesStoreError(t *testing.T) {
	store := &recordingStore{err: models.ErrWorkflowNotFound}
	_, err := NewService(store, Options{}).InsertSlices(context.Background(), testTile, []models.Detection{square("a", 0)}, nil)
	if !errors.Is(err, models.ErrWorkflowNotFound) {
		t.Errorf("error = %v, want models.ErrWorkflowNotFound", err)
	}
}

func ptr(v float64) *float64 { return &v }
