// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

package geometry

import (
	"github.com/goccy/go-json"
	"github.com/twpayne/go-geos"
)

// XYFunc maps one 2D coordinate.
type XYFunc func(x, y float64) (float64, float64)

// Transform applies fn to every coordinate of g and drops any Z/M ordinate.
// The geometry is rewritten through its GeoJSON encoding.
func Transform(g *geos.Geom, fn XYFunc) (*geos.Geom, error) {
	encoded, err := guard("encode geojson", func() string { return g.ToGeoJSON(-1) })
	if err != nil {
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(encoded), &doc); err != nil {
		return nil, invalid("decode geojson: %v", err)
	}
	if err := rewriteGeometry(doc, fn); err != nil {
		return nil, err
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, invalid("encode geojson: %v", err)
	}
	t, err := geos.NewGeomFromGeoJSON(string(out))
	if err != nil {
		return nil, invalid("%v", err)
	}
	return t, nil
}

// Force2D returns g with only X and Y ordinates.
func Force2D(g *geos.Geom) (*geos.Geom, error) {
	return Transform(g, func(x, y float64) (float64, float64) { return x, y })
}

// Affine returns a transform scaling then translating each axis.
func Affine(scaleX, scaleY, translateX, translateY float64) XYFunc {
	return func(x, y float64) (float64, float64) {
		return x*scaleX + translateX, y*scaleY + translateY
	}
}

func rewriteGeometry(doc map[string]any, fn XYFunc) error {
	if members, ok := doc["geometries"].([]any); ok {
		for _, m := range members {
			child, ok := m.(map[string]any)
			if !ok {
				return invalid("malformed geometry collection")
			}
			if err := rewriteGeometry(child, fn); err != nil {
				return err
			}
		}
		return nil
	}
	coords, ok := doc["coordinates"]
	if !ok {
		return invalid("geojson without coordinates")
	}
	rewritten, err := rewriteCoords(coords, fn)
	if err != nil {
		return err
	}
	doc["coordinates"] = rewritten
	return nil
}

// rewriteCoords walks nested coordinate arrays. A position is an array
// whose first element is a number.
func rewriteCoords(v any, fn XYFunc) (any, error) {
	arr, ok := v.([]any)
	if !ok {
		return nil, invalid("malformed coordinates")
	}
	if len(arr) == 0 {
		return arr, nil
	}
	if x, ok := arr[0].(float64); ok {
		if len(arr) < 2 {
			return nil, invalid("position with %d ordinates", len(arr))
		}
		y, ok := arr[1].(float64)
		if !ok {
			return nil, invalid("non-numeric ordinate")
		}
		nx, ny := fn(x, y)
		return []any{nx, ny}, nil
	}
	out := make([]any, len(arr))
	for i, child := range arr {
		c, err := rewriteCoords(child, fn)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}
