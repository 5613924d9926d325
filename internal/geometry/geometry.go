// synapsesuggestor - Synapse detection bookkeeping for CATMAID
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/clbarnes/CATMAID-synapsesuggestor

// Package geometry wraps GEOS for the handful of operations the service
// needs on slice hulls: parsing, convex hull, simplification, distance,
// bounds and affine transforms.
//
// go-geos panics when the underlying library raises an exception. Every
// exported function here converts such panics into ErrInvalidGeometry.
package geometry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/twpayne/go-geos"
)

// ErrInvalidGeometry is returned for unparseable, empty or invalid input.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Box is an axis-aligned 2D bounding box.
type Box struct {
	MinX, MinY, MaxX, MaxY float64
}

// Pad grows the box by d on every side.
func (b Box) Pad(d float64) Box {
	return Box{b.MinX - d, b.MinY - d, b.MaxX + d, b.MaxY + d}
}

// Union returns the smallest box containing b and o.
func (b Box) Union(o Box) Box {
	return Box{min(b.MinX, o.MinX), min(b.MinY, o.MinY), max(b.MaxX, o.MaxX), max(b.MaxY, o.MaxY)}
}

// Intersects reports whether the boxes overlap (touching counts).
func (b Box) Intersects(o Box) bool {
	return b.MinX <= o.MaxX && o.MinX <= b.MaxX && b.MinY <= o.MaxY && o.MinY <= b.MaxY
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGeometry, fmt.Sprintf(format, args...))
}

// guard runs fn and turns a GEOS panic into an error.
func guard[T any](op string, fn func() T) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = invalid("%s: %v", op, r)
		}
	}()
	return fn(), nil
}

// Parse reads a geometry from WKT or from a GeoJSON geometry object.
// Exactly one of the two must be given. The result is non-empty and valid.
func Parse(wkt string, geoJSON []byte) (*geos.Geom, error) {
	hasWKT := strings.TrimSpace(wkt) != ""
	hasJSON := len(geoJSON) > 0 && string(geoJSON) != "null"

	var (
		g   *geos.Geom
		err error
	)
	switch {
	case hasWKT && hasJSON:
		return nil, invalid("give either wkt_str or geometry, not both")
	case hasWKT:
		g, err = geos.NewGeomFromWKT(wkt)
	case hasJSON:
		g, err = geos.NewGeomFromGeoJSON(string(geoJSON))
	default:
		return nil, invalid("no geometry given")
	}
	if err != nil {
		return nil, invalid("%v", err)
	}

	ok, err := guard("validate", func() bool { return !g.IsEmpty() && g.IsValid() })
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalid("geometry is empty or not valid")
	}
	return g, nil
}

// ParseWKT reads a stored hull.
func ParseWKT(wkt string) (*geos.Geom, error) {
	g, err := geos.NewGeomFromWKT(wkt)
	if err != nil {
		return nil, invalid("%v", err)
	}
	return g, nil
}

// Hull returns the 2D convex hull of g, simplified with a topology
// preserving simplifier when tolerance > 0.
func Hull(g *geos.Geom, tolerance float64) (*geos.Geom, error) {
	if tolerance < 0 {
		return nil, invalid("negative simplify tolerance %v", tolerance)
	}
	flat, err := Force2D(g)
	if err != nil {
		return nil, err
	}
	return guard("convex hull", func() *geos.Geom {
		hull := flat.ConvexHull()
		if tolerance > 0 {
			hull = hull.TopologyPreserveSimplify(tolerance)
		}
		return hull
	})
}

// HullWKT parses a detection geometry and returns the WKT of its hull.
func HullWKT(wkt string, geoJSON []byte, tolerance float64) (string, error) {
	g, err := Parse(wkt, geoJSON)
	if err != nil {
		return "", err
	}
	hull, err := Hull(g, tolerance)
	if err != nil {
		return "", err
	}
	return guard("write wkt", hull.ToWKT)
}

// Bounds returns the bounding box of g.
func Bounds(g *geos.Geom) (Box, error) {
	return guard("bounds", func() Box {
		b := g.Bounds()
		return Box{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
	})
}

// WithinDistance reports whether a and b are no further than d apart.
func WithinDistance(a, b *geos.Geom, d float64) (bool, error) {
	return guard("distance", func() bool { return a.DistanceWithin(b, d) })
}

// Point builds a 2D point.
func Point(x, y float64) (*geos.Geom, error) {
	return ParseWKT("POINT (" + coord(x, y) + ")")
}

// Segment builds a 2D line segment. A degenerate segment becomes a point.
func Segment(x1, y1, x2, y2 float64) (*geos.Geom, error) {
	if x1 == x2 && y1 == y2 {
		return Point(x1, y1)
	}
	return ParseWKT("LINESTRING (" + coord(x1, y1) + ", " + coord(x2, y2) + ")")
}

func coord(x, y float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64) + " " + strconv.FormatFloat(y, 'g', -1, 64)
}
