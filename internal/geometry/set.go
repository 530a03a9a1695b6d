// Package geometry prepares polygon collections for zonal reduction:
// multi-polygon decomposition, coordinate simplification, equal-area
// measurement, and adaptive gridding of oversized shapes. All input
// coordinates are geographic (EPSG:4326).
package geometry

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ErrNotPolygonal is returned when an input geometry is not a polygon or
// multipolygon.
var ErrNotPolygonal = eris.New("geometry: input is not polygonal")

// Set is an ordered, immutable collection of polygonal geometries.
type Set struct {
	geoms []geom.T
}

// NewSet validates that every geometry is a Polygon or MultiPolygon and
// returns the collection. Order is preserved.
func NewSet(geoms ...geom.T) (*Set, error) {
	for _, g := range geoms {
		switch g.(type) {
		case *geom.Polygon, *geom.MultiPolygon:
		default:
			return nil, eris.Wrapf(ErrNotPolygonal, "geometry: unsupported type %T", g)
		}
	}
	return &Set{geoms: geoms}, nil
}

// Len returns the number of geometries in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.geoms)
}

// Geom returns the i-th geometry.
func (s *Set) Geom(i int) geom.T { return s.geoms[i] }

// Prepared is one single-polygon geometry with its equal-area measurement.
type Prepared struct {
	Polygon *geom.Polygon
	AreaKM2 float64
	// FromGrid marks features produced by grid subdivision; their area is
	// carried as a feature property through reduction.
	FromGrid bool
}

// Decompose flattens the set into single polygons, one entry per
// multipolygon part, preserving input order. No part is dropped.
func Decompose(s *Set) []*geom.Polygon {
	var polys []*geom.Polygon
	for i := 0; i < s.Len(); i++ {
		switch g := s.Geom(i).(type) {
		case *geom.Polygon:
			polys = append(polys, g)
		case *geom.MultiPolygon:
			for j := 0; j < g.NumPolygons(); j++ {
				polys = append(polys, g.Polygon(j))
			}
		}
	}
	return polys
}

// TotalArea sums the per-feature areas in km2.
func TotalArea(feats []Prepared) float64 {
	var total float64
	for _, f := range feats {
		total += f.AreaKM2
	}
	return total
}
