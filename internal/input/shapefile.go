package input

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/zonal-metrics/internal/geometry"
)

// LoadShapefile reads every polygon record of a shapefile into a geometry
// set. Non-polygon shapes are rejected.
func LoadShapefile(path string) (*geometry.Set, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataRead, "input: open shapefile %s: %v", path, err)
	}
	defer func() { _ = reader.Close() }()

	log := zap.L().With(zap.String("component", "input.shapefile"))

	var geoms []geom.T
	for reader.Next() {
		n, shape := reader.Shape()
		if shape == nil {
			continue
		}
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			return nil, eris.Wrapf(ErrDataRead, "input: record %d is not a polygon", n)
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			log.Debug("skipping empty polygon record", zap.Int("record", n))
			continue
		}
		geoms = append(geoms, mp)
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(ErrDataRead, "input: read shapefile %s: %v", path, err)
	}

	set, err := geometry.NewSet(geoms...)
	if err != nil {
		return nil, eris.Wrap(err, "input: validate shapefile geometry")
	}
	log.Info("loaded shapefile", zap.String("path", path), zap.Int("records", set.Len()))
	return set, nil
}

// polygonToMultiPolygon converts a shapefile polygon to a geom.MultiPolygon,
// one polygon per part. Malformed parts are skipped.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(4326)

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		var end int32
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		} else {
			end = int32(len(p.Points))
		}

		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		if len(flat) < 8 { // a closed ring needs at least 4 vertices
			continue
		}

		ring := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		if err := mp.Push(ring); err != nil {
			zap.L().Debug("input: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
