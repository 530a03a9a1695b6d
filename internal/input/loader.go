// Package input reads polygon collections from GeoJSON documents and
// shapefiles into the pipeline's geometry model.
package input

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/zonal-metrics/internal/geometry"
)

// ErrDataRead is returned for malformed or unreadable geometry documents.
var ErrDataRead = eris.New("input: could not read geometry document")

// LoadGeoJSON reads a GeoJSON file into a geometry set.
func LoadGeoJSON(path string) (*geometry.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataRead, "input: open %s: %v", path, err)
	}
	set, err := ParseGeoJSON(data)
	if err != nil {
		return nil, eris.Wrapf(err, "input: parse %s", path)
	}
	return set, nil
}

// ParseGeoJSON decodes a GeoJSON FeatureCollection, Feature, or bare
// geometry into a geometry set. Only polygonal geometries are accepted.
func ParseGeoJSON(data []byte) (*geometry.Set, error) {
	geoms, err := decodeGeoJSON(data)
	if err != nil {
		return nil, err
	}
	set, err := geometry.NewSet(geoms...)
	if err != nil {
		return nil, eris.Wrap(err, "input: validate geometry")
	}
	return set, nil
}

func decodeGeoJSON(data []byte) ([]geom.T, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, eris.Wrapf(ErrDataRead, "input: decode document: %v", err)
	}

	switch probe.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrapf(ErrDataRead, "input: decode feature collection: %v", err)
		}
		geoms := make([]geom.T, 0, len(fc.Features))
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
		return geoms, nil
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrapf(ErrDataRead, "input: decode feature: %v", err)
		}
		return []geom.T{f.Geometry}, nil
	case "Polygon", "MultiPolygon":
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, eris.Wrapf(ErrDataRead, "input: decode geometry: %v", err)
		}
		return []geom.T{g}, nil
	default:
		return nil, eris.Wrapf(ErrDataRead, "input: unsupported document type %q", probe.Type)
	}
}
