package engine

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// ReducerKind names a reduction operator supported by the service.
type ReducerKind string

const (
	ReducerSum            ReducerKind = "sum"
	ReducerFixedHistogram ReducerKind = "fixedHistogram"
)

// Reducer is a named aggregation applied to raster pixels within a region.
type Reducer struct {
	Kind       ReducerKind `json:"kind"`
	Unweighted bool        `json:"unweighted,omitempty"`
	Min        float64     `json:"min,omitempty"`
	Max        float64     `json:"max,omitempty"`
	Bins       int         `json:"bins,omitempty"`
}

// Sum returns an unweighted sum reducer.
func Sum() Reducer {
	return Reducer{Kind: ReducerSum, Unweighted: true}
}

// FixedHistogram returns an unweighted fixed-bin histogram reducer over
// [min, max) with the given number of bins.
func FixedHistogram(min, max float64, bins int) Reducer {
	return Reducer{Kind: ReducerFixedHistogram, Unweighted: true, Min: min, Max: max, Bins: bins}
}

// Reduction binds a reducer to either a single image (IsBand true, result is
// a scalar or histogram under the result key) or an ordered band stack
// (IsBand false, result is a nested map keyed by band name).
type Reduction struct {
	Reducer Reducer     `json:"reducer"`
	IsBand  bool        `json:"isBand"`
	Image   *Image      `json:"image,omitempty"`
	Bands   []NamedBand `json:"bands,omitempty"`
}

// ReduceBand builds a single-image reduction.
func ReduceBand(im Image, r Reducer) Reduction {
	return Reduction{Reducer: r, IsBand: true, Image: &im}
}

// ReduceStack builds a multi-band reduction over an ordered stack.
func ReduceStack(bands []NamedBand, r Reducer) Reduction {
	return Reduction{Reducer: r, IsBand: false, Bands: bands}
}

// Feature is one geometry+properties record submitted for reduction.
// Geometries are encoded as GeoJSON in EPSG:4326. The service never returns
// geometry; results come back index-aligned with the request.
type Feature struct {
	Geometry   geom.T
	Properties map[string]float64
}

type featureJSON struct {
	Geometry   *geojson.Geometry  `json:"geometry"`
	Properties map[string]float64 `json:"properties,omitempty"`
}

// MarshalJSON encodes the feature geometry as GeoJSON.
func (f Feature) MarshalJSON() ([]byte, error) {
	g, err := geojson.Encode(f.Geometry)
	if err != nil {
		return nil, eris.Wrap(err, "engine: encode feature geometry")
	}
	return json.Marshal(featureJSON{Geometry: g, Properties: f.Properties})
}

// UnmarshalJSON decodes the feature geometry from GeoJSON.
func (f *Feature) UnmarshalJSON(data []byte) error {
	var fj featureJSON
	if err := json.Unmarshal(data, &fj); err != nil {
		return eris.Wrap(err, "engine: decode feature")
	}
	if fj.Geometry != nil {
		g, err := fj.Geometry.Decode()
		if err != nil {
			return eris.Wrap(err, "engine: decode feature geometry")
		}
		f.Geometry = g
	}
	f.Properties = fj.Properties
	return nil
}

// ReduceRequest asks the service to reduce every feature against the image
// (or band stack) of a single reduction entry.
type ReduceRequest struct {
	Key        string    `json:"key"`
	Reduction  Reduction `json:"reduction"`
	Features   []Feature `json:"features"`
	Scale      float64   `json:"scale"`
	CRS        string    `json:"crs"`
	MaxPixels  float64   `json:"maxPixels"`
	BestEffort bool      `json:"bestEffort"`
}

// FeatureResult maps result keys to reduced values for one input feature.
type FeatureResult map[string]Value

// ReduceResponse carries per-feature results, index-aligned with the
// request's feature list.
type ReduceResponse struct {
	Results []FeatureResult `json:"results"`
}
