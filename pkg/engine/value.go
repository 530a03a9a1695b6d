package engine

import (
	"bytes"
	"encoding/json"

	"github.com/rotisserie/eris"
)

type valueKind int

const (
	kindNull valueKind = iota
	kindScalar
	kindMap
	kindHistogram
)

// Value is a single reduction result. Depending on the reduction it is a
// scalar, a nested map of band name to scalar, or a histogram of
// (bin edge, count) pairs. The concrete shape is fixed at decode time.
type Value struct {
	kind  valueKind
	num   float64
	bands map[string]float64
	hist  [][2]float64
}

// ScalarValue wraps a plain number.
func ScalarValue(v float64) Value { return Value{kind: kindScalar, num: v} }

// MapValue wraps a nested band map.
func MapValue(m map[string]float64) Value { return Value{kind: kindMap, bands: m} }

// HistogramValue wraps histogram bins as (bin edge, count) pairs.
func HistogramValue(bins [][2]float64) Value { return Value{kind: kindHistogram, hist: bins} }

// IsNull reports whether the service returned no value for the key.
func (v Value) IsNull() bool { return v.kind == kindNull }

// Float64 returns the scalar value, or 0 for non-scalar kinds.
func (v Value) Float64() float64 { return v.num }

// Map returns the nested band map, or nil for other kinds.
func (v Value) Map() map[string]float64 { return v.bands }

// Histogram returns the histogram bins, or nil for other kinds.
func (v Value) Histogram() [][2]float64 { return v.hist }

// UnmarshalJSON decodes a number, an object of band scalars, or an array of
// two-element bin pairs.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch data[0] {
	case '{':
		m := map[string]float64{}
		if err := json.Unmarshal(data, &m); err != nil {
			return eris.Wrap(err, "engine: decode map value")
		}
		*v = Value{kind: kindMap, bands: m}
	case '[':
		var bins [][2]float64
		if err := json.Unmarshal(data, &bins); err != nil {
			return eris.Wrap(err, "engine: decode histogram value")
		}
		*v = Value{kind: kindHistogram, hist: bins}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return eris.Wrap(err, "engine: decode scalar value")
		}
		*v = Value{kind: kindScalar, num: n}
	}
	return nil
}

// MarshalJSON encodes the value in the same wire shape it decodes from.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindScalar:
		return json.Marshal(v.num)
	case kindMap:
		return json.Marshal(v.bands)
	case kindHistogram:
		return json.Marshal(v.hist)
	default:
		return []byte("null"), nil
	}
}
