package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueDecodeScalar(t *testing.T) {
	t.Parallel()

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`42.5`), &v))
	assert.False(t, v.IsNull())
	assert.Equal(t, 42.5, v.Float64())
	assert.Nil(t, v.Map())
	assert.Nil(t, v.Histogram())
}

func TestValueDecodeMap(t *testing.T) {
	t.Parallel()

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"2001":1.5,"area":10}`), &v))
	assert.Equal(t, map[string]float64{"2001": 1.5, "area": 10}, v.Map())
	assert.Equal(t, 0.0, v.Float64())
}

func TestValueDecodeHistogram(t *testing.T) {
	t.Parallel()

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`[[0.0,12],[0.1,3],[0.2,0]]`), &v))
	require.Len(t, v.Histogram(), 3)
	assert.Equal(t, [2]float64{0.1, 3}, v.Histogram()[1])
}

func TestValueDecodeNull(t *testing.T) {
	t.Parallel()

	var v Value
	require.NoError(t, json.Unmarshal([]byte(`null`), &v))
	assert.True(t, v.IsNull())
}

func TestValueMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"scalar", ScalarValue(3.5), `3.5`},
		{"map", MapValue(map[string]float64{"a": 1}), `{"a":1}`},
		{"histogram", HistogramValue([][2]float64{{0, 2}}), `[[0,2]]`},
		{"null", Value{}, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			data, err := json.Marshal(tt.v)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestPredicateConstructors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Predicate{Op: OpGte, Value: 363}, Gte(363))
	assert.Equal(t, Predicate{Op: OpEqOneOf, Values: []float64{1, 3}}, EqOneOf(1, 3))
	assert.Equal(t, Predicate{Op: OpRange, Min: 0, Max: 367}, InRange(0, 367))
	assert.Equal(t, "QA", Lte(4).OnBand("QA").Band)
}

func TestImageMaskedDoesNotShareBacking(t *testing.T) {
	t.Parallel()

	base := PixelAreaKM2().Masked(MaskAll("wdpa", Eq(0)))
	a := base.Masked(MaskAll("wdpa", Eq(1)))
	b := base.Masked(MaskAll("wdpa", Eq(2)))

	require.Len(t, a.Masks, 2)
	require.Len(t, b.Masks, 2)
	assert.Equal(t, Eq(1), a.Masks[1].Predicates[0])
	assert.Equal(t, Eq(2), b.Masks[1].Predicates[0])
}
