package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonal-metrics/pkg/engine"
)

func TestProtectedAreasMeasure(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		values := map[string]float64{"area": 200, "area_land": 80, "area_marine": 30}
		results := make([]engine.FeatureResult, len(req.Features))
		for i := range results {
			results[i] = engine.FeatureResult{req.Key: engine.ScalarValue(values[req.Key])}
		}
		return &engine.ReduceResponse{Results: results}, nil
	}}

	m, err := NewProtectedAreas(testConfig(), client)
	require.NoError(t, err)

	rec, err := m.Measure(context.Background(), testSet(t, 1), Options{})
	require.NoError(t, err)
	pr := rec.(ProtectedAreasRecord)

	assert.InDelta(t, 200.0, pr.AreaKM2, 1e-9)
	assert.InDelta(t, 80.0, pr.TerrestrialAreaKM2, 1e-9)
	assert.InDelta(t, 30.0, pr.MarineAreaKM2, 1e-9)
	// unprotected is the residual, so the categories always close
	assert.InDelta(t, 90.0, pr.UnprotectedAreaKM2, 1e-9)
	assert.InDelta(t, pr.AreaKM2,
		pr.TerrestrialAreaKM2+pr.MarineAreaKM2+pr.UnprotectedAreaKM2, 1e-9)

	assert.InDelta(t, 40.0, pr.TerrestrialPerc, 1e-9)
	assert.InDelta(t, 15.0, pr.MarinePerc, 1e-9)
	assert.InDelta(t, 45.0, pr.UnprotectedPerc, 1e-9)
	assert.InDelta(t, 100.0, pr.TerrestrialPerc+pr.MarinePerc+pr.UnprotectedPerc, 1e-9)
}

func TestProtectedAreasCategoryMasks(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: protectedRespond}
	m, err := NewProtectedAreas(testConfig(), client)
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), testSet(t, 1), Options{})
	require.NoError(t, err)

	landReqs := client.requestsForKey("area_land")
	require.Len(t, landReqs, 1)
	pred := landReqs[0].Reduction.Image.Masks[0].Predicates[0]
	assert.Equal(t, engine.OpEqOneOf, pred.Op)
	assert.Equal(t, []float64{1, 3}, pred.Values)

	marineReqs := client.requestsForKey("area_marine")
	require.Len(t, marineReqs, 1)
	pred = marineReqs[0].Reduction.Image.Masks[0].Predicates[0]
	assert.Equal(t, engine.OpEq, pred.Op)
	assert.InDelta(t, 2.0, pred.Value, 1e-9)

	// the total area band is unmasked pixel area
	areaReqs := client.requestsForKey("area")
	require.Len(t, areaReqs, 1)
	assert.True(t, areaReqs[0].Reduction.Image.PixelArea)
	assert.Empty(t, areaReqs[0].Reduction.Image.Masks)
}
