package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonal-metrics/pkg/engine"
)

func TestLandCoverMeasure(t *testing.T) {
	t.Parallel()

	classAreas := map[string]float64{
		"10":  40, // agriculture
		"30":  10, // agriculture
		"60":  25, // forest
		"130": 15, // grassland
		"210": 5,  // water
	}
	client := &fakeClient{respond: func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		results := make([]engine.FeatureResult, len(req.Features))
		for i := range results {
			results[i] = engine.FeatureResult{req.Key: engine.MapValue(classAreas)}
		}
		return &engine.ReduceResponse{Results: results}, nil
	}}

	m, err := NewLandCover(testConfig(), client)
	require.NoError(t, err)

	rec, err := m.Measure(context.Background(), testSet(t, 2), Options{})
	require.NoError(t, err)
	lr := rec.(LandCoverRecord)

	assert.InDelta(t, 100.0, lr.Data2015["agriculture"], 1e-9)
	assert.InDelta(t, 50.0, lr.Data2015["forest"], 1e-9)
	assert.InDelta(t, 30.0, lr.Data2015["grassland"], 1e-9)
	assert.InDelta(t, 10.0, lr.Data2015["water"], 1e-9)
	assert.Zero(t, lr.Data2015["urban"])
}

func TestLandCoverCategoryCompleteness(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		areas := map[string]float64{"0": 1, "20": 3, "90": 7, "190": 2, "220": 0.5}
		results := make([]engine.FeatureResult, len(req.Features))
		for i := range results {
			results[i] = engine.FeatureResult{req.Key: engine.MapValue(areas)}
		}
		return &engine.ReduceResponse{Results: results}, nil
	}}

	m, err := NewLandCover(testConfig(), client)
	require.NoError(t, err)

	rec, err := m.Measure(context.Background(), testSet(t, 4), Options{})
	require.NoError(t, err)
	lr := rec.(LandCoverRecord)

	// the total is exactly the sum of the reported groups
	var sum float64
	for _, v := range lr.Data2015 {
		sum += v
	}
	assert.InDelta(t, lr.AreaKM2, sum, 1e-9)
	assert.InDelta(t, 4*13.5, lr.AreaKM2, 1e-9)
}

func TestLandCoverBandStackCoversTaxonomy(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		results := []engine.FeatureResult{{req.Key: engine.MapValue(map[string]float64{"10": 1})}}
		return &engine.ReduceResponse{Results: results}, nil
	}}

	m, err := NewLandCover(testConfig(), client)
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), testSet(t, 1), Options{})
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	red := client.requests[0].Reduction
	require.False(t, red.IsBand)
	assert.Len(t, red.Bands, len(m.defs.Taxonomy))

	// every class def class appears in the taxonomy and thus in the stack
	names := map[string]bool{}
	for _, b := range red.Bands {
		names[b.Name] = true
	}
	for _, def := range m.defs.ClassDefs {
		for _, class := range def.Classes {
			assert.True(t, names[class], "class %s missing from stack", class)
		}
	}
}
