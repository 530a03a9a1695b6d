package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonal-metrics/pkg/engine"
)

func TestHumanFootprintMeasure(t *testing.T) {
	t.Parallel()

	perKey := map[string]engine.Value{
		"human_footprint_area": engine.MapValue(map[string]float64{
			"1993": 300, "2009": 450, "area": 150,
		}),
		"human_footprint_px": engine.MapValue(map[string]float64{
			"1993": 280, "2009": 440,
		}),
	}
	client := &fakeClient{respond: func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		results := make([]engine.FeatureResult, len(req.Features))
		for i := range results {
			results[i] = engine.FeatureResult{req.Key: perKey[req.Key]}
		}
		return &engine.ReduceResponse{Results: results}, nil
	}}

	m, err := NewHumanFootprint(testConfig(), client)
	require.NoError(t, err)

	rec, err := m.Measure(context.Background(), testSet(t, 2), Options{})
	require.NoError(t, err)
	hr := rec.(HumanFootprintRecord)

	assert.InDelta(t, 300.0, hr.AreaKM2, 1e-9)
	assert.InDelta(t, 2.0, hr.Mean93, 1e-9) // 600 / 300
	assert.InDelta(t, 3.0, hr.Mean09, 1e-9) // 900 / 300
	assert.InDelta(t, 1.0, hr.Delta, 1e-9)
	assert.InDelta(t, 2.0*560, hr.Sum93, 1e-9)
	assert.InDelta(t, 3.0*880, hr.Sum09, 1e-9)
}

func TestHumanFootprintBandStacks(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		results := []engine.FeatureResult{{req.Key: engine.MapValue(map[string]float64{"area": 1})}}
		return &engine.ReduceResponse{Results: results}, nil
	}}

	m, err := NewHumanFootprint(testConfig(), client)
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), testSet(t, 1), Options{})
	require.NoError(t, err)

	areaReqs := client.requestsForKey("human_footprint_area")
	require.Len(t, areaReqs, 1)
	bands := areaReqs[0].Reduction.Bands
	require.Len(t, bands, 3)
	assert.Equal(t, "1993", bands[0].Name)
	assert.True(t, bands[0].Image.TimesArea)
	assert.Empty(t, bands[0].Image.Masks)
	assert.Equal(t, "area", bands[2].Name)

	pxReqs := client.requestsForKey("human_footprint_px")
	require.Len(t, pxReqs, 1)
	bands = pxReqs[0].Reduction.Bands
	require.Len(t, bands, 2)
	// the presence stacks mask against their own values
	require.Len(t, bands[0].Image.Masks, 1)
	assert.Empty(t, bands[0].Image.Masks[0].Dataset)
	assert.Equal(t, engine.OpGte, bands[0].Image.Masks[0].Predicates[0].Op)
}

func TestHumanFootprintMissingEpoch(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	delete(cfg.Metrics.HumanFootprint.Datasets, "2009")
	_, err := NewHumanFootprint(cfg, &fakeClient{})
	require.Error(t, err)
}
