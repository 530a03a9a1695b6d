package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/zonal-metrics/pkg/engine"
)

func TestModisEviMeasure(t *testing.T) {
	t.Parallel()

	// linear series over a unit area: norm(year) = 0.1 * (year - 2000)
	bands := map[string]float64{
		"area": 1,
		"2001": 0.1,
		"2002": 0.2,
		"2003": 0.3,
		"2004": 0.4,
		"2005": 0.5,
	}
	client := &fakeClient{respond: func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		results := make([]engine.FeatureResult, len(req.Features))
		for i := range results {
			results[i] = engine.FeatureResult{req.Key: engine.MapValue(bands)}
		}
		return &engine.ReduceResponse{Results: results}, nil
	}}

	m, err := NewModisEvi(testConfig(), client)
	require.NoError(t, err)

	rec, err := m.Measure(context.Background(), testSet(t, 1), Options{})
	require.NoError(t, err)
	er := rec.(EviRecord)

	assert.InDelta(t, 1.0, er.AreaKM2, 1e-9)
	require.Len(t, er.YearData, 5)
	assert.Equal(t, 2001, er.YearData[0].Year)
	assert.InDelta(t, 0.1, er.YearData[0].Norm, 1e-9)
	// rescaled against the series maximum
	assert.InDelta(t, 0.2, er.YearData[0].Rescale, 1e-9)
	assert.InDelta(t, 1.0, er.YearData[4].Rescale, 1e-9)

	assert.InDelta(t, 0.3, er.Mean, 1e-9)
	assert.InDelta(t, 0.3, er.MeanNorm, 1e-9)

	// population std of {0.1..0.5} is sqrt(0.02)
	assert.InDelta(t, 0.3+0.1414213562, er.StdP1, 1e-6)
	assert.InDelta(t, 0.3-0.1414213562, er.StdM1, 1e-6)
	assert.InDelta(t, 0.3+2*0.1414213562, er.StdP2, 1e-6)
	assert.InDelta(t, 0.3-2*0.1414213562, er.StdM2, 1e-6)

	// the fit recovers the series exactly
	assert.InDelta(t, 0.1, er.RgSlope, 1e-9)
	assert.InDelta(t, 0.1, er.RgStart, 1e-9)
	assert.InDelta(t, 0.5, er.RgEnd, 1e-9)
}

func TestModisEviBandStackOrder(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		results := []engine.FeatureResult{{req.Key: engine.MapValue(map[string]float64{"area": 1, "2001": 0.1})}}
		return &engine.ReduceResponse{Results: results}, nil
	}}

	m, err := NewModisEvi(testConfig(), client)
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), testSet(t, 1), Options{})
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	bands := client.requests[0].Reduction.Bands
	require.Len(t, bands, 6)
	// years ascend regardless of config map order; area closes the stack
	for i, want := range []string{"2001", "2002", "2003", "2004", "2005", "area"} {
		assert.Equal(t, want, bands[i].Name)
	}
	// index bands are masked non-negative and area-weighted
	assert.True(t, bands[0].Image.TimesArea)
	require.Len(t, bands[0].Image.Masks, 1)
	assert.Equal(t, engine.OpGte, bands[0].Image.Masks[0].Predicates[0].Op)
}

func TestModisEviZeroArea(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		results := []engine.FeatureResult{{req.Key: engine.MapValue(map[string]float64{})}}
		return &engine.ReduceResponse{Results: results}, nil
	}}

	m, err := NewModisEvi(testConfig(), client)
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), testSet(t, 1), Options{})
	require.Error(t, err)
}
