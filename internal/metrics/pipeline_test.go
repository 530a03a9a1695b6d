package metrics

import (
	"context"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// fakeClient records every reduce request and answers from a respond
// function, or with zero scalars when none is set.
type fakeClient struct {
	mu       sync.Mutex
	requests []*engine.ReduceRequest
	respond  func(req *engine.ReduceRequest) (*engine.ReduceResponse, error)
}

func (f *fakeClient) ReduceRegions(_ context.Context, req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.respond != nil {
		return f.respond(req)
	}
	results := make([]engine.FeatureResult, len(req.Features))
	for i := range results {
		results[i] = engine.FeatureResult{req.Key: engine.ScalarValue(0)}
	}
	return &engine.ReduceResponse{Results: results}, nil
}

func (f *fakeClient) requestsForKey(key string) []*engine.ReduceRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*engine.ReduceRequest
	for _, r := range f.requests {
		if r.Key == key {
			out = append(out, r)
		}
	}
	return out
}

// unitSquare returns a 1x1 degree polygon with its lower-left corner at
// (lon, lat).
func unitSquare(lon, lat float64) *geom.Polygon {
	return geom.NewPolygon(geom.XY).MustSetCoords([][]geom.Coord{{
		{lon, lat}, {lon + 1, lat}, {lon + 1, lat + 1}, {lon, lat + 1}, {lon, lat},
	}})
}

// testSet builds a set of n unit squares spread along the equator.
func testSet(t *testing.T, n int) *geometry.Set {
	t.Helper()
	geoms := make([]geom.T, 0, n)
	for i := 0; i < n; i++ {
		geoms = append(geoms, unitSquare(float64(i%170), 0))
	}
	set, err := geometry.NewSet(geoms...)
	require.NoError(t, err)
	return set
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Metrics.BiodiversityIntactness = config.DatasetConfig{Slug: "biodiversity-intactness", Dataset: "projects/test/bii"}
	cfg.Metrics.TreeLoss = config.DatasetConfig{Slug: "tree-loss", Dataset: "projects/test/tree-loss"}
	cfg.Metrics.LandCover = config.DatasetConfig{Slug: "land-use", Dataset: "projects/test/land-cover"}
	cfg.Metrics.ProtectedAreas = config.DatasetConfig{Slug: "protected-areas", Dataset: "projects/test/wdpa"}
	cfg.Metrics.HumanImpact = config.DatasetConfig{Slug: "human-impact", Dataset: "projects/test/human-impact"}
	cfg.Metrics.HumanFootprint = config.MultiDatasetConfig{
		Slug:     "human-footprint",
		Datasets: map[string]string{"1993": "projects/test/hfp-1993", "2009": "projects/test/hfp-2009"},
	}
	cfg.Metrics.TerrestrialCarbon = config.MultiDatasetConfig{
		Slug:     "terrestrial-carbon",
		Datasets: map[string]string{"carbon": "projects/test/carbon", "total": "projects/test/carbon-total"},
	}
	cfg.Metrics.ModisFire = config.FireConfig{
		Slug:      "modis-fire",
		Dataset:   "projects/test/burned-area",
		StartDate: "2018-01-01",
		EndDate:   "2018-12-31",
	}
	cfg.Metrics.ModisEvi = config.MultiDatasetConfig{
		Slug: "modis-evi",
		Datasets: map[string]string{
			"2001": "projects/test/evi-2001",
			"2002": "projects/test/evi-2002",
			"2003": "projects/test/evi-2003",
			"2004": "projects/test/evi-2004",
			"2005": "projects/test/evi-2005",
		},
	}
	return cfg
}

// protectedRespond answers every protected-areas key with fixed per-feature
// areas so aggregates are easy to predict.
func protectedRespond(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
	values := map[string]float64{
		"area":        1.0,
		"area_land":   0.25,
		"area_marine": 0.25,
	}
	results := make([]engine.FeatureResult, len(req.Features))
	for i := range results {
		results[i] = engine.FeatureResult{req.Key: engine.ScalarValue(values[req.Key])}
	}
	return &engine.ReduceResponse{Results: results}, nil
}

func TestReduceChunking(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: protectedRespond}
	m, err := NewProtectedAreas(testConfig(), client)
	require.NoError(t, err)

	rec, err := m.Measure(context.Background(), testSet(t, 1200), Options{ChunkSize: 500})
	require.NoError(t, err)

	// 1200 features in chunks of 500 -> three calls per reduction key
	areaReqs := client.requestsForKey("area")
	require.Len(t, areaReqs, 3)
	assert.Len(t, areaReqs[0].Features, 500)
	assert.Len(t, areaReqs[1].Features, 500)
	assert.Len(t, areaReqs[2].Features, 200)

	pr := rec.(ProtectedAreasRecord)
	assert.InDelta(t, 1200.0, pr.AreaKM2, 1e-9)
}

func TestReduceChunkingTransparent(t *testing.T) {
	t.Parallel()

	measure := func(chunkSize int) ProtectedAreasRecord {
		client := &fakeClient{respond: protectedRespond}
		m, err := NewProtectedAreas(testConfig(), client)
		require.NoError(t, err)
		rec, err := m.Measure(context.Background(), testSet(t, 23), Options{ChunkSize: chunkSize})
		require.NoError(t, err)
		return rec.(ProtectedAreasRecord)
	}

	// chunk size must not change the aggregate
	assert.Equal(t, measure(23), measure(5))
	assert.Equal(t, measure(23), measure(1))
}

func TestReduceRequestShape(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: protectedRespond}
	m, err := NewProtectedAreas(testConfig(), client)
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), testSet(t, 1), Options{})
	require.NoError(t, err)

	for _, req := range client.requests {
		assert.Equal(t, "EPSG:4326", req.CRS)
		assert.InDelta(t, 30.0, req.Scale, 1e-9)
		assert.True(t, req.BestEffort)
		assert.InDelta(t, 1e7, req.MaxPixels, 1e-9)
	}
}

func TestReduceBestEffortDisabled(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: protectedRespond}
	m, err := NewProtectedAreas(testConfig(), client)
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), testSet(t, 1), Options{BestEffort: Bool(false)})
	require.NoError(t, err)

	for _, req := range client.requests {
		assert.False(t, req.BestEffort)
		assert.InDelta(t, 1e18, req.MaxPixels, 1)
	}
}

func TestReduceErrorPropagates(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		return nil, eris.New("engine: unexpected status 502")
	}}
	m, err := NewProtectedAreas(testConfig(), client)
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), testSet(t, 5), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	// no retries: exactly one call before failing
	assert.Len(t, client.requests, 1)
}

func TestGateTreeLossFamily(t *testing.T) {
	t.Parallel()

	m, err := NewTreeLoss(testConfig(), &fakeClient{})
	require.NoError(t, err)

	// 3e9 pixels at 30m is 2.7e6 km2
	_, err = m.Measure(context.Background(), testSet(t, 1), Options{
		UseExceedsLimit: true,
		KnownAreaKM2:    4e6,
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrAreaLimit))
}

func TestGateFireFamily(t *testing.T) {
	t.Parallel()

	m, err := NewModisFire(testConfig(), &fakeClient{})
	require.NoError(t, err)

	// 1.1e7 pixels at 500m is 2.75e6 km2
	_, err = m.Measure(context.Background(), testSet(t, 1), Options{
		UseExceedsLimit: true,
		KnownAreaKM2:    3e6,
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrAreaLimit))
}

func TestGateOnlyWithKnownArea(t *testing.T) {
	t.Parallel()

	client := &fakeClient{respond: protectedRespond}
	m, err := NewProtectedAreas(testConfig(), client)
	require.NoError(t, err)

	// protected-areas gates at 3e9 pixels; without a known area the gate
	// never fires regardless of geometry size
	_, err = m.Measure(context.Background(), testSet(t, 1), Options{UseExceedsLimit: true})
	assert.NoError(t, err)
}

func TestGateUngatedFamily(t *testing.T) {
	t.Parallel()

	client := &fakeClient{}
	m, err := NewLandCover(testConfig(), client)
	require.NoError(t, err)

	respond := func(req *engine.ReduceRequest) (*engine.ReduceResponse, error) {
		results := make([]engine.FeatureResult, len(req.Features))
		for i := range results {
			results[i] = engine.FeatureResult{req.Key: engine.MapValue(map[string]float64{"10": 1})}
		}
		return &engine.ReduceResponse{Results: results}, nil
	}
	client.respond = respond

	// land-use has no limit rule even for enormous known areas
	_, err = m.Measure(context.Background(), testSet(t, 1), Options{
		UseExceedsLimit: true,
		KnownAreaKM2:    1e9,
	})
	assert.NoError(t, err)
}

func TestMeasureRejectsEmptySet(t *testing.T) {
	t.Parallel()

	m, err := NewProtectedAreas(testConfig(), &fakeClient{})
	require.NoError(t, err)

	set, err := geometry.NewSet()
	require.NoError(t, err)

	_, err = m.Measure(context.Background(), set, Options{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, geometry.ErrNotPolygonal))
}

func TestNewUnknownMetric(t *testing.T) {
	t.Parallel()

	_, err := New("no-such-metric", testConfig(), &fakeClient{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrConfiguration))
}

func TestNewAllSlugs(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	for _, slug := range Slugs() {
		m, err := New(slug, cfg, &fakeClient{})
		require.NoError(t, err, slug)
		assert.Equal(t, slug, m.Slug())
	}
}

func TestNewMissingDataset(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Metrics.TreeLoss.Dataset = ""
	_, err := NewTreeLoss(cfg, &fakeClient{})
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrConfiguration))
}
