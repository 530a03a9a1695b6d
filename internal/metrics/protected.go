package metrics

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// ProtectedAreasRecord breaks down a region's area by protection type.
// The unprotected share is the residual of the named categories, so the
// categories always sum to the total.
type ProtectedAreasRecord struct {
	AreaKM2            float64 `json:"area_km2"`
	MarineAreaKM2      float64 `json:"marine_area_km2"`
	MarinePerc         float64 `json:"marine_perc"`
	TerrestrialAreaKM2 float64 `json:"terrestrial_area_km2"`
	TerrestrialPerc    float64 `json:"terrestrial_perc"`
	UnprotectedAreaKM2 float64 `json:"unprotected_area_km2"`
	UnprotectedPerc    float64 `json:"unprotected_perc"`
}

// MetricSlug implements Record.
func (ProtectedAreasRecord) MetricSlug() string { return SlugProtectedAreas }

// ProtectedAreas measures area under marine and terrestrial protection.
// Raster categories: 1 and 3 terrestrial, 2 marine.
type ProtectedAreas struct {
	slug    string
	dataset string
	client  engine.Client
}

// NewProtectedAreas builds the metric from configuration.
func NewProtectedAreas(cfg *config.Config, client engine.Client) (*ProtectedAreas, error) {
	mc := cfg.Metrics.ProtectedAreas
	if mc.Dataset == "" {
		return nil, eris.Wrap(ErrConfiguration, "metrics: protected_areas.dataset missing")
	}
	return &ProtectedAreas{slug: mc.Slug, dataset: mc.Dataset, client: client}, nil
}

// Slug returns the configured publication slug.
func (m *ProtectedAreas) Slug() string { return m.slug }

// Measure reduces per-category areas over the set and folds the results.
func (m *ProtectedAreas) Measure(ctx context.Context, set *geometry.Set, opts Options) (Record, error) {
	p := newPipeline(SlugProtectedAreas, m.client, 30, opts)
	if err := p.gate(); err != nil {
		return nil, err
	}

	feats, err := p.breakdown(set)
	if err != nil {
		return nil, err
	}

	reductions := map[string]engine.Reduction{
		"area": engine.ReduceBand(engine.PixelAreaKM2(), engine.Sum()),
		"area_land": engine.ReduceBand(
			engine.PixelAreaKM2().Masked(engine.MaskAll(m.dataset, engine.EqOneOf(1, 3))),
			engine.Sum(),
		),
		"area_marine": engine.ReduceBand(
			engine.PixelAreaKM2().Masked(engine.MaskAll(m.dataset, engine.Eq(2))),
			engine.Sum(),
		),
	}

	results, err := p.reduce(ctx, feats, reductions)
	if err != nil {
		return nil, err
	}
	return m.packageMetric(m.aggregate(results))
}

type protectedAreasAggregate struct {
	area       float64
	areaLand   float64
	areaMarine float64
}

func (m *ProtectedAreas) aggregate(results []engine.FeatureResult) *protectedAreasAggregate {
	if len(results) == 0 {
		return nil
	}
	agg := &protectedAreasAggregate{}
	for _, r := range results {
		agg.area += r["area"].Float64()
		agg.areaLand += r["area_land"].Float64()
		agg.areaMarine += r["area_marine"].Float64()
	}
	if agg.area == 0 {
		return nil
	}
	return agg
}

func (m *ProtectedAreas) packageMetric(agg *protectedAreasAggregate) (Record, error) {
	if agg == nil {
		return nil, eris.Wrapf(ErrPackage, "metrics: %s", SlugProtectedAreas)
	}
	unprotected := agg.area - agg.areaLand - agg.areaMarine
	return ProtectedAreasRecord{
		AreaKM2:            agg.area,
		MarineAreaKM2:      agg.areaMarine,
		TerrestrialAreaKM2: agg.areaLand,
		UnprotectedAreaKM2: unprotected,
		MarinePerc:         100 * agg.areaMarine / agg.area,
		TerrestrialPerc:    100 * agg.areaLand / agg.area,
		UnprotectedPerc:    100 * unprotected / agg.area,
	}, nil
}
