package metrics

import (
	"context"
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// IntactnessRecord summarizes the biodiversity intactness index over a
// region: total area, intact area, the area-weighted mean index, and a
// decile histogram of pixel counts.
type IntactnessRecord struct {
	AreaKM2      float64 `json:"area_km2"`
	IntArea      float64 `json:"int_area"`
	IntPerc      float64 `json:"int_perc"`
	Percentile0  float64 `json:"percentile_0"`
	Percentile10 float64 `json:"percentile_10"`
	Percentile20 float64 `json:"percentile_20"`
	Percentile30 float64 `json:"percentile_30"`
	Percentile40 float64 `json:"percentile_40"`
	Percentile50 float64 `json:"percentile_50"`
	Percentile60 float64 `json:"percentile_60"`
	Percentile70 float64 `json:"percentile_70"`
	Percentile80 float64 `json:"percentile_80"`
	Percentile90 float64 `json:"percentile_90"`
}

// MetricSlug implements Record.
func (IntactnessRecord) MetricSlug() string { return SlugBiodiversityIntactness }

// BiodiversityIntactness measures the intactness index (0..1 per pixel)
// as a fixed decile histogram plus area-weighted sums.
type BiodiversityIntactness struct {
	slug    string
	dataset string
	client  engine.Client
}

// NewBiodiversityIntactness builds the metric from configuration.
func NewBiodiversityIntactness(cfg *config.Config, client engine.Client) (*BiodiversityIntactness, error) {
	mc := cfg.Metrics.BiodiversityIntactness
	if mc.Dataset == "" {
		return nil, eris.Wrap(ErrConfiguration, "metrics: biodiversity_intactness.dataset missing")
	}
	return &BiodiversityIntactness{slug: mc.Slug, dataset: mc.Dataset, client: client}, nil
}

// Slug returns the configured publication slug.
func (m *BiodiversityIntactness) Slug() string { return m.slug }

// Measure reduces the index over the set and folds the results.
func (m *BiodiversityIntactness) Measure(ctx context.Context, set *geometry.Set, opts Options) (Record, error) {
	p := newPipeline(SlugBiodiversityIntactness, m.client, 300, opts)
	if err := p.gate(); err != nil {
		return nil, err
	}

	feats, err := p.breakdown(set)
	if err != nil {
		return nil, err
	}

	reductions := map[string]engine.Reduction{
		// pixel counts per index decile
		"bii": engine.ReduceBand(
			engine.Image{Dataset: m.dataset},
			engine.FixedHistogram(0.0, 1.0, 10),
		),
		// area where the index is present
		"bii_area": engine.ReduceBand(
			engine.PixelAreaKM2().Masked(engine.MaskAll(m.dataset, engine.Gte(0))),
			engine.Sum(),
		),
		"area": engine.ReduceBand(engine.PixelAreaKM2(), engine.Sum()),
		// index value weighted by pixel area, for the mean
		"area_product": engine.ReduceBand(
			engine.Image{Dataset: m.dataset, TimesArea: true, Factor: 1e-6},
			engine.Sum(),
		),
	}

	results, err := p.reduce(ctx, feats, reductions)
	if err != nil {
		return nil, err
	}
	return m.packageMetric(m.aggregate(results))
}

type intactnessAggregate struct {
	area       float64
	intactness float64
	mean       float64
	hist       [10]float64
}

func (m *BiodiversityIntactness) aggregate(results []engine.FeatureResult) *intactnessAggregate {
	if len(results) == 0 {
		return nil
	}
	agg := &intactnessAggregate{}
	for _, r := range results {
		agg.area += r["area"].Float64()
		agg.intactness += r["bii_area"].Float64()
		agg.mean += r["area_product"].Float64()
		for _, bin := range r["bii"].Histogram() {
			// bin edges land on decile boundaries; round to absorb float noise
			idx := int(math.Round(bin[0] * 10))
			if idx >= 0 && idx < len(agg.hist) {
				agg.hist[idx] += bin[1]
			}
		}
	}
	if agg.area == 0 {
		return nil
	}
	agg.mean /= agg.area
	return agg
}

func (m *BiodiversityIntactness) packageMetric(agg *intactnessAggregate) (Record, error) {
	if agg == nil {
		return nil, eris.Wrapf(ErrPackage, "metrics: %s", SlugBiodiversityIntactness)
	}
	return IntactnessRecord{
		AreaKM2:      agg.area,
		IntArea:      math.Round(agg.intactness),
		IntPerc:      math.Round(100.0 * agg.mean),
		Percentile0:  agg.hist[0],
		Percentile10: agg.hist[1],
		Percentile20: agg.hist[2],
		Percentile30: agg.hist[3],
		Percentile40: agg.hist[4],
		Percentile50: agg.hist[5],
		Percentile60: agg.hist[6],
		Percentile70: agg.hist[7],
		Percentile80: agg.hist[8],
		Percentile90: agg.hist[9],
	}, nil
}
