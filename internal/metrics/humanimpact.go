package metrics

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// HumanImpactRecord breaks down a region by human influence category
// (0 lowest .. 4 highest, -1 no data). The masked share is the residual
// of the named categories against the total area.
type HumanImpactRecord struct {
	AreaKM2    float64 `json:"area_km2"`
	Area0      float64 `json:"area_0"`
	Area1      float64 `json:"area_1"`
	Area2      float64 `json:"area_2"`
	Area3      float64 `json:"area_3"`
	Area4      float64 `json:"area_4"`
	AreaNoData float64 `json:"area_no_data"`
	AreaMasked float64 `json:"area_masked"`
	Perc0      float64 `json:"perc_0"`
	Perc1      float64 `json:"perc_1"`
	Perc2      float64 `json:"perc_2"`
	Perc3      float64 `json:"perc_3"`
	Perc4      float64 `json:"perc_4"`
	PercNoData float64 `json:"perc_no_data"`
	PercMasked float64 `json:"perc_masked"`
}

// MetricSlug implements Record.
func (HumanImpactRecord) MetricSlug() string { return SlugHumanImpact }

// humanImpactCategories maps result keys to raster category values.
var humanImpactCategories = map[string]float64{
	"area_no_data": -1,
	"area_0":       0,
	"area_1":       1,
	"area_2":       2,
	"area_3":       3,
	"area_4":       4,
}

// HumanImpact measures the human influence ensemble index breakdown.
type HumanImpact struct {
	slug    string
	dataset string
	client  engine.Client
}

// NewHumanImpact builds the metric from configuration.
func NewHumanImpact(cfg *config.Config, client engine.Client) (*HumanImpact, error) {
	mc := cfg.Metrics.HumanImpact
	if mc.Dataset == "" {
		return nil, eris.Wrap(ErrConfiguration, "metrics: human_impact.dataset missing")
	}
	return &HumanImpact{slug: mc.Slug, dataset: mc.Dataset, client: client}, nil
}

// Slug returns the configured publication slug.
func (m *HumanImpact) Slug() string { return m.slug }

// Measure reduces per-category areas over the set and folds the results.
func (m *HumanImpact) Measure(ctx context.Context, set *geometry.Set, opts Options) (Record, error) {
	p := newPipeline(SlugHumanImpact, m.client, 1000, opts)
	if err := p.gate(); err != nil {
		return nil, err
	}

	feats, err := p.breakdown(set)
	if err != nil {
		return nil, err
	}

	reductions := map[string]engine.Reduction{
		"area": engine.ReduceBand(engine.PixelAreaKM2(), engine.Sum()),
	}
	for key, category := range humanImpactCategories {
		reductions[key] = engine.ReduceBand(
			engine.PixelAreaKM2().Masked(engine.MaskAll(m.dataset, engine.Eq(category))),
			engine.Sum(),
		)
	}

	results, err := p.reduce(ctx, feats, reductions)
	if err != nil {
		return nil, err
	}
	return m.packageMetric(m.aggregate(results))
}

type humanImpactAggregate struct {
	area       float64
	categories map[string]float64
	masked     float64
}

func (m *HumanImpact) aggregate(results []engine.FeatureResult) *humanImpactAggregate {
	if len(results) == 0 {
		return nil
	}
	agg := &humanImpactAggregate{categories: map[string]float64{}}
	for _, r := range results {
		agg.area += r["area"].Float64()
		for key := range humanImpactCategories {
			agg.categories[key] += r[key].Float64()
		}
	}
	if agg.area == 0 {
		return nil
	}
	named := 0.0
	for _, v := range agg.categories {
		named += v
	}
	agg.masked = agg.area - named
	return agg
}

func (m *HumanImpact) packageMetric(agg *humanImpactAggregate) (Record, error) {
	if agg == nil {
		return nil, eris.Wrapf(ErrPackage, "metrics: %s", SlugHumanImpact)
	}
	perc := func(v float64) float64 { return 100 * v / agg.area }
	return HumanImpactRecord{
		AreaKM2:    agg.area,
		Area0:      agg.categories["area_0"],
		Area1:      agg.categories["area_1"],
		Area2:      agg.categories["area_2"],
		Area3:      agg.categories["area_3"],
		Area4:      agg.categories["area_4"],
		AreaNoData: agg.categories["area_no_data"],
		AreaMasked: agg.masked,
		Perc0:      perc(agg.categories["area_0"]),
		Perc1:      perc(agg.categories["area_1"]),
		Perc2:      perc(agg.categories["area_2"]),
		Perc3:      perc(agg.categories["area_3"]),
		Perc4:      perc(agg.categories["area_4"]),
		PercNoData: perc(agg.categories["area_no_data"]),
		PercMasked: perc(agg.masked),
	}, nil
}
