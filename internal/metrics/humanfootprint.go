package metrics

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// HumanFootprintRecord compares the human footprint index between the
// 1993 and 2009 epochs: area-weighted means, their delta, and index sums.
type HumanFootprintRecord struct {
	AreaKM2 float64 `json:"area_km2"`
	Delta   float64 `json:"delta"`
	Mean09  float64 `json:"mean_09"`
	Mean93  float64 `json:"mean_93"`
	Sum09   float64 `json:"sum_09"`
	Sum93   float64 `json:"sum_93"`
}

// MetricSlug implements Record.
func (HumanFootprintRecord) MetricSlug() string { return SlugHumanFootprint }

// HumanFootprint measures the footprint index over the 1993 and 2009
// epoch rasters.
type HumanFootprint struct {
	slug   string
	ds93   string
	ds09   string
	client engine.Client
}

// NewHumanFootprint builds the metric from configuration. The config
// block carries one dataset per epoch, keyed "1993" and "2009".
func NewHumanFootprint(cfg *config.Config, client engine.Client) (*HumanFootprint, error) {
	mc := cfg.Metrics.HumanFootprint
	ds93, ds09 := mc.Datasets["1993"], mc.Datasets["2009"]
	if ds93 == "" || ds09 == "" {
		return nil, eris.Wrap(ErrConfiguration, "metrics: human_footprint.datasets requires 1993 and 2009")
	}
	return &HumanFootprint{slug: mc.Slug, ds93: ds93, ds09: ds09, client: client}, nil
}

// Slug returns the configured publication slug.
func (m *HumanFootprint) Slug() string { return m.slug }

// Measure reduces area-weighted index sums per epoch and folds the results.
func (m *HumanFootprint) Measure(ctx context.Context, set *geometry.Set, opts Options) (Record, error) {
	p := newPipeline(SlugHumanFootprint, m.client, 300, opts)
	if err := p.gate(); err != nil {
		return nil, err
	}

	feats, err := p.breakdown(set)
	if err != nil {
		return nil, err
	}

	// index value times pixel area, in km2 units
	weighted := func(ds string) engine.Image {
		return engine.Image{Dataset: ds, TimesArea: true, Factor: 1e-6}
	}
	// same product restricted to pixels that carry data
	present := func(ds string) engine.Image {
		im := weighted(ds)
		return im.Masked(engine.MaskAll("", engine.Gte(0)))
	}

	reductions := map[string]engine.Reduction{
		"human_footprint_area": engine.ReduceStack([]engine.NamedBand{
			{Name: "1993", Image: weighted(m.ds93)},
			{Name: "2009", Image: weighted(m.ds09)},
			{Name: "area", Image: engine.PixelAreaKM2()},
		}, engine.Sum()),
		"human_footprint_px": engine.ReduceStack([]engine.NamedBand{
			{Name: "1993", Image: present(m.ds93)},
			{Name: "2009", Image: present(m.ds09)},
		}, engine.Sum()),
	}

	results, err := p.reduce(ctx, feats, reductions)
	if err != nil {
		return nil, err
	}
	return m.packageMetric(m.aggregate(results))
}

type humanFootprintAggregate struct {
	area      float64
	sumArea93 float64
	sumArea09 float64
	px93      float64
	px09      float64
}

func (m *HumanFootprint) aggregate(results []engine.FeatureResult) *humanFootprintAggregate {
	if len(results) == 0 {
		return nil
	}
	agg := &humanFootprintAggregate{}
	for _, r := range results {
		areas := r["human_footprint_area"].Map()
		px := r["human_footprint_px"].Map()
		agg.area += areas["area"]
		agg.sumArea93 += areas["1993"]
		agg.sumArea09 += areas["2009"]
		agg.px93 += px["1993"]
		agg.px09 += px["2009"]
	}
	if agg.area == 0 {
		return nil
	}
	return agg
}

func (m *HumanFootprint) packageMetric(agg *humanFootprintAggregate) (Record, error) {
	if agg == nil {
		return nil, eris.Wrapf(ErrPackage, "metrics: %s", SlugHumanFootprint)
	}
	mean93 := agg.sumArea93 / agg.area
	mean09 := agg.sumArea09 / agg.area
	return HumanFootprintRecord{
		AreaKM2: agg.area,
		Delta:   mean09 - mean93,
		Mean09:  mean09,
		Mean93:  mean93,
		Sum09:   mean09 * agg.px09,
		Sum93:   mean93 * agg.px93,
	}, nil
}
