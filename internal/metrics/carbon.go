package metrics

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// TerrestrialCarbonRecord holds biomass carbon totals in tonnes and
// per-km2 densities. Soil carbon is the total minus the biomass carbon.
type TerrestrialCarbonRecord struct {
	AreaKM2          float64 `json:"area_km2"`
	CarbonDensity    float64 `json:"carbon_density"`
	CarbonSoilTotalT float64 `json:"carbon_soil_total_t"`
	CarbonTotalT     float64 `json:"carbon_total_t"`
	SoilDensity      float64 `json:"soil_density"`
	SoilTotalT       float64 `json:"soil_total_t"`
	TotalDensity     float64 `json:"total_density"`
}

// MetricSlug implements Record.
func (TerrestrialCarbonRecord) MetricSlug() string { return SlugTerrestrialCarbon }

// TerrestrialCarbon measures biomass carbon from per-hectare density
// rasters: one for biomass carbon, one for combined carbon plus soil.
type TerrestrialCarbon struct {
	slug     string
	carbonDS string
	totalDS  string
	client   engine.Client
}

// NewTerrestrialCarbon builds the metric from configuration. The config
// block carries datasets keyed "carbon" and "total".
func NewTerrestrialCarbon(cfg *config.Config, client engine.Client) (*TerrestrialCarbon, error) {
	mc := cfg.Metrics.TerrestrialCarbon
	carbonDS, totalDS := mc.Datasets["carbon"], mc.Datasets["total"]
	if carbonDS == "" || totalDS == "" {
		return nil, eris.Wrap(ErrConfiguration, "metrics: terrestrial_carbon.datasets requires carbon and total")
	}
	return &TerrestrialCarbon{slug: mc.Slug, carbonDS: carbonDS, totalDS: totalDS, client: client}, nil
}

// Slug returns the configured publication slug.
func (m *TerrestrialCarbon) Slug() string { return m.slug }

// Measure reduces tonne totals over the set and folds the results.
func (m *TerrestrialCarbon) Measure(ctx context.Context, set *geometry.Set, opts Options) (Record, error) {
	p := newPipeline(SlugTerrestrialCarbon, m.client, 300, opts)
	if err := p.gate(); err != nil {
		return nil, err
	}

	feats, err := p.breakdown(set)
	if err != nil {
		return nil, err
	}

	// density (t/ha) times pixel area (m2) over 1e4 gives tonnes; negative
	// density encodes no data
	tonnes := func(ds string) engine.Image {
		return engine.Image{
			Dataset:   ds,
			TimesArea: true,
			Factor:    1e-4,
			Masks:     []engine.Mask{engine.MaskAll("", engine.Gte(0))},
		}
	}

	reductions := map[string]engine.Reduction{
		"terrestrial_carbon": engine.ReduceStack([]engine.NamedBand{
			{Name: "carbon", Image: tonnes(m.carbonDS)},
			{Name: "total", Image: tonnes(m.totalDS)},
			{Name: "area", Image: engine.PixelAreaKM2()},
		}, engine.Sum()),
	}

	results, err := p.reduce(ctx, feats, reductions)
	if err != nil {
		return nil, err
	}
	return m.packageMetric(m.aggregate(results))
}

type terrestrialCarbonAggregate struct {
	area       float64
	carbonSoil float64
	carbon     float64
}

func (m *TerrestrialCarbon) aggregate(results []engine.FeatureResult) *terrestrialCarbonAggregate {
	if len(results) == 0 {
		return nil
	}
	agg := &terrestrialCarbonAggregate{}
	for _, r := range results {
		bands := r["terrestrial_carbon"].Map()
		agg.area += bands["area"]
		agg.carbonSoil += bands["total"]
		agg.carbon += bands["carbon"]
	}
	if agg.area == 0 {
		return nil
	}
	return agg
}

func (m *TerrestrialCarbon) packageMetric(agg *terrestrialCarbonAggregate) (Record, error) {
	if agg == nil {
		return nil, eris.Wrapf(ErrPackage, "metrics: %s", SlugTerrestrialCarbon)
	}
	soil := agg.carbonSoil - agg.carbon
	return TerrestrialCarbonRecord{
		AreaKM2:          agg.area,
		CarbonSoilTotalT: agg.carbonSoil,
		CarbonTotalT:     agg.carbon,
		SoilTotalT:       soil,
		CarbonDensity:    agg.carbon / agg.area,
		SoilDensity:      soil / agg.area,
		TotalDensity:     agg.carbonSoil / agg.area,
	}, nil
}
