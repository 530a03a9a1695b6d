package metrics

import (
	"context"
	_ "embed"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

//go:embed landcover.yaml
var landCoverDefsYAML []byte

type landCoverDefs struct {
	Taxonomy  map[string]string `yaml:"taxonomy"`
	ClassDefs []landCoverClass  `yaml:"class_defs"`
}

type landCoverClass struct {
	Slug    string   `yaml:"slug"`
	Classes []string `yaml:"classes"`
}

// LandCoverRecord holds 2015 land cover area per class group plus the
// total classified area, in km2.
type LandCoverRecord struct {
	Data2015 map[string]float64 `json:"data_2015"`
	AreaKM2  float64            `json:"area_km2"`
}

// MetricSlug implements Record.
func (LandCoverRecord) MetricSlug() string { return SlugLandCover }

// LandCover measures land use / land cover class areas for 2015.
type LandCover struct {
	slug    string
	dataset string
	defs    landCoverDefs
	client  engine.Client
}

// NewLandCover builds the metric from configuration and the embedded
// class taxonomy.
func NewLandCover(cfg *config.Config, client engine.Client) (*LandCover, error) {
	mc := cfg.Metrics.LandCover
	if mc.Dataset == "" {
		return nil, eris.Wrap(ErrConfiguration, "metrics: land_cover.dataset missing")
	}
	var defs landCoverDefs
	if err := yaml.Unmarshal(landCoverDefsYAML, &defs); err != nil {
		return nil, eris.Wrap(err, "metrics: parse land cover taxonomy")
	}
	if len(defs.Taxonomy) == 0 || len(defs.ClassDefs) == 0 {
		return nil, eris.Wrap(ErrConfiguration, "metrics: land cover taxonomy empty")
	}
	return &LandCover{slug: mc.Slug, dataset: mc.Dataset, defs: defs, client: client}, nil
}

// Slug returns the configured publication slug.
func (m *LandCover) Slug() string { return m.slug }

// Measure reduces per-class areas over the set and groups them into the
// taxonomy's class definitions.
func (m *LandCover) Measure(ctx context.Context, set *geometry.Set, opts Options) (Record, error) {
	p := newPipeline(SlugLandCover, m.client, 300, opts)
	if err := p.gate(); err != nil {
		return nil, err
	}

	feats, err := p.breakdown(set)
	if err != nil {
		return nil, err
	}

	classes := make([]string, 0, len(m.defs.Taxonomy))
	for k := range m.defs.Taxonomy {
		classes = append(classes, k)
	}
	sort.Slice(classes, func(i, j int) bool {
		a, _ := strconv.Atoi(classes[i])
		b, _ := strconv.Atoi(classes[j])
		return a < b
	})

	bands := make([]engine.NamedBand, 0, len(classes))
	for _, class := range classes {
		v, err := strconv.ParseFloat(class, 64)
		if err != nil {
			return nil, eris.Wrapf(ErrConfiguration, "metrics: bad land cover class %q", class)
		}
		bands = append(bands, engine.NamedBand{
			Name:  class,
			Image: engine.PixelAreaKM2().Masked(engine.MaskAll(m.dataset, engine.Eq(v))),
		})
	}

	reductions := map[string]engine.Reduction{
		"land_cover_2015": engine.ReduceStack(bands, engine.Sum()),
	}

	results, err := p.reduce(ctx, feats, reductions)
	if err != nil {
		return nil, err
	}
	return m.packageMetric(m.aggregate(results))
}

type landCoverAggregate struct {
	data2015 map[string]float64
	area     float64
}

func (m *LandCover) aggregate(results []engine.FeatureResult) *landCoverAggregate {
	if len(results) == 0 {
		return nil
	}
	agg := &landCoverAggregate{data2015: map[string]float64{}}
	for _, def := range m.defs.ClassDefs {
		var sum float64
		for _, r := range results {
			classAreas := r["land_cover_2015"].Map()
			for _, class := range def.Classes {
				sum += classAreas[class]
			}
		}
		agg.data2015[def.Slug] = sum
		agg.area += sum
	}
	return agg
}

func (m *LandCover) packageMetric(agg *landCoverAggregate) (Record, error) {
	if agg == nil {
		return nil, eris.Wrapf(ErrPackage, "metrics: %s", SlugLandCover)
	}
	return LandCoverRecord{Data2015: agg.data2015, AreaKM2: agg.area}, nil
}
