package metrics

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// treeLossYears is the span of annual loss bands, 2001..2018.
const (
	treeLossFirstYear = 2001
	treeLossLastYear  = 2018
)

// treeLossBand is the loss-year band at the 30% canopy cover threshold.
const treeLossBand = "lossyear_30"

// TreeLossRecord holds tree cover loss area per year plus the total
// reduced area, both in km2.
type TreeLossRecord struct {
	YearData map[string]float64 `json:"year_data"`
	AreaKM2  float64            `json:"area_km2"`
}

// MetricSlug implements Record.
func (TreeLossRecord) MetricSlug() string { return SlugTreeLoss }

// TreeLoss measures annual tree cover loss at a 30% canopy threshold.
type TreeLoss struct {
	slug    string
	dataset string
	client  engine.Client
}

// NewTreeLoss builds the metric from configuration.
func NewTreeLoss(cfg *config.Config, client engine.Client) (*TreeLoss, error) {
	mc := cfg.Metrics.TreeLoss
	if mc.Dataset == "" {
		return nil, eris.Wrap(ErrConfiguration, "metrics: tree_loss.dataset missing")
	}
	return &TreeLoss{slug: mc.Slug, dataset: mc.Dataset, client: client}, nil
}

// Slug returns the configured publication slug.
func (m *TreeLoss) Slug() string { return m.slug }

// Measure reduces per-year loss areas over the set and folds the results.
func (m *TreeLoss) Measure(ctx context.Context, set *geometry.Set, opts Options) (Record, error) {
	p := newPipeline(SlugTreeLoss, m.client, 30, opts)
	if err := p.gate(); err != nil {
		return nil, err
	}

	feats, err := p.breakdown(set)
	if err != nil {
		return nil, err
	}

	bands := []engine.NamedBand{
		{Name: "area", Image: engine.PixelAreaKM2()},
	}
	for year := treeLossFirstYear; year <= treeLossLastYear; year++ {
		lossValue := float64(year - 2000)
		bands = append(bands, engine.NamedBand{
			Name: strconv.Itoa(year),
			Image: engine.PixelAreaKM2().Masked(
				engine.MaskAll(m.dataset, engine.Eq(lossValue).OnBand(treeLossBand)),
			),
		})
	}

	reductions := map[string]engine.Reduction{
		"tree_loss": engine.ReduceStack(bands, engine.Sum()),
	}

	results, err := p.reduce(ctx, feats, reductions)
	if err != nil {
		return nil, err
	}
	return m.packageMetric(m.aggregate(results))
}

type treeLossAggregate struct {
	yearData map[string]float64
	area     float64
}

func (m *TreeLoss) aggregate(results []engine.FeatureResult) *treeLossAggregate {
	if len(results) == 0 {
		return nil
	}
	agg := &treeLossAggregate{yearData: map[string]float64{}}
	for year := treeLossFirstYear; year <= treeLossLastYear; year++ {
		agg.yearData[strconv.Itoa(year)] = 0
	}
	for _, r := range results {
		for k, v := range r["tree_loss"].Map() {
			if k == "area" {
				agg.area += v
			} else {
				agg.yearData[k] += v
			}
		}
	}
	return agg
}

func (m *TreeLoss) packageMetric(agg *treeLossAggregate) (Record, error) {
	if agg == nil {
		return nil, eris.Wrapf(ErrPackage, "metrics: %s", SlugTreeLoss)
	}
	return TreeLossRecord{YearData: agg.yearData, AreaKM2: agg.area}, nil
}
