package metrics

import (
	"context"
	"math"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// EviYear is one year of the vegetation index series: the area-weighted
// sum, its per-km2 normalization, and the value rescaled against the
// series maximum.
type EviYear struct {
	Year    int     `json:"year"`
	Value   float64 `json:"value"`
	Norm    float64 `json:"norm"`
	Rescale float64 `json:"rescale"`
}

// EviRecord summarizes the enhanced vegetation index over the configured
// years: the per-year series, means, deviation bands around the
// normalized mean, and a linear trend fit.
type EviRecord struct {
	YearData []EviYear `json:"year_data"`
	Mean     float64   `json:"mean"`
	MeanNorm float64   `json:"mean_norm"`
	AreaKM2  float64   `json:"area_km2"`
	StdP1    float64   `json:"std_p1"`
	StdM1    float64   `json:"std_m1"`
	StdP2    float64   `json:"std_p2"`
	StdM2    float64   `json:"std_m2"`
	RgSlope  float64   `json:"rg_slope"`
	RgStart  float64   `json:"rg_start"`
	RgEnd    float64   `json:"rg_end"`
}

// MetricSlug implements Record.
func (EviRecord) MetricSlug() string { return SlugModisEvi }

// ModisEvi measures the enhanced vegetation index trend across yearly
// composite rasters.
type ModisEvi struct {
	slug   string
	years  []int
	byYear map[int]string
	client engine.Client
}

// NewModisEvi builds the metric from configuration. The config block
// carries one dataset per year, keyed by the year.
func NewModisEvi(cfg *config.Config, client engine.Client) (*ModisEvi, error) {
	mc := cfg.Metrics.ModisEvi
	if len(mc.Datasets) == 0 {
		return nil, eris.Wrap(ErrConfiguration, "metrics: modis_evi.datasets missing")
	}
	byYear := make(map[int]string, len(mc.Datasets))
	years := make([]int, 0, len(mc.Datasets))
	for k, ds := range mc.Datasets {
		year, err := strconv.Atoi(k)
		if err != nil || ds == "" {
			return nil, eris.Wrapf(ErrConfiguration, "metrics: modis_evi dataset key %q", k)
		}
		byYear[year] = ds
		years = append(years, year)
	}
	sort.Ints(years)
	return &ModisEvi{slug: mc.Slug, years: years, byYear: byYear, client: client}, nil
}

// Slug returns the configured publication slug.
func (m *ModisEvi) Slug() string { return m.slug }

// Measure reduces per-year index sums over the set and folds the results.
func (m *ModisEvi) Measure(ctx context.Context, set *geometry.Set, opts Options) (Record, error) {
	p := newPipeline(SlugModisEvi, m.client, 250, opts)
	if err := p.gate(); err != nil {
		return nil, err
	}

	feats, err := p.breakdown(set)
	if err != nil {
		return nil, err
	}

	bands := make([]engine.NamedBand, 0, len(m.years)+1)
	for _, year := range m.years {
		// index value times pixel area in km2; negative values are no data
		bands = append(bands, engine.NamedBand{
			Name: strconv.Itoa(year),
			Image: engine.Image{
				Dataset:   m.byYear[year],
				TimesArea: true,
				Factor:    1e-6,
				Masks:     []engine.Mask{engine.MaskAll("", engine.Gte(0))},
			},
		})
	}
	bands = append(bands, engine.NamedBand{Name: "area", Image: engine.PixelAreaKM2()})

	reductions := map[string]engine.Reduction{
		"modis_evi": engine.ReduceStack(bands, engine.Sum()),
	}

	results, err := p.reduce(ctx, feats, reductions)
	if err != nil {
		return nil, err
	}
	return m.packageMetric(m.aggregate(results))
}

func (m *ModisEvi) aggregate(results []engine.FeatureResult) *EviRecord {
	if len(results) == 0 {
		return nil
	}

	values := make(map[int]float64, len(m.years))
	var area float64
	for _, r := range results {
		for k, v := range r["modis_evi"].Map() {
			if k == "area" {
				area += v
				continue
			}
			if year, err := strconv.Atoi(k); err == nil {
				values[year] += v
			}
		}
	}
	if area == 0 {
		return nil
	}

	yearData := make([]EviYear, 0, len(m.years))
	maxNorm := 0.0
	var sum float64
	for _, year := range m.years {
		norm := values[year] / area
		if norm > maxNorm {
			maxNorm = norm
		}
		sum += values[year]
		yearData = append(yearData, EviYear{Year: year, Value: values[year], Norm: norm})
	}
	if maxNorm > 0 {
		for i := range yearData {
			yearData[i].Rescale = yearData[i].Norm / maxNorm
		}
	}

	mean := sum / float64(len(yearData))
	meanNorm := mean / area

	var variance float64
	for _, y := range yearData {
		d := y.Norm - meanNorm
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(yearData)))

	slope, intercept := linearFit(yearData)
	first, last := float64(m.years[0]), float64(m.years[len(m.years)-1])

	return &EviRecord{
		YearData: yearData,
		Mean:     mean,
		MeanNorm: meanNorm,
		AreaKM2:  area,
		StdP1:    meanNorm + std,
		StdM1:    meanNorm - std,
		StdP2:    meanNorm + 2*std,
		StdM2:    meanNorm - 2*std,
		RgSlope:  slope,
		RgStart:  slope*first + intercept,
		RgEnd:    slope*last + intercept,
	}
}

// linearFit is a degree-1 least squares fit of normalized index over year.
func linearFit(yearData []EviYear) (slope, intercept float64) {
	n := float64(len(yearData))
	var sumX, sumY float64
	for _, y := range yearData {
		sumX += float64(y.Year)
		sumY += y.Norm
	}
	meanX, meanY := sumX/n, sumY/n

	var num, den float64
	for _, y := range yearData {
		dx := float64(y.Year) - meanX
		num += dx * (y.Norm - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0, meanY
	}
	return num / den, meanY - (num/den)*meanX
}

func (m *ModisEvi) packageMetric(rec *EviRecord) (Record, error) {
	if rec == nil {
		return nil, eris.Wrapf(ErrPackage, "metrics: %s", SlugModisEvi)
	}
	return *rec, nil
}
