package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// Burned-area raster bands. BurnDate carries the day of year a pixel
// burned; QA values above 4 flag detections over agricultural areas.
const (
	fireBurnDateBand = "BurnDate"
	fireQABand       = "QA"
	fireMaxQA        = 4
)

// FireWeek is the burned area observed in one ISO week, in km2.
type FireWeek struct {
	Year    int     `json:"year"`
	ISOWeek int     `json:"isoweek"`
	Value   float64 `json:"value"`
}

// FireRecord holds weekly burned areas over the analysis window.
type FireRecord struct {
	YearISOWeek []FireWeek `json:"year_isoweek"`
	StartDate   string     `json:"start_date"`
	EndDate     string     `json:"end_date"`
}

// MetricSlug implements Record.
func (FireRecord) MetricSlug() string { return SlugModisFire }

// ModisFire measures burned area per ISO week from a daily burned-area
// image collection.
type ModisFire struct {
	slug      string
	dataset   string
	startDate string
	endDate   string
	client    engine.Client
}

// NewModisFire builds the metric from configuration. The configured dates
// bound the default analysis window; Options can narrow or move it.
func NewModisFire(cfg *config.Config, client engine.Client) (*ModisFire, error) {
	mc := cfg.Metrics.ModisFire
	if mc.Dataset == "" {
		return nil, eris.Wrap(ErrConfiguration, "metrics: modis_fire.dataset missing")
	}
	if mc.StartDate == "" || mc.EndDate == "" {
		return nil, eris.Wrap(ErrConfiguration, "metrics: modis_fire date window missing")
	}
	return &ModisFire{
		slug:      mc.Slug,
		dataset:   mc.Dataset,
		startDate: mc.StartDate,
		endDate:   mc.EndDate,
		client:    client,
	}, nil
}

// Slug returns the configured publication slug.
func (m *ModisFire) Slug() string { return m.slug }

// Measure reduces weekly burned areas over the set and folds the results.
func (m *ModisFire) Measure(ctx context.Context, set *geometry.Set, opts Options) (Record, error) {
	p := newPipeline(SlugModisFire, m.client, 500, opts)
	if err := p.gate(); err != nil {
		return nil, err
	}

	startDate, endDate := m.startDate, m.endDate
	if opts.StartDate != "" {
		startDate = opts.StartDate
	}
	if opts.EndDate != "" {
		endDate = opts.EndDate
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return nil, eris.Wrapf(ErrConfiguration, "metrics: modis_fire start date %q", startDate)
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return nil, eris.Wrapf(ErrConfiguration, "metrics: modis_fire end date %q", endDate)
	}

	windows := weekWindows(start, end)
	if len(windows) == 0 {
		return nil, eris.Wrapf(ErrPackage, "metrics: %s: window %s..%s spans no whole week",
			SlugModisFire, startDate, endDate)
	}

	feats, err := p.breakdown(set)
	if err != nil {
		return nil, err
	}

	bands := make([]engine.NamedBand, 0, len(windows))
	for _, w := range windows {
		bands = append(bands, engine.NamedBand{
			Name:  fireWindowKey(w),
			Image: m.windowImage(w),
		})
	}

	reductions := map[string]engine.Reduction{
		"modis_fire": engine.ReduceStack(bands, engine.Sum()),
	}

	results, err := p.reduce(ctx, feats, reductions)
	if err != nil {
		return nil, err
	}
	return m.packageMetric(m.aggregate(windows, results), startDate, endDate)
}

func fireWindowKey(w weekWindow) string {
	return fmt.Sprintf("%d-%d", w.Year, w.ISOWeek)
}

// windowImage builds the pixel-area image masked to fires burned inside
// one week's day-of-year window, from the window year's mosaic. The QA
// prefilter drops invalid dates and agricultural detections. When a
// window wraps the year boundary the day predicates combine with OR.
func (m *ModisFire) windowImage(w weekWindow) engine.Image {
	filter := &engine.DateRange{
		Start: fmt.Sprintf("%d-01-01", w.Year),
		End:   fmt.Sprintf("%d-12-31", w.Year),
	}

	prefilter := engine.MaskAll(m.dataset,
		engine.Gt(0).OnBand(fireBurnDateBand),
		engine.Lt(367).OnBand(fireBurnDateBand),
		engine.Lte(fireMaxQA).OnBand(fireQABand),
	)
	prefilter.Filter = filter

	startDay := float64(w.StartDay)
	endDay := float64(w.EndDay - 1)
	var window engine.Mask
	if startDay > endDay {
		window = engine.MaskAny(m.dataset,
			engine.Gte(startDay).OnBand(fireBurnDateBand),
			engine.Lt(endDay).OnBand(fireBurnDateBand),
		)
	} else {
		window = engine.MaskAll(m.dataset,
			engine.Gte(startDay).OnBand(fireBurnDateBand),
			engine.Lt(endDay).OnBand(fireBurnDateBand),
		)
	}
	window.Filter = filter

	return engine.PixelAreaKM2().Masked(prefilter).Masked(window)
}

func (m *ModisFire) aggregate(windows []weekWindow, results []engine.FeatureResult) []FireWeek {
	if len(results) == 0 {
		return nil
	}
	out := make([]FireWeek, 0, len(windows))
	for _, w := range windows {
		key := fireWindowKey(w)
		var total float64
		for _, r := range results {
			total += r["modis_fire"].Map()[key]
		}
		out = append(out, FireWeek{Year: w.Year, ISOWeek: w.ISOWeek, Value: total})
	}
	return out
}

func (m *ModisFire) packageMetric(weeks []FireWeek, startDate, endDate string) (Record, error) {
	if len(weeks) == 0 {
		return nil, eris.Wrapf(ErrPackage, "metrics: %s", SlugModisFire)
	}
	return FireRecord{YearISOWeek: weeks, StartDate: startDate, EndDate: endDate}, nil
}
