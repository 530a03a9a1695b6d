package metrics

import (
	"context"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// reduceCRS is the coordinate system all reductions run in.
const reduceCRS = "EPSG:4326"

// bestEffortMaxPixels caps the pixel budget when best-effort reduction is
// enabled.
const bestEffortMaxPixels = 1e7

// limitRules maps metric families to their maximum pixel counts for the
// opt-in area gate.
var limitRules = []struct {
	slugs     []string
	threshold float64
}{
	{[]string{"tree-loss", "protected-areas"}, 3.0e9},
	{[]string{"modis-fire", "modis-evi"}, 1.1e7},
}

// pipeline carries the shared measurement machinery: the area gate,
// geometry breakdown, and chunked reduction against the remote service.
// Each metric embeds one per Measure call.
type pipeline struct {
	slug       string
	client     engine.Client
	opts       Options
	scale      float64
	bestEffort bool
	maxPixels  float64
	log        *zap.Logger
}

func newPipeline(slug string, client engine.Client, defaultScale float64, opts Options) pipeline {
	o := opts.withDefaults()

	scale := o.Scale
	if scale <= 0 {
		scale = defaultScale
	}
	bestEffort := true
	if o.BestEffort != nil {
		bestEffort = *o.BestEffort
	}
	maxPixels := o.MaxPixels
	if bestEffort {
		maxPixels = bestEffortMaxPixels
	}

	return pipeline{
		slug:       slug,
		client:     client,
		opts:       o,
		scale:      scale,
		bestEffort: bestEffort,
		maxPixels:  maxPixels,
		log:        zap.L().With(zap.String("component", "metrics."+slug)),
	}
}

// gate rejects geometries whose pixel count at the pipeline's scale exceeds
// the limit for the metric's family. It only fires when the caller opted in
// and supplied a known area.
func (p *pipeline) gate() error {
	if !p.opts.UseExceedsLimit || p.opts.KnownAreaKM2 <= 0 {
		return nil
	}
	pixels := p.opts.KnownAreaKM2 * 1e6 / (p.scale * p.scale)
	for _, rule := range limitRules {
		for _, s := range rule.slugs {
			if s == p.slug && pixels > rule.threshold {
				return eris.Wrapf(ErrAreaLimit,
					"metrics: %s: %.0f km2 is %.0f pixels at scale %.0f, limit %.0f",
					p.slug, p.opts.KnownAreaKM2, pixels, p.scale, rule.threshold)
			}
		}
	}
	return nil
}

// breakdown prepares the input set into reduction features: multipolygon
// decomposition, optional simplification, and optional gridding of
// oversized shapes. Grid cells carry their area as a feature property.
func (p *pipeline) breakdown(set *geometry.Set) ([]engine.Feature, error) {
	feats, err := geometry.Prepare(set, geometry.PrepareOptions{
		Simplify: p.opts.Simplify,
		Coarse:   p.opts.Simplify,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "metrics: %s: prepare geometry", p.slug)
	}

	if p.opts.Grid {
		feats = geometry.GridOversized(feats, p.opts.AreaThresholdKM2, p.opts.GridSizeDegrees)
		p.log.Info("created grid cells",
			zap.Int("count", len(feats)),
			zap.Float64("grid_size_degrees", p.opts.GridSizeDegrees),
		)
	}

	out := make([]engine.Feature, 0, len(feats))
	for _, f := range feats {
		ef := engine.Feature{Geometry: f.Polygon}
		if f.FromGrid {
			ef.Properties = map[string]float64{"area_km2": f.AreaKM2}
		}
		out = append(out, ef)
	}
	return out, nil
}

// reduce runs every reduction over the features in chunks and merges the
// per-key results into one property map per feature. Chunks are processed
// sequentially and results keep feature order, so chunking never changes
// the aggregate. Service errors propagate immediately; nothing is retried.
func (p *pipeline) reduce(ctx context.Context, feats []engine.Feature, reductions map[string]engine.Reduction) ([]engine.FeatureResult, error) {
	keys := make([]string, 0, len(reductions))
	for k := range reductions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	n := p.opts.ChunkSize
	out := make([]engine.FeatureResult, 0, len(feats))
	for i := 0; i < len(feats); i += n {
		end := min(i+n, len(feats))
		chunk := feats[i:end]
		p.log.Info("analysing chunk",
			zap.Int("chunk", i/n+1),
			zap.Int("features", len(chunk)),
		)

		merged := make([]engine.FeatureResult, len(chunk))
		for j := range merged {
			merged[j] = engine.FeatureResult{}
		}
		for _, k := range keys {
			resp, err := p.client.ReduceRegions(ctx, &engine.ReduceRequest{
				Key:        k,
				Reduction:  reductions[k],
				Features:   chunk,
				Scale:      p.scale,
				CRS:        reduceCRS,
				MaxPixels:  p.maxPixels,
				BestEffort: p.bestEffort,
			})
			if err != nil {
				return nil, eris.Wrapf(err, "metrics: %s: reduce %q", p.slug, k)
			}
			if len(resp.Results) != len(chunk) {
				return nil, eris.Errorf("metrics: %s: reduce %q returned %d results for %d features",
					p.slug, k, len(resp.Results), len(chunk))
			}
			for j, fr := range resp.Results {
				for rk, v := range fr {
					merged[j][rk] = v
				}
			}
		}
		out = append(out, merged...)
	}
	return out, nil
}
