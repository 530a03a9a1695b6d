// Package metrics computes zonal environmental statistics over polygon
// collections. Each metric prepares the input geometry, dispatches chunked
// reductions to the remote raster service, and folds the per-feature
// results into a fixed typed record.
package metrics

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/zonal-metrics/internal/config"
	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

// Record is a packaged metric result ready for serialization.
type Record interface {
	// MetricSlug names the metric family that produced the record.
	MetricSlug() string
}

// Metric computes one environmental statistic over a polygon collection.
type Metric interface {
	Slug() string
	Measure(ctx context.Context, set *geometry.Set, opts Options) (Record, error)
}

// Canonical metric family names. Published slugs are configurable; these
// identify the computation and select area-gate rules.
const (
	SlugBiodiversityIntactness = "biodiversity-intactness"
	SlugTreeLoss               = "tree-loss"
	SlugLandCover              = "land-use"
	SlugProtectedAreas         = "protected-areas"
	SlugHumanImpact            = "human-impact"
	SlugHumanFootprint         = "human-footprint"
	SlugTerrestrialCarbon      = "terrestrial-carbon"
	SlugModisFire              = "modis-fire"
	SlugModisEvi               = "modis-evi"
)

// Slugs lists every metric family in registry order.
func Slugs() []string {
	return []string{
		SlugBiodiversityIntactness,
		SlugTreeLoss,
		SlugLandCover,
		SlugProtectedAreas,
		SlugHumanImpact,
		SlugHumanFootprint,
		SlugTerrestrialCarbon,
		SlugModisFire,
		SlugModisEvi,
	}
}

// New builds the metric for a canonical family name.
func New(slug string, cfg *config.Config, client engine.Client) (Metric, error) {
	switch slug {
	case SlugBiodiversityIntactness:
		return NewBiodiversityIntactness(cfg, client)
	case SlugTreeLoss:
		return NewTreeLoss(cfg, client)
	case SlugLandCover:
		return NewLandCover(cfg, client)
	case SlugProtectedAreas:
		return NewProtectedAreas(cfg, client)
	case SlugHumanImpact:
		return NewHumanImpact(cfg, client)
	case SlugHumanFootprint:
		return NewHumanFootprint(cfg, client)
	case SlugTerrestrialCarbon:
		return NewTerrestrialCarbon(cfg, client)
	case SlugModisFire:
		return NewModisFire(cfg, client)
	case SlugModisEvi:
		return NewModisEvi(cfg, client)
	default:
		return nil, eris.Wrapf(ErrConfiguration, "metrics: unknown metric %q", slug)
	}
}
