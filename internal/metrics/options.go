package metrics

// Options controls geometry preparation and reduction for a single
// measurement. The zero value selects the defaults below.
type Options struct {
	// Grid subdivides features larger than AreaThresholdKM2 into
	// GridSizeDegrees cells before reduction.
	Grid bool
	// Simplify reduces coordinate counts so shapes fit the service's
	// payload limits.
	Simplify bool
	// AreaThresholdKM2 is the feature size above which gridding applies.
	// Defaults to 1e6.
	AreaThresholdKM2 float64
	// GridSizeDegrees is the grid cell edge in arc degrees. Defaults to 1.
	GridSizeDegrees float64
	// ChunkSize caps features per service call. Defaults to 500.
	ChunkSize int
	// Scale is the reduction pixel scale in meters. Zero selects the
	// metric's default.
	Scale float64
	// BestEffort lets the service coarsen the scale instead of failing on
	// large regions, and caps MaxPixels at 1e7. Nil selects the metric's
	// default (true).
	BestEffort *bool
	// MaxPixels bounds the pixel count per reduction. Defaults to 1e18.
	MaxPixels float64
	// UseExceedsLimit enables the pre-reduction area gate. The gate only
	// fires when KnownAreaKM2 is supplied.
	UseExceedsLimit bool
	// KnownAreaKM2 is a caller-supplied area for the gate; values <= 0
	// mean unknown.
	KnownAreaKM2 float64
	// StartDate and EndDate bound the analysis window for time-series
	// metrics, as ISO "YYYY-MM-DD". Empty selects the configured defaults.
	StartDate string
	EndDate   string
}

// Bool returns a pointer to v, for setting Options.BestEffort.
func Bool(v bool) *bool { return &v }

func (o Options) withDefaults() Options {
	if o.AreaThresholdKM2 <= 0 {
		o.AreaThresholdKM2 = 1e6
	}
	if o.GridSizeDegrees <= 0 {
		o.GridSizeDegrees = 1
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = 500
	}
	if o.MaxPixels <= 0 {
		o.MaxPixels = 1e18
	}
	return o
}
