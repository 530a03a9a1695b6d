package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/internal/input"
	"github.com/sells-group/zonal-metrics/internal/metrics"
	"github.com/sells-group/zonal-metrics/internal/store"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

var measureFlags struct {
	input         string
	metricSlugs   []string
	grid          bool
	simplify      bool
	bestEffort    bool
	scale         float64
	chunkSize     int
	areaThreshold float64
	gridSize      float64
	knownArea     float64
	startDate     string
	endDate       string
	save          bool
}

var measureCmd = &cobra.Command{
	Use:   "measure",
	Short: "Compute metrics for polygons in a GeoJSON or shapefile input",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("measure"); err != nil {
			return err
		}
		if measureFlags.input == "" {
			return eris.New("measure: --input is required")
		}

		slugs := measureFlags.metricSlugs
		if len(slugs) == 0 {
			slugs = metrics.Slugs()
		}

		set, err := loadInput(measureFlags.input)
		if err != nil {
			return err
		}

		var st store.Store
		if measureFlags.save {
			st, err = openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
		}

		records, err := runMeasure(cmd.Context(), newEngineClient(), slugs, set, measureOptions())
		if err != nil {
			return err
		}

		for _, rec := range records {
			if st != nil {
				if _, err := st.Save(cmd.Context(), rec.MetricSlug(), measureFlags.input, rec); err != nil {
					return err
				}
			}
		}
		return writeRecords(os.Stdout, records)
	},
}

func measureOptions() metrics.Options {
	opts := metrics.Options{
		Grid:             measureFlags.grid,
		Simplify:         measureFlags.simplify,
		AreaThresholdKM2: measureFlags.areaThreshold,
		GridSizeDegrees:  measureFlags.gridSize,
		ChunkSize:        measureFlags.chunkSize,
		Scale:            measureFlags.scale,
		KnownAreaKM2:     measureFlags.knownArea,
		UseExceedsLimit:  measureFlags.knownArea > 0,
		StartDate:        measureFlags.startDate,
		EndDate:          measureFlags.endDate,
	}
	if !measureFlags.bestEffort {
		opts.BestEffort = metrics.Bool(false)
	}
	return opts
}

func loadInput(path string) (*geometry.Set, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		return input.LoadShapefile(path)
	}
	return input.LoadGeoJSON(path)
}

func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func newEngineClient() engine.Client {
	return engine.NewClient(cfg.Engine.BaseURL, cfg.Engine.APIKey,
		engine.WithRateLimit(cfg.Engine.RateLimitPerSec, cfg.Engine.RateBurst))
}

// runMeasure computes each requested metric concurrently over the same
// prepared input and returns the records in slug order.
func runMeasure(ctx context.Context, client engine.Client, slugs []string, set *geometry.Set, opts metrics.Options) ([]metrics.Record, error) {
	var mu sync.Mutex
	records := make(map[string]metrics.Record, len(slugs))

	g, ctx := errgroup.WithContext(ctx)
	for _, slug := range slugs {
		g.Go(func() error {
			m, err := metrics.New(slug, cfg, client)
			if err != nil {
				return err
			}

			log := zap.L().With(zap.String("metric", slug))
			log.Info("measuring", zap.Int("features", set.Len()))

			rec, err := m.Measure(ctx, set, opts)
			if err != nil {
				log.Error("measurement failed", zap.Error(err))
				return err
			}

			mu.Lock()
			records[slug] = rec
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ordered := make([]metrics.Record, 0, len(records))
	keys := make([]string, 0, len(records))
	for k := range records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ordered = append(ordered, records[k])
	}
	return ordered, nil
}

func writeRecords(w io.Writer, records []metrics.Record) error {
	out := make(map[string]metrics.Record, len(records))
	for _, rec := range records {
		out[rec.MetricSlug()] = rec
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func init() {
	measureCmd.Flags().StringVar(&measureFlags.input, "input", "", "GeoJSON (.geojson/.json) or shapefile (.shp) path")
	measureCmd.Flags().StringSliceVar(&measureFlags.metricSlugs, "metric", nil, fmt.Sprintf("metric slugs to compute (default all: %s)", strings.Join(metrics.Slugs(), ", ")))
	measureCmd.Flags().BoolVar(&measureFlags.grid, "grid", false, "subdivide oversized features into grid cells")
	measureCmd.Flags().BoolVar(&measureFlags.simplify, "simplify", false, "simplify geometry before reduction")
	measureCmd.Flags().BoolVar(&measureFlags.bestEffort, "best-effort", true, "let the service coarsen scale on large regions")
	measureCmd.Flags().Float64Var(&measureFlags.scale, "scale", 0, "reduction scale in meters (default per metric)")
	measureCmd.Flags().IntVar(&measureFlags.chunkSize, "chunk-size", 0, "features per service call (default 500)")
	measureCmd.Flags().Float64Var(&measureFlags.areaThreshold, "area-threshold", 0, "gridding threshold in km2 (default 1e6)")
	measureCmd.Flags().Float64Var(&measureFlags.gridSize, "grid-size", 0, "grid cell edge in degrees (default 1)")
	measureCmd.Flags().Float64Var(&measureFlags.knownArea, "known-area", 0, "known region area in km2, enables the pre-reduction size gate")
	measureCmd.Flags().StringVar(&measureFlags.startDate, "start-date", "", "analysis window start (YYYY-MM-DD, time-series metrics)")
	measureCmd.Flags().StringVar(&measureFlags.endDate, "end-date", "", "analysis window end (YYYY-MM-DD, time-series metrics)")
	measureCmd.Flags().BoolVar(&measureFlags.save, "save", false, "persist computed records to the local store")
	rootCmd.AddCommand(measureCmd)
}
