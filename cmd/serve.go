package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/zonal-metrics/internal/geometry"
	"github.com/sells-group/zonal-metrics/internal/input"
	"github.com/sells-group/zonal-metrics/internal/metrics"
	"github.com/sells-group/zonal-metrics/pkg/engine"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve single-shot metric computations over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(newEngineClient()),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(client engine.Client) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/v1/metrics", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"metrics": metrics.Slugs()})
	})
	r.Post("/v1/metrics/{slug}", handleMeasure(client))

	return r
}

// handleMeasure computes one metric for the GeoJSON document in the request
// body. An optional known_area_km2 query parameter enables the size gate.
func handleMeasure(client engine.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := chi.URLParam(r, "slug")
		log := zap.L().With(
			zap.String("component", "serve"),
			zap.String("metric", slug),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)

		m, err := metrics.New(slug, cfg, client)
		if err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, eris.Wrap(err, "serve: read body"))
			return
		}
		set, err := input.ParseGeoJSON(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		opts := metrics.Options{
			Grid:      r.URL.Query().Get("grid") == "true",
			Simplify:  r.URL.Query().Get("simplify") == "true",
			StartDate: r.URL.Query().Get("start_date"),
			EndDate:   r.URL.Query().Get("end_date"),
		}
		if v := r.URL.Query().Get("known_area_km2"); v != "" {
			area, err := strconv.ParseFloat(v, 64)
			if err != nil {
				writeError(w, http.StatusBadRequest, eris.Wrap(err, "serve: parse known_area_km2"))
				return
			}
			opts.KnownAreaKM2 = area
			opts.UseExceedsLimit = true
		}

		run := uuid.New().String()
		log.Info("measuring", zap.String("run", run), zap.Int("features", set.Len()))

		rec, err := m.Measure(r.Context(), set, opts)
		if err != nil {
			log.Error("measurement failed", zap.String("run", run), zap.Error(err))
			writeError(w, errStatus(err), err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"run":    run,
			"metric": slug,
			"record": rec,
		})
	}
}

// errStatus maps measurement failures onto response codes: bad input is the
// caller's fault, limit and packaging failures are the region's, anything
// else is an upstream reduction failure.
func errStatus(err error) int {
	switch {
	case errors.Is(err, geometry.ErrNotPolygonal), errors.Is(err, input.ErrDataRead):
		return http.StatusBadRequest
	case errors.Is(err, metrics.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, metrics.ErrAreaLimit), errors.Is(err, metrics.ErrPackage):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
