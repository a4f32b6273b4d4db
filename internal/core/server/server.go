// Package server wires the chi router and runs the HTTP listener.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/procurex/map-insight/internal/core/config"
	"github.com/procurex/map-insight/internal/core/health"
	middleware "github.com/procurex/map-insight/internal/core/middleware"
	"github.com/procurex/map-insight/internal/core/router"
)

// Run sets up routes and serves until ctx is canceled.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger,
	svc router.InsightProvider, verifier middleware.TokenVerifier, ready health.ReadinessReporter) error {

	if ready == nil {
		ready = health.AlwaysReady{}
	}

	r := chi.NewRouter()
	r.Use(middleware.Recover())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(ready))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(logger, verifier, cfg.Auth.Required))
		r.Get("/map-insights", router.MapInsights(logger, svc))
		r.Get("/map-insights/metrics", router.MapInsightMetrics(logger, svc))
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
