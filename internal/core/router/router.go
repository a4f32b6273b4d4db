// Package router validates inbound requests and serves the insight endpoints.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/procurex/map-insight/internal/core/model"
	"github.com/procurex/map-insight/internal/core/observability"
	"github.com/procurex/map-insight/internal/store"
)

// InsightProvider is the aggregation service surface the router consumes.
type InsightProvider interface {
	MapInsights(ctx context.Context, region string) (model.CombinedInsightPayload, error)
	MapInsightMetrics(ctx context.Context, region string) (model.MetricsSnapshot, error)
}

// MapInsights serves GET /map-insights.
func MapInsights(logger *slog.Logger, svc InsightProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		region, err := ParseRegion(r)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			observability.ObserveHTTP(r.Method, "/map-insights", sw.code, time.Since(start).Seconds())
			return
		}

		payload, err := svc.MapInsights(r.Context(), region)
		if err != nil {
			writeFetchError(sw, logger, "map insights", region, err)
			observability.ObserveHTTP(r.Method, "/map-insights", sw.code, time.Since(start).Seconds())
			return
		}

		writeJSON(sw, logger, payload)
		observability.ObserveHTTP(r.Method, "/map-insights", sw.code, time.Since(start).Seconds())
	}
}

// MapInsightMetrics serves GET /map-insights/metrics.
func MapInsightMetrics(logger *slog.Logger, svc InsightProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}

		region, err := ParseRegion(r)
		if err != nil {
			http.Error(sw, err.Error(), http.StatusBadRequest)
			observability.ObserveHTTP(r.Method, "/map-insights/metrics", sw.code, time.Since(start).Seconds())
			return
		}

		metrics, err := svc.MapInsightMetrics(r.Context(), region)
		if err != nil {
			writeFetchError(sw, logger, "map insight metrics", region, err)
			observability.ObserveHTTP(r.Method, "/map-insights/metrics", sw.code, time.Since(start).Seconds())
			return
		}

		writeJSON(sw, logger, metrics)
		observability.ObserveHTTP(r.Method, "/map-insights/metrics", sw.code, time.Since(start).Seconds())
	}
}

var regionPattern = regexp.MustCompile(`^[\p{L}\p{N} _:,\.\-]+$`)

const maxRegionLen = 64

// ParseRegion validates the region query parameter. Absent defaults to the
// well-known sentinel; a present-but-malformed value is a 400.
func ParseRegion(r *http.Request) (string, error) {
	if !r.URL.Query().Has("region") {
		return model.DefaultRegion, nil
	}
	region := strings.TrimSpace(r.URL.Query().Get("region"))
	if region == "" {
		return "", errors.New("region parameter must not be empty")
	}
	if len(region) > maxRegionLen {
		return "", fmt.Errorf("region parameter exceeds %d characters", maxRegionLen)
	}
	if !regionPattern.MatchString(region) {
		return "", errors.New("region parameter contains disallowed characters")
	}
	return region, nil
}

// writeFetchError maps failures to the boundary: store failures become a
// generic 500 that never leaks store internals.
func writeFetchError(w http.ResponseWriter, logger *slog.Logger, op, region string, err error) {
	var dsErr *store.DataSourceError
	if errors.As(err, &dsErr) {
		logger.Error("data source failure", "op", op, "region", region, "err", err)
		http.Error(w, "failed to load "+op, http.StatusInternalServerError)
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("request aborted", "op", op, "region", region, "err", err)
		http.Error(w, "request canceled", http.StatusRequestTimeout)
		return
	}
	logger.Error("unexpected failure", "op", op, "region", region, "err", err)
	http.Error(w, "failed to load "+op, http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("write response", "err", err)
	}
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}
