// Package insight composes the snapshot fetcher, the single-flight cache and
// the summary generator into the map-insight aggregation entry point.
package insight

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/procurex/map-insight/internal/cache/flightcache"
	"github.com/procurex/map-insight/internal/cache/keys"
	"github.com/procurex/map-insight/internal/core/model"
	"github.com/procurex/map-insight/internal/deltas"
	"github.com/procurex/map-insight/internal/snapshot"
	"github.com/procurex/map-insight/internal/summary"
)

const DefaultHotspotRes = 6

type Options struct {
	TTL        time.Duration
	MaxRegions int
	HotspotRes int
	// L2 is the optional shared cache layer (Redis); nil disables it.
	L2 flightcache.Layer
	// Now is injected by tests; defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	fetcher    *snapshot.Fetcher
	summarizer *summary.Generator
	logger     *slog.Logger
	now        func() time.Time
	hotspotRes int

	layers  *flightcache.Cache[model.RegionSnapshot]
	metrics *flightcache.Cache[model.MetricsSnapshot]
}

func New(fetcher *snapshot.Fetcher, summarizer *summary.Generator, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	hotspotRes := opts.HotspotRes
	if hotspotRes <= 0 {
		hotspotRes = DefaultHotspotRes
	}

	layerOpts := []flightcache.Option[model.RegionSnapshot]{flightcache.WithClock[model.RegionSnapshot](now)}
	metricOpts := []flightcache.Option[model.MetricsSnapshot]{flightcache.WithClock[model.MetricsSnapshot](now)}
	if opts.L2 != nil {
		layerOpts = append(layerOpts, flightcache.WithLayer[model.RegionSnapshot](opts.L2))
		metricOpts = append(metricOpts, flightcache.WithLayer[model.MetricsSnapshot](opts.L2))
	}

	return &Service{
		fetcher:    fetcher,
		summarizer: summarizer,
		logger:     logger,
		now:        now,
		hotspotRes: hotspotRes,
		layers:     flightcache.New(opts.TTL, opts.MaxRegions, layerOpts...),
		metrics:    flightcache.New(opts.TTL, opts.MaxRegions, metricOpts...),
	}
}

// normalizeRegion applies the well-known sentinel and case-insensitivity.
func normalizeRegion(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" {
		return model.DefaultRegion
	}
	return region
}

// MapInsights returns the combined payload for region: overlays and metrics
// through the cache, a per-request summary, and a fresh generatedAt stamp.
// Only the upstream fetches are cached; the summary is cheap to reassemble
// from cached inputs and the envelope must reflect request time.
func (s *Service) MapInsights(ctx context.Context, region string) (model.CombinedInsightPayload, error) {
	region = normalizeRegion(region)
	start := s.now()

	type layersResult struct {
		snap model.RegionSnapshot
		err  error
	}
	layersCh := make(chan layersResult, 1)
	go func() {
		snap, err := s.layers.GetOrLoad(ctx, keys.Layers(region), func(ctx context.Context) (model.RegionSnapshot, error) {
			return s.fetcher.LayerSnapshot(ctx, region)
		})
		layersCh <- layersResult{snap: snap, err: err}
	}()

	metrics, merr := s.metrics.GetOrLoad(ctx, keys.Metrics(region), func(ctx context.Context) (model.MetricsSnapshot, error) {
		return s.fetcher.Metrics(ctx, region)
	})
	lres := <-layersCh

	if merr != nil {
		return model.CombinedInsightPayload{}, merr
	}
	if lres.err != nil {
		return model.CombinedInsightPayload{}, lres.err
	}
	snap := lres.snap

	snapshot.ApplyOverlayFallbacks(&snap, metrics)
	if len(metrics.Hotspots) == 0 && len(snap.AIInsights.Heatmap) > 0 {
		metrics.Hotspots = snapshot.DeriveHotspots(snap.AIInsights.Heatmap, s.hotspotRes)
	}

	overlays := model.Overlays{
		Features:   snap.Features,
		AIInsights: snap.AIInsights,
		Hotspots:   metrics.Hotspots,
		UpdatedAt:  snap.UpdatedAt,
	}

	sum := s.summarizer.Generate(ctx, summary.Input{
		Region:   region,
		Overlays: overlays,
		Metrics:  metrics,
	})

	payload := model.CombinedInsightPayload{
		Region:      region,
		GeneratedAt: s.now(),
		Overlays:    overlays,
		Metrics:     metrics,
		Summary:     sum,
	}

	s.logger.Debug("map insights assembled",
		"region", region,
		"features", len(overlays.Features),
		"hotspots", len(metrics.Hotspots),
		"provider", sum.Provider,
		"dur", s.now().Sub(start).String())
	return payload, nil
}

// MapInsightMetrics returns the cached metrics snapshot only, for polling
// dashboards that do not need overlays or a summary.
func (s *Service) MapInsightMetrics(ctx context.Context, region string) (model.MetricsSnapshot, error) {
	region = normalizeRegion(region)
	return s.metrics.GetOrLoad(ctx, keys.Metrics(region), func(ctx context.Context) (model.MetricsSnapshot, error) {
		return s.fetcher.Metrics(ctx, region)
	})
}

// ApplyMetricsDelta merges a realtime partial update into the cached metrics
// entry for the event's region. Returns false when nothing was cached; the
// next fetch picks the change up from the store instead.
func (s *Service) ApplyMetricsDelta(ev deltas.Event) bool {
	region := normalizeRegion(ev.Region)
	return s.metrics.Update(keys.Metrics(region), func(prev model.MetricsSnapshot) model.MetricsSnapshot {
		return deltas.Merge(prev, ev)
	})
}
