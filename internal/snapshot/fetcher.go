// Package snapshot fetches per-region layer and metrics snapshots from the
// row store and normalizes them into fully-populated domain values.
package snapshot

import (
	"context"
	"log/slog"

	"github.com/procurex/map-insight/internal/core/model"
	"github.com/procurex/map-insight/internal/store"
)

// metricsWindow is how many recent metrics rows are fetched; the newest is
// authoritative, the rest give producers time to settle.
const metricsWindow = 5

type Tables struct {
	Layers  string
	Metrics string
}

func DefaultTables() Tables {
	return Tables{Layers: "region_snapshots", Metrics: "region_metrics"}
}

type Fetcher struct {
	store  store.Querier
	logger *slog.Logger
	tables Tables
}

func NewFetcher(q store.Querier, logger *slog.Logger, tables Tables) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if tables.Layers == "" {
		tables.Layers = DefaultTables().Layers
	}
	if tables.Metrics == "" {
		tables.Metrics = DefaultTables().Metrics
	}
	return &Fetcher{store: q, logger: logger, tables: tables}
}

// LayerSnapshot returns the newest layer snapshot for region. No rows is
// valid empty data, not an error; only transport/store failure propagates.
func (f *Fetcher) LayerSnapshot(ctx context.Context, region string) (model.RegionSnapshot, error) {
	rows, err := f.store.QueryLatest(ctx, f.tables.Layers, "region", region, "captured_at", 1)
	if err != nil {
		return model.RegionSnapshot{}, err
	}
	if len(rows) == 0 {
		f.logger.Debug("no layer snapshot rows", "region", region)
		return model.RegionSnapshot{Region: region}, nil
	}
	return NormalizeLayerRow(region, rows[0]), nil
}

// Metrics returns the newest of the last metricsWindow rolling metrics rows
// for region, normalized. No rows yields zeroed totals.
func (f *Fetcher) Metrics(ctx context.Context, region string) (model.MetricsSnapshot, error) {
	rows, err := f.store.QueryLatest(ctx, f.tables.Metrics, "region", region, "captured_at", metricsWindow)
	if err != nil {
		return model.MetricsSnapshot{}, err
	}
	if len(rows) == 0 {
		f.logger.Debug("no metrics rows", "region", region)
		return model.MetricsSnapshot{Region: region}, nil
	}
	return NormalizeMetricsRow(region, rows[0]), nil
}
