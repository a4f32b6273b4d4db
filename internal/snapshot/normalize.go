package snapshot

import (
	"encoding/json"
	"time"

	"github.com/procurex/map-insight/internal/core/model"
	"github.com/procurex/map-insight/internal/store"
)

// The upstream producers drift between nested camelCase documents and flat
// snake_case columns. All fallback chains are centralized here so call sites
// see fully-populated structs and never a missing field.

// NormalizeMetricsRow turns a raw metrics row into a MetricsSnapshot. Every
// totals counter is present in the result, defaulting to 0.
func NormalizeMetricsRow(region string, row store.Row) model.MetricsSnapshot {
	nested := subMap(row, "totals")
	total := func(camel, snake string) int {
		if v, ok := num(nested, camel); ok {
			return int(v)
		}
		if v, ok := num(row, snake); ok {
			return int(v)
		}
		return 0
	}

	trend := subMap(row, "trend")
	delta := func(camel string) float64 {
		v, _ := num(trend, camel)
		return v
	}

	return model.MetricsSnapshot{
		Region:    region,
		UpdatedAt: timeField(row, "captured_at", "updated_at"),
		Totals: model.Totals{
			ActiveRFx:         total("activeRfx", "active_rfx"),
			OpenOpportunities: total("openOpportunities", "open_opportunities"),
			VendorCoverage:    total("vendorCoverage", "vendor_coverage"),
			Anomalies:         total("anomalies", "anomaly_count"),
		},
		Trend: model.Trend{
			ActiveRFx:         delta("activeRfx"),
			OpenOpportunities: delta("openOpportunities"),
			VendorCoverage:    delta("vendorCoverage"),
			Anomalies:         delta("anomalies"),
		},
		Hotspots: hotspotList(field(row, "hotspots")),
		Alerts:   anomalyList(field(row, "alerts")),
	}
}

// NormalizeLayerRow turns a raw layer row into a RegionSnapshot.
func NormalizeLayerRow(region string, row store.Row) model.RegionSnapshot {
	snap := model.RegionSnapshot{
		Region:    region,
		UpdatedAt: timeField(row, "captured_at", "updated_at"),
	}
	_ = decodeInto(field(row, "features"), &snap.Features)

	ai := subMap(row, "ai_insights")
	if ai == nil {
		ai = subMap(row, "aiInsights")
	}
	if ai != nil {
		snap.AIInsights.Heatmap = hotspotList(field(ai, "heatmap"))
		snap.AIInsights.Anomalies = anomalyList(field(ai, "anomalies"))
		_ = decodeInto(field(ai, "connections"), &snap.AIInsights.Connections)
		zones := field(ai, "confidence_zones")
		if zones == nil {
			zones = field(ai, "confidenceZones")
		}
		_ = decodeInto(zones, &snap.AIInsights.ConfidenceZones)
	}
	return snap
}

// ApplyOverlayFallbacks degrades overlays and metrics into each other: the
// two are views of the same upstream events, so a snapshot with no heatmap
// borrows the metrics hotspots and a snapshot with no anomaly overlay borrows
// the metrics alerts.
func ApplyOverlayFallbacks(snap *model.RegionSnapshot, metrics model.MetricsSnapshot) {
	if len(snap.AIInsights.Heatmap) == 0 {
		snap.AIInsights.Heatmap = metrics.Hotspots
	}
	if len(snap.AIInsights.Anomalies) == 0 {
		snap.AIInsights.Anomalies = metrics.Alerts
	}
}

func field(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	return m[key]
}

func subMap(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]any)
	return sub
}

// num reads the first present numeric field among keys. JSON decoding yields
// float64; string-encoded numbers are not accepted.
func num(m map[string]any, keys ...string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

func timeField(m map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		switch v := m[k].(type) {
		case time.Time:
			return v
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

func hotspotList(v any) []model.Hotspot {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]model.Hotspot, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		lat, okLat := num(m, "lat", "latitude")
		lng, okLng := num(m, "lng", "lon", "longitude")
		if !okLat || !okLng {
			continue
		}
		w, ok := num(m, "intensity", "weight")
		if !ok {
			w = 1
		}
		out = append(out, model.Hotspot{Lat: lat, Lng: lng, Intensity: w})
	}
	return out
}

func anomalyList(v any) []model.Anomaly {
	var out []model.Anomaly
	_ = decodeInto(v, &out)
	return out
}

// decodeInto re-marshals a decoded JSON value into a typed destination.
// Unknown or mis-typed members are dropped rather than failing the snapshot.
func decodeInto(v any, dst any) error {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}
