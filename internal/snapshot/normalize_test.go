package snapshot

import (
	"testing"
	"time"

	"github.com/procurex/map-insight/internal/core/model"
	"github.com/procurex/map-insight/internal/store"
)

func TestNormalizeMetricsRow_NestedTotalsWin(t *testing.T) {
	row := store.Row{
		"totals": map[string]any{
			"activeRfx":         float64(12),
			"openOpportunities": float64(5),
			"vendorCoverage":    float64(77),
			"anomalies":         float64(2),
		},
		"active_rfx":  float64(99), // nested object is authoritative
		"captured_at": "2026-08-20T10:00:00Z",
	}
	m := NormalizeMetricsRow("global", row)

	want := model.Totals{ActiveRFx: 12, OpenOpportunities: 5, VendorCoverage: 77, Anomalies: 2}
	if m.Totals != want {
		t.Fatalf("totals=%+v want %+v", m.Totals, want)
	}
	if m.UpdatedAt != time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC) {
		t.Fatalf("updatedAt=%v", m.UpdatedAt)
	}
}

func TestNormalizeMetricsRow_FlatFallbackChain(t *testing.T) {
	row := store.Row{"active_rfx": float64(4)}
	m := NormalizeMetricsRow("global", row)

	if m.Totals.ActiveRFx != 4 {
		t.Fatalf("activeRfx=%d want 4 via flat fallback", m.Totals.ActiveRFx)
	}
	if m.Totals.OpenOpportunities != 0 || m.Totals.VendorCoverage != 0 || m.Totals.Anomalies != 0 {
		t.Fatalf("missing totals must default to 0, got %+v", m.Totals)
	}
}

func TestNormalizeMetricsRow_AnomalyCountAlternate(t *testing.T) {
	row := store.Row{"anomaly_count": float64(3)}
	if got := NormalizeMetricsRow("global", row).Totals.Anomalies; got != 3 {
		t.Fatalf("anomalies=%d want 3 via anomaly_count", got)
	}
}

func TestNormalizeMetricsRow_HotspotFieldDrift(t *testing.T) {
	row := store.Row{
		"hotspots": []any{
			map[string]any{"lat": 1.0, "lng": 2.0, "intensity": 0.5},
			map[string]any{"latitude": 3.0, "lon": 4.0, "weight": 2.0},
			map[string]any{"lat": 5.0}, // missing lng: dropped
			map[string]any{"lat": 6.0, "lng": 7.0}, // missing weight defaults to 1
		},
	}
	hs := NormalizeMetricsRow("global", row).Hotspots
	if len(hs) != 3 {
		t.Fatalf("hotspots=%d want 3", len(hs))
	}
	if hs[0] != (model.Hotspot{Lat: 1, Lng: 2, Intensity: 0.5}) {
		t.Fatalf("hotspot[0]=%+v", hs[0])
	}
	if hs[1] != (model.Hotspot{Lat: 3, Lng: 4, Intensity: 2}) {
		t.Fatalf("hotspot[1]=%+v", hs[1])
	}
	if hs[2].Intensity != 1 {
		t.Fatalf("missing intensity must default to 1, got %+v", hs[2])
	}
}

func TestNormalizeLayerRow_FeaturesAndInsights(t *testing.T) {
	row := store.Row{
		"captured_at": "2026-08-20T09:30:00Z",
		"features": []any{
			map[string]any{
				"id":         "rfx-1",
				"geometry":   map[string]any{"type": "Point", "coordinates": []any{18.07, 59.33}},
				"properties": map[string]any{"status": "open", "budget": float64(120000)},
			},
		},
		"ai_insights": map[string]any{
			"heatmap": []any{map[string]any{"lat": 59.3, "lng": 18.0, "intensity": 0.9}},
			"anomalies": []any{
				map[string]any{
					"position": map[string]any{"lat": 59.0, "lng": 18.0},
					"severity": "high",
					"message":  "bid volume spike",
				},
			},
			"confidence_zones": []any{
				map[string]any{
					"polygon":    []any{map[string]any{"lat": 1.0, "lng": 2.0}},
					"confidence": 0.8,
				},
			},
		},
	}
	snap := NormalizeLayerRow("global", row)

	if len(snap.Features) != 1 || snap.Features[0].ID != "rfx-1" {
		t.Fatalf("features=%+v", snap.Features)
	}
	if snap.Features[0].Geometry.Type != "Point" {
		t.Fatalf("geometry=%+v", snap.Features[0].Geometry)
	}
	if len(snap.AIInsights.Heatmap) != 1 || snap.AIInsights.Heatmap[0].Intensity != 0.9 {
		t.Fatalf("heatmap=%+v", snap.AIInsights.Heatmap)
	}
	if len(snap.AIInsights.Anomalies) != 1 || snap.AIInsights.Anomalies[0].Severity != "high" {
		t.Fatalf("anomalies=%+v", snap.AIInsights.Anomalies)
	}
	if len(snap.AIInsights.ConfidenceZones) != 1 || snap.AIInsights.ConfidenceZones[0].Confidence != 0.8 {
		t.Fatalf("zones=%+v", snap.AIInsights.ConfidenceZones)
	}
}

func TestApplyOverlayFallbacks_HeatmapFromHotspots(t *testing.T) {
	snap := model.RegionSnapshot{Region: "global"}
	metrics := model.MetricsSnapshot{
		Hotspots: []model.Hotspot{{Lat: 1, Lng: 2, Intensity: 0.5}},
		Alerts: []model.Anomaly{
			{Position: model.Position{Lat: 1, Lng: 2}, Severity: "low", Message: "m"},
		},
	}

	ApplyOverlayFallbacks(&snap, metrics)

	if len(snap.AIInsights.Heatmap) != 1 || snap.AIInsights.Heatmap[0] != metrics.Hotspots[0] {
		t.Fatalf("heatmap=%+v want metrics hotspots", snap.AIInsights.Heatmap)
	}
	if len(snap.AIInsights.Anomalies) != 1 || snap.AIInsights.Anomalies[0].Message != "m" {
		t.Fatalf("anomalies=%+v want metrics alerts", snap.AIInsights.Anomalies)
	}
}

func TestApplyOverlayFallbacks_ExistingOverlayKept(t *testing.T) {
	snap := model.RegionSnapshot{
		AIInsights: model.AIInsights{
			Heatmap: []model.Hotspot{{Lat: 9, Lng: 9, Intensity: 1}},
		},
	}
	metrics := model.MetricsSnapshot{Hotspots: []model.Hotspot{{Lat: 1, Lng: 2, Intensity: 0.5}}}

	ApplyOverlayFallbacks(&snap, metrics)

	if snap.AIInsights.Heatmap[0].Lat != 9 {
		t.Fatalf("own heatmap must win, got %+v", snap.AIInsights.Heatmap)
	}
}
