// Package model defines core domain types shared across the service.
package model

import (
	"encoding/json"
	"time"
)

// DefaultRegion is used when a request does not name a region.
const DefaultRegion = "global"

type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Hotspot is a weighted geospatial point of concentrated activity.
type Hotspot struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Intensity float64 `json:"intensity"`
}

type Connection struct {
	Source Position `json:"source"`
	Target Position `json:"target"`
	Weight float64  `json:"weight"`
}

type ConfidenceZone struct {
	Polygon    []Position `json:"polygon"`
	Confidence float64    `json:"confidence"`
}

type Anomaly struct {
	Position Position `json:"position"`
	Severity string   `json:"severity"`
	Message  string   `json:"message"`
}

// AIInsights is the derived overlay payload rendered on top of raw features.
type AIInsights struct {
	Heatmap         []Hotspot        `json:"heatmap"`
	Connections     []Connection     `json:"connections"`
	ConfidenceZones []ConfidenceZone `json:"confidenceZones"`
	Anomalies       []Anomaly        `json:"anomalies"`
}

type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Feature is a point/polygon geometry carrying opaque opportunity properties
// (location, status, budget).
type Feature struct {
	ID         string         `json:"id,omitempty"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties,omitempty"`
}

// RegionSnapshot is the latest known geospatial layer state for a region.
// Immutable once fetched; treated as a value.
type RegionSnapshot struct {
	Region     string     `json:"region"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	Features   []Feature  `json:"features"`
	AIInsights AIInsights `json:"aiInsights"`
}

// Totals are fully populated after normalization; a field the source omits
// becomes 0, never an absent key.
type Totals struct {
	ActiveRFx         int `json:"activeRfx"`
	OpenOpportunities int `json:"openOpportunities"`
	VendorCoverage    int `json:"vendorCoverage"`
	Anomalies         int `json:"anomalies"`
}

type Trend struct {
	ActiveRFx         float64 `json:"activeRfx"`
	OpenOpportunities float64 `json:"openOpportunities"`
	VendorCoverage    float64 `json:"vendorCoverage"`
	Anomalies         float64 `json:"anomalies"`
}

// MetricsSnapshot is a rolling numeric telemetry record for a region.
type MetricsSnapshot struct {
	Region    string    `json:"region"`
	UpdatedAt time.Time `json:"updatedAt"`
	Totals    Totals    `json:"totals"`
	Trend     Trend     `json:"trend"`
	Hotspots  []Hotspot `json:"hotspots"`
	Alerts    []Anomaly `json:"alerts"`
}

// Summary providers, caller-visible via InsightSummary.Provider.
const (
	ProviderOpenAI = "openai"
	ProviderSystem = "system"
)

type InsightSummary struct {
	Text     string   `json:"text"`
	Bullets  []string `json:"bullets"`
	Provider string   `json:"provider"`
}

type Overlays struct {
	Features   []Feature  `json:"features"`
	AIInsights AIInsights `json:"aiInsights"`
	Hotspots   []Hotspot  `json:"hotspots"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// CombinedInsightPayload is the document returned to map/dashboard clients.
// GeneratedAt reflects request time even when overlays and metrics came from
// cache.
type CombinedInsightPayload struct {
	Region      string          `json:"region"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Overlays    Overlays        `json:"overlays"`
	Metrics     MetricsSnapshot `json:"metrics"`
	Summary     InsightSummary  `json:"summary"`
}
