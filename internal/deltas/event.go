// Package deltas defines realtime partial-metrics events and the rule for
// merging them into the last known metrics snapshot without a full refetch.
package deltas

import (
	"errors"
	"time"

	"github.com/procurex/map-insight/internal/core/model"
)

// PartialTotals carries only the counters present in a delta; nil fields keep
// the prior value.
type PartialTotals struct {
	ActiveRFx         *int `json:"activeRfx,omitempty"`
	OpenOpportunities *int `json:"openOpportunities,omitempty"`
	VendorCoverage    *int `json:"vendorCoverage,omitempty"`
	Anomalies         *int `json:"anomalies,omitempty"`
}

type PartialTrend struct {
	ActiveRFx         *float64 `json:"activeRfx,omitempty"`
	OpenOpportunities *float64 `json:"openOpportunities,omitempty"`
	VendorCoverage    *float64 `json:"vendorCoverage,omitempty"`
	Anomalies         *float64 `json:"anomalies,omitempty"`
}

// Event is a partial metrics update for one region. Version increases
// monotonically per region; stale or replayed versions are dropped.
type Event struct {
	Region    string          `json:"region"`
	Version   uint64          `json:"version"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Totals    *PartialTotals  `json:"totals,omitempty"`
	Trend     *PartialTrend   `json:"trend,omitempty"`
	Hotspots  []model.Hotspot `json:"hotspots,omitempty"`
	Alerts    []model.Anomaly `json:"alerts,omitempty"`
}

func (e Event) Validate() error {
	if e.Region == "" {
		return errors.New("delta event missing region")
	}
	if e.Version == 0 {
		return errors.New("delta event missing version")
	}
	return nil
}
