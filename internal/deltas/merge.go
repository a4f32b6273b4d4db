package deltas

import "github.com/procurex/map-insight/internal/core/model"

// Merge applies a partial delta on top of the last known snapshot. Present
// fields overwrite; absent numeric totals keep the prior value field by
// field, the same fallback-chain pattern used by snapshot normalization.
func Merge(prev model.MetricsSnapshot, ev Event) model.MetricsSnapshot {
	out := prev

	if !ev.UpdatedAt.IsZero() {
		out.UpdatedAt = ev.UpdatedAt
	}
	if ev.Totals != nil {
		out.Totals = model.Totals{
			ActiveRFx:         pick(ev.Totals.ActiveRFx, prev.Totals.ActiveRFx),
			OpenOpportunities: pick(ev.Totals.OpenOpportunities, prev.Totals.OpenOpportunities),
			VendorCoverage:    pick(ev.Totals.VendorCoverage, prev.Totals.VendorCoverage),
			Anomalies:         pick(ev.Totals.Anomalies, prev.Totals.Anomalies),
		}
	}
	if ev.Trend != nil {
		out.Trend = model.Trend{
			ActiveRFx:         pick(ev.Trend.ActiveRFx, prev.Trend.ActiveRFx),
			OpenOpportunities: pick(ev.Trend.OpenOpportunities, prev.Trend.OpenOpportunities),
			VendorCoverage:    pick(ev.Trend.VendorCoverage, prev.Trend.VendorCoverage),
			Anomalies:         pick(ev.Trend.Anomalies, prev.Trend.Anomalies),
		}
	}
	if ev.Hotspots != nil {
		out.Hotspots = ev.Hotspots
	}
	if ev.Alerts != nil {
		out.Alerts = ev.Alerts
	}
	return out
}

func pick[T any](v *T, prior T) T {
	if v != nil {
		return *v
	}
	return prior
}
