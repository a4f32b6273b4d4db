package snapshot

import (
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/procurex/map-insight/internal/core/model"
)

// maxDerivedHotspots caps how many binned cells are surfaced; dashboards only
// render the strongest clusters.
const maxDerivedHotspots = 25

// DeriveHotspots bins weighted heatmap points into H3 cells at res and emits
// one hotspot per cell at the cell centroid with summed intensity, strongest
// first. Used when a metrics row carries no hotspots but the overlay has a
// heatmap. Points that fail to map are skipped.
func DeriveHotspots(points []model.Hotspot, res int) []model.Hotspot {
	if len(points) == 0 {
		return nil
	}
	if res < 0 {
		res = 0
	}
	if res > 15 {
		res = 15
	}

	sums := make(map[h3.Cell]float64, len(points))
	for _, p := range points {
		cell, err := h3.LatLngToCell(h3.LatLng{Lat: p.Lat, Lng: p.Lng}, res)
		if err != nil {
			continue
		}
		w := p.Intensity
		if w <= 0 {
			w = 1
		}
		sums[cell] += w
	}

	out := make([]model.Hotspot, 0, len(sums))
	for cell, w := range sums {
		ll, err := h3.CellToLatLng(cell)
		if err != nil {
			continue
		}
		out = append(out, model.Hotspot{Lat: ll.Lat, Lng: ll.Lng, Intensity: w})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Intensity != out[j].Intensity {
			return out[i].Intensity > out[j].Intensity
		}
		if out[i].Lat != out[j].Lat {
			return out[i].Lat < out[j].Lat
		}
		return out[i].Lng < out[j].Lng
	})
	if len(out) > maxDerivedHotspots {
		out = out[:maxDerivedHotspots]
	}
	return out
}
