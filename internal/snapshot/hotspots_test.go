package snapshot

import (
	"math"
	"testing"

	"github.com/procurex/map-insight/internal/core/model"
)

func TestDeriveHotspots_BinsNearbyPoints(t *testing.T) {
	// two points inside one coarse cell, one far away
	points := []model.Hotspot{
		{Lat: 59.3293, Lng: 18.0686, Intensity: 0.5},
		{Lat: 59.3300, Lng: 18.0700, Intensity: 0.7},
		{Lat: -33.8688, Lng: 151.2093, Intensity: 0.3},
	}
	out := DeriveHotspots(points, 4)
	if len(out) != 2 {
		t.Fatalf("derived=%d want 2 cells", len(out))
	}
	// strongest cluster first
	if math.Abs(out[0].Intensity-1.2) > 1e-9 {
		t.Fatalf("top intensity=%v want 1.2", out[0].Intensity)
	}
	if out[0].Lat < 58 || out[0].Lat > 61 {
		t.Fatalf("centroid lat=%v not near cluster", out[0].Lat)
	}
}

func TestDeriveHotspots_Deterministic(t *testing.T) {
	points := []model.Hotspot{
		{Lat: 40.7, Lng: -74.0, Intensity: 1},
		{Lat: 41.9, Lng: 12.5, Intensity: 1},
		{Lat: 35.7, Lng: 139.7, Intensity: 1},
	}
	a := DeriveHotspots(points, 3)
	b := DeriveHotspots(points, 3)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order not deterministic at %d: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestDeriveHotspots_EmptyAndDefaults(t *testing.T) {
	if got := DeriveHotspots(nil, 5); got != nil {
		t.Fatalf("nil input must yield nil, got %+v", got)
	}
	// zero intensity counts as weight 1
	out := DeriveHotspots([]model.Hotspot{{Lat: 1, Lng: 1}}, 5)
	if len(out) != 1 || out[0].Intensity != 1 {
		t.Fatalf("zero-weight point=%+v want intensity 1", out)
	}
}
