package geo

import (
	"testing"

	"homescout/pkg/model"
)

var (
	stAlbans  = model.Coordinate{Lat: 51.7527, Lon: -0.3394}
	kingsX    = model.Coordinate{Lat: 51.5308, Lon: -0.1238}
	harpenden = model.Coordinate{Lat: 51.8146, Lon: -0.3515}
)

func TestDistance(t *testing.T) {
	// St Albans to King's Cross is roughly 28.5 km as the crow flies.
	km := DistanceKm(stAlbans, kingsX)
	if km < 27 || km > 30 {
		t.Errorf("DistanceKm = %.1f, expected roughly 28.5", km)
	}

	if d := Distance(stAlbans, stAlbans); d != 0 {
		t.Errorf("distance to self = %f, want 0", d)
	}
}

func TestBoundAndWithin(t *testing.T) {
	b := Bound(stAlbans, 10000)
	if !Within(b, stAlbans) {
		t.Error("center must be within its own bound")
	}
	if !Within(b, harpenden) {
		t.Error("Harpenden is ~7 km from St Albans, within a 10 km bound")
	}
	if Within(b, kingsX) {
		t.Error("King's Cross is ~28 km away, outside a 10 km bound")
	}
}

func TestWalkingMinutes(t *testing.T) {
	tests := []struct {
		meters float64
		want   int
	}{
		{0, 0},
		{500, 6},
		{1000, 12},
		{2500, 30},
	}
	for _, tt := range tests {
		if got := WalkingMinutes(tt.meters); got != tt.want {
			t.Errorf("WalkingMinutes(%.0f) = %d, want %d", tt.meters, got, tt.want)
		}
	}
}
