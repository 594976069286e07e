package geo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"

	"homescout/pkg/model"
)

// Distance returns the haversine distance between two coordinates in meters.
func Distance(a, b model.Coordinate) float64 {
	return orbgeo.DistanceHaversine(orb.Point{a.Lon, a.Lat}, orb.Point{b.Lon, b.Lat})
}

// DistanceKm returns the haversine distance in kilometers.
func DistanceKm(a, b model.Coordinate) float64 {
	return Distance(a, b) / 1000.0
}

// Bound returns a bounding box around center with the given radius in meters.
// Useful as a cheap pre-filter before exact distance checks.
func Bound(center model.Coordinate, radiusM float64) orb.Bound {
	p := orb.Point{center.Lon, center.Lat}
	return orbgeo.NewBoundAroundPoint(p, radiusM)
}

// Within reports whether c lies inside the bound.
func Within(b orb.Bound, c model.Coordinate) bool {
	return b.Contains(orb.Point{c.Lon, c.Lat})
}

// WalkingMinutes estimates walking time for a distance in meters,
// assuming 5 km/h.
func WalkingMinutes(distanceM float64) int {
	const walkSpeedKmh = 5.0
	return int(distanceM / 1000.0 / walkSpeedKmh * 60.0)
}
