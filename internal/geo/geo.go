package geo

import (
	"math"

	"github.com/example/meetpoint/internal/models"
)

// Haversine distance in meters
func Haversine(a, b models.Coord) float64 {
	const R = 6371000.0
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return R * c
}

// Midpoint returns the geographic midpoint of a and b.
func Midpoint(a, b models.Coord) models.Coord {
	return PointAt(a, b, 0.5)
}

// PointAt interpolates along the a-b segment; t=0 yields a, t=1 yields b.
// Linear interpolation in lat/lng is accurate enough at city scale, which
// is the only scale a meeting-point search operates at.
func PointAt(a, b models.Coord, t float64) models.Coord {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return models.Coord{
		Lat: a.Lat + (b.Lat-a.Lat)*t,
		Lng: a.Lng + (b.Lng-a.Lng)*t,
	}
}

// Valid reports whether c is a plausible WGS84 coordinate.
func Valid(c models.Coord) bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}
