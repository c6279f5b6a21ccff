// Package geo provides great-circle distance helpers for matching nearby
// carparks and bus stops.
package geo

import "github.com/golang/geo/s2"

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371008.8

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// LatLng converts p to an s2.LatLng.
func (p Point) LatLng() s2.LatLng {
	return s2.LatLngFromDegrees(p.Lat, p.Lon)
}

// Valid reports whether p lies within coordinate bounds and is not the zero
// value some providers send for unknown locations.
func (p Point) Valid() bool {
	if p.Lat == 0 && p.Lon == 0 {
		return false
	}
	return p.LatLng().IsValid()
}

// Distance returns the great-circle distance between a and b in meters.
func Distance(a, b Point) float64 {
	return a.LatLng().Distance(b.LatLng()).Radians() * EarthRadiusMeters
}

// Within reports whether b lies within radius meters of a.
func Within(a, b Point, radius float64) bool {
	return Distance(a, b) <= radius
}

// Nearest returns the index of the candidate closest to origin and its
// distance, or -1 when candidates is empty.
func Nearest(origin Point, candidates []Point) (int, float64) {
	best, bestDist := -1, 0.0
	for i, c := range candidates {
		d := Distance(origin, c)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best, bestDist
}
