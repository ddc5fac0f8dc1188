// Package signal computes the PAGASA-style wind signal (1-5) for a region of
// interest from a storm's strength and estimated time to impact:
//
//	Signal #1: 30-60 km/h winds expected within 36 hours
//	Signal #2: 61-120 km/h winds expected within 24 hours
//	Signal #3: 121-170 km/h winds expected within 18 hours
//	Signal #4: 171-220 km/h winds expected within 12 hours
//	Signal #5: >220 km/h winds expected within 12 hours
//
// This is a heuristic for display, not an official advisory.
package signal

import (
	"math"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

// Region is the area the signal is computed for: a bounding box for the
// "already over land" check and a center point for distance estimates.
type Region struct {
	Center Coordinates
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// Coordinates aliases the domain type so callers can build regions without
// importing domain directly.
type Coordinates = domain.Coordinates

// Philippines is the default region of interest.
var Philippines = Region{
	Center: Coordinates{Latitude: 12.8797, Longitude: 121.7740},
	MinLat: 5.0,
	MaxLat: 20.0,
	MinLon: 115.0,
	MaxLon: 127.0,
}

// defaultMovementKmh substitutes for storms whose provider reported no
// translational speed; never an error.
const defaultMovementKmh = 15

// earthRadiusKm for the haversine distance.
const earthRadiusKm = 6371

// Classify returns the warning level 1-5 for the storm relative to the
// region, or 0 when no signal applies (storm too far, too slow, or too weak).
//
// Inside the region bounds the level comes straight from the current wind
// speed. Outside, the arrival estimate distance/movementSpeed gates the
// maximum attainable level, and the expected wind speed is discounted by
// max(0.5, 1 - (distance/500)*0.1) to account for weakening in transit.
func Classify(storm domain.Storm, region Region) int {
	lat := storm.Position.Latitude
	lon := storm.Position.Longitude

	if lat == 0 && lon == 0 {
		return 0
	}

	windSpeed := float64(storm.WindSpeedKmh)

	movementSpeed := float64(storm.MovementSpeedKmh)
	if movementSpeed <= 0 {
		movementSpeed = defaultMovementKmh
	}

	within := lat >= region.MinLat && lat <= region.MaxLat &&
		lon >= region.MinLon && lon <= region.MaxLon

	if within {
		return levelFromWind(windSpeed)
	}

	distance := haversineKm(lat, lon, region.Center.Latitude, region.Center.Longitude)

	if distance > 1500 {
		return 0
	}

	estimatedHours := distance / movementSpeed

	if estimatedHours > 72 {
		return 0
	}

	weakening := math.Max(0.5, 1-(distance/500)*0.1)
	expected := windSpeed * weakening

	switch {
	case estimatedHours <= 12:
		return levelFromWind(expected)
	case estimatedHours <= 18:
		return min(levelFromWind(expected), 3)
	case estimatedHours <= 24:
		return min(levelFromWind(expected), 2)
	case estimatedHours <= 36:
		return min(levelFromWind(expected), 1)
	}

	return 0
}

// levelFromWind applies the five fixed wind breakpoints.
func levelFromWind(windKmh float64) int {
	switch {
	case windKmh >= 220:
		return 5
	case windKmh > 170:
		return 4
	case windKmh > 120:
		return 3
	case windKmh > 60:
		return 2
	case windKmh >= 30:
		return 1
	}

	return 0
}

// haversineKm is the great-circle distance between two points in km.
func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
