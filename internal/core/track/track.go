// Package track projects a short forecast track for storms whose provider
// supplied none. The projection is a deliberately simple planar dead
// reckoning (1 degree ≈ 111 km, no great-circle math) and is fully
// deterministic: identical storm input always produces the identical
// sequence. Display-side uncertainty jitter, if any, belongs to the
// presentation layer and never enters this path.
package track

import (
	"math"
	"strconv"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

const (
	// stepHours is the spacing between projected points.
	stepHours = 6

	// steps projected ahead: 6, 12, 18, 24, 30 hours.
	steps = 5

	// kmPerDegree is the planar degree approximation.
	kmPerDegree = 111.0

	// windDecayPerStep is subtracted from the wind speed at each step when
	// extrapolating without provider intensity guidance.
	windDecayPerStep = 5

	// defaultMovementKmh applies when the storm has no reported motion.
	defaultMovementKmh = 20
)

// compassRadians maps eight-point compass strings onto math angles
// (east = 0, counterclockwise positive) for the displacement trig.
var compassRadians = map[string]float64{
	"N":  math.Pi / 2,
	"NE": math.Pi / 4,
	"E":  0,
	"SE": -math.Pi / 4,
	"S":  -math.Pi / 2,
	"SW": -3 * math.Pi / 4,
	"W":  math.Pi,
	"NW": 3 * math.Pi / 4,
}

// Extrapolate projects five positions at six-hour intervals from the storm's
// current position, bearing, and translational speed. The wind speed decays
// a fixed amount per step, floored at zero.
func Extrapolate(storm domain.Storm) []domain.TrackPoint {
	speed := float64(storm.MovementSpeedKmh)
	if speed <= 0 {
		speed = defaultMovementKmh
	}

	direction := DirectionRadians(storm.MovementDirection)

	points := make([]domain.TrackPoint, 0, steps)

	for i := 1; i <= steps; i++ {
		hoursAhead := i * stepHours
		distanceDeg := speed * float64(hoursAhead) / kmPerDegree

		wind := storm.WindSpeedKmh - i*windDecayPerStep
		if wind < 0 {
			wind = 0
		}

		points = append(points, domain.TrackPoint{
			Latitude:     storm.Position.Latitude + distanceDeg*math.Cos(direction),
			Longitude:    storm.Position.Longitude + distanceDeg*math.Sin(direction),
			WindSpeedKmh: wind,
			HoursAhead:   hoursAhead,
		})
	}

	return points
}

// DirectionRadians converts a movement direction into radians. Compass
// strings use the eight-point table; a numeric value is treated as a compass
// bearing in degrees (0 = north, clockwise). Unknown input defaults to NE.
func DirectionRadians(direction string) float64 {
	if rad, ok := compassRadians[direction]; ok {
		return rad
	}

	if deg, err := strconv.ParseFloat(direction, 64); err == nil {
		// Compass degrees to math angle: 0° N → π/2, 90° E → 0.
		return (90 - deg) * math.Pi / 180
	}

	return compassRadians["NE"]
}
