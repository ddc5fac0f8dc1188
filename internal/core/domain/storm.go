// Package domain contains the core business entities for the storm-tracking
// service. The types here are independent of providers, transport, and
// infrastructure concerns; adapters translate into and out of them.
package domain

import (
	"crypto/md5"
	"fmt"
	"time"
)

// Coordinates represent a geographic location using latitude and longitude.
// Longitude is stored east-positive in [0,360) so that distance math across
// the antimeridian stays consistent; use NormalizeLongitude when ingesting
// signed longitudes.
type Coordinates struct {
	// Latitude specifies the north-south position (-90 to 90 degrees)
	Latitude float64

	// Longitude specifies the east-west position, normalized to [0,360)
	Longitude float64
}

// Validate checks if the coordinates are within valid geographic bounds.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got %f", c.Latitude)
	}

	if c.Longitude < 0 || c.Longitude >= 360 {
		return fmt.Errorf("longitude must be in [0,360), got %f", c.Longitude)
	}

	return nil
}

// TrackPoint is one projected or provider-supplied position along a storm's
// forecast track.
type TrackPoint struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	WindSpeedKmh int     `json:"windSpeedKmh"`
	HoursAhead   int     `json:"hoursAhead"`
}

// Storm is the unified tropical-cyclone record produced by the normalization
// pipeline. All wind speeds are in km/h regardless of the source unit, and
// the category string follows the source's own intensity scale (the scales
// intentionally differ between providers).
type Storm struct {
	// ID is a stable identifier derived from the name and rounded position,
	// or a provider-supplied id when one exists. It is used for
	// deduplication and "seen before" tracking.
	ID string `json:"id"`

	// Name is the storm name, or "Unnamed System" when extraction found none.
	Name string `json:"name"`

	// Category is the named intensity derived from WindSpeedKmh via the
	// source's threshold table.
	Category string `json:"category"`

	// WindSpeedKmh is the maximum sustained wind speed in km/h.
	WindSpeedKmh int `json:"windSpeedKmh"`

	// PressureHPa is the central pressure in hPa; nil when unavailable.
	PressureHPa *int `json:"pressureHPa,omitempty"`

	// Position is the storm center. Records without a resolved position are
	// dropped at extraction and never reach this type.
	Position Coordinates `json:"position"`

	// MovementSpeedKmh is the translational speed of the storm center in
	// km/h; zero when the provider did not report one.
	MovementSpeedKmh int `json:"movementSpeedKmh"`

	// MovementDirection is a compass string (N, NE, ...) or a degree value
	// rendered as text; "N/A" when unknown.
	MovementDirection string `json:"movementDirection"`

	// Status is "Active", "Monitored", or provider-supplied free text.
	Status string `json:"status"`

	// AffectedRegions lists region names the provider associates with the
	// storm; possibly empty.
	AffectedRegions []string `json:"affectedRegions"`

	// Warnings is free-text advisory copy, empty when none.
	Warnings string `json:"warnings,omitempty"`

	// Source is the provider tag, kept for traceability.
	Source string `json:"source"`

	// SignalLevel is the computed warning signal (1-5) for the region of
	// interest; zero means no signal.
	SignalLevel int `json:"signalLevel,omitempty"`

	// LastUpdated is the provider's report time, or the aggregation time
	// when the provider supplied none.
	LastUpdated time.Time `json:"lastUpdated"`

	// ForecastTrack is the provider-supplied or extrapolated future track.
	ForecastTrack []TrackPoint `json:"forecastTrack,omitempty"`
}

// StormID derives the deterministic identifier used when a provider does not
// supply its own: a hash of the name and the position rounded to one decimal,
// so repeated sightings of the same system map to the same id.
func StormID(name string, pos Coordinates) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(fmt.Sprintf("%s:%.1f:%.1f", name, pos.Latitude, pos.Longitude))))
}
