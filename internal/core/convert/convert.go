// Package convert holds the unit conversions shared by every provider
// adapter. The factors are fixed by the normalization contract: changing them
// changes every category classification downstream, so they are written out
// literally and pinned by tests.
package convert

const (
	knotsToKmh = 1.852
	msToKmh    = 3.6
	mphToKmh   = 1.60934
)

// KnotsToKmh converts knots to km/h, truncating to an integer.
func KnotsToKmh(knots float64) int {
	return int(knots * knotsToKmh)
}

// MsToKmh converts meters per second to km/h, truncating to an integer.
func MsToKmh(ms float64) int {
	return int(ms * msToKmh)
}

// MphToKmh converts miles per hour to km/h, truncating to an integer.
func MphToKmh(mph float64) int {
	return int(mph * mphToKmh)
}

// NormalizeLongitude maps a signed longitude onto the east-positive [0,360)
// convention used by the merge and distance logic: any negative (western
// hemisphere) value becomes 360+lon.
func NormalizeLongitude(lon float64) float64 {
	if lon < 0 {
		return 360 + lon
	}

	return lon
}

// SignedLongitude is the inverse of NormalizeLongitude for provider APIs that
// expect longitudes in [-180,180).
func SignedLongitude(lon float64) float64 {
	if lon >= 180 {
		return lon - 360
	}

	return lon
}
