package services

import (
	"math"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

// mergeRadiusDeg is the planar degree distance below which two reports are
// considered the same system. Storm advisories round positions coarsely, so
// a full degree of slack is needed to collapse the same storm seen from two
// probe points.
const mergeRadiusDeg = 1.0

// MergeStorms collapses duplicate reports of the same system. Two storms are
// duplicates when their names are equal or their centers are within
// mergeRadiusDeg of each other in planar degree distance. The first
// report wins outright; duplicates are dropped whole rather than merged
// field-by-field, so a kept record always traces back to exactly one source
// payload.
func MergeStorms(storms []domain.Storm) []domain.Storm {
	merged := make([]domain.Storm, 0, len(storms))

	for _, candidate := range storms {
		duplicate := false
		for i := range merged {
			if sameStorm(merged[i], candidate) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, candidate)
		}
	}

	return merged
}

func sameStorm(a, b domain.Storm) bool {
	if a.Name == b.Name {
		return true
	}
	return planarDeg(a.Position, b.Position) < mergeRadiusDeg
}

// planarDeg is the flat-earth degree distance used only for duplicate
// detection at small separations, where the error is negligible.
func planarDeg(a, b domain.Coordinates) float64 {
	dLat := a.Latitude - b.Latitude
	dLon := a.Longitude - b.Longitude
	return math.Sqrt(dLat*dLat + dLon*dLon)
}
