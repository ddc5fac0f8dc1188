package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

func intPtr(v int) *int { return &v }

// TestMergeStorms tests duplicate collapsing across name and distance rules.
func TestMergeStorms(t *testing.T) {
	tests := []struct {
		name          string
		storms        []domain.Storm
		expectedCount int
		expectedNames []string
	}{
		{
			name:          "empty input",
			storms:        []domain.Storm{},
			expectedCount: 0,
		},
		{
			name: "same name merged regardless of distance",
			storms: []domain.Storm{
				{Name: "Kristine", Position: domain.Coordinates{Latitude: 15.5, Longitude: 125.0}},
				{Name: "Kristine", Position: domain.Coordinates{Latitude: 10.0, Longitude: 130.0}},
			},
			expectedCount: 1,
			expectedNames: []string{"Kristine"},
		},
		{
			name: "name comparison is exact, differently-cased distant reports stay separate",
			storms: []domain.Storm{
				{Name: "Kristine", Position: domain.Coordinates{Latitude: 15.5, Longitude: 125.0}},
				{Name: "KRISTINE", Position: domain.Coordinates{Latitude: 10.0, Longitude: 130.0}},
			},
			expectedCount: 2,
			expectedNames: []string{"Kristine", "KRISTINE"},
		},
		{
			name: "nearby centers merged despite different names",
			storms: []domain.Storm{
				{Name: "Unnamed System", Position: domain.Coordinates{Latitude: 15.0, Longitude: 125.0}},
				{Name: "Kristine", Position: domain.Coordinates{Latitude: 15.5, Longitude: 125.5}},
			},
			expectedCount: 1,
			expectedNames: []string{"Unnamed System"},
		},
		{
			name: "distance exactly one degree is distinct",
			storms: []domain.Storm{
				{Name: "Alpha", Position: domain.Coordinates{Latitude: 15.0, Longitude: 125.0}},
				{Name: "Beta", Position: domain.Coordinates{Latitude: 15.0, Longitude: 126.0}},
			},
			expectedCount: 2,
			expectedNames: []string{"Alpha", "Beta"},
		},
		{
			name: "distant storms stay separate",
			storms: []domain.Storm{
				{Name: "Alpha", Position: domain.Coordinates{Latitude: 15.0, Longitude: 125.0}},
				{Name: "Beta", Position: domain.Coordinates{Latitude: 8.0, Longitude: 135.0}},
			},
			expectedCount: 2,
			expectedNames: []string{"Alpha", "Beta"},
		},
		{
			name: "chain of duplicates collapses to first",
			storms: []domain.Storm{
				{Name: "Alpha", Position: domain.Coordinates{Latitude: 15.0, Longitude: 125.0}},
				{Name: "Alpha", Position: domain.Coordinates{Latitude: 15.1, Longitude: 125.1}},
				{Name: "Alpha", Position: domain.Coordinates{Latitude: 15.2, Longitude: 125.2}},
			},
			expectedCount: 1,
			expectedNames: []string{"Alpha"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := MergeStorms(tt.storms)
			assert.Len(t, merged, tt.expectedCount)
			for i, name := range tt.expectedNames {
				assert.Equal(t, name, merged[i].Name)
			}
		})
	}
}

// TestMergeStormsFirstReportWins verifies the kept storm's measurements are
// never overwritten by a later duplicate.
func TestMergeStormsFirstReportWins(t *testing.T) {
	first := domain.Storm{
		Name:         "Kristine",
		WindSpeedKmh: 150,
		Position:     domain.Coordinates{Latitude: 15.5, Longitude: 125.0},
		Source:       "OpenWeatherMap",
	}
	second := domain.Storm{
		Name:         "Kristine",
		WindSpeedKmh: 175,
		Position:     domain.Coordinates{Latitude: 15.6, Longitude: 125.1},
		Source:       "NOAA",
	}

	merged := MergeStorms([]domain.Storm{first, second})

	assert.Len(t, merged, 1)
	assert.Equal(t, 150, merged[0].WindSpeedKmh)
	assert.Equal(t, "OpenWeatherMap", merged[0].Source)
}

// TestMergeStormsDropsWholeDuplicates verifies a dropped duplicate leaves no
// trace on the kept record, even when it carried fields the kept record
// lacks.
func TestMergeStormsDropsWholeDuplicates(t *testing.T) {
	first := domain.Storm{
		Name:     "Kristine",
		Position: domain.Coordinates{Latitude: 15.5, Longitude: 125.0},
	}
	second := domain.Storm{
		Name:              "Kristine",
		Position:          domain.Coordinates{Latitude: 15.6, Longitude: 125.1},
		PressureHPa:       intPtr(950),
		MovementSpeedKmh:  20,
		MovementDirection: "NW",
	}

	merged := MergeStorms([]domain.Storm{first, second})

	assert.Len(t, merged, 1)
	assert.Nil(t, merged[0].PressureHPa)
	assert.Equal(t, 0, merged[0].MovementSpeedKmh)
	assert.Empty(t, merged[0].MovementDirection)
}
