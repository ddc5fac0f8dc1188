package services

import (
	"hash/fnv"
	"time"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

// Synthetic data is the last-resort answer when every weather provider is
// down. It is deterministic for a given location and hour so repeated calls
// during an outage do not flap, and it is always tagged with
// domain.SyntheticSource so clients can tell it apart from real readings.
// Values are plausible for a tropical climate, nothing more.

var syntheticConditions = []string{"Clear", "Partly Cloudy", "Clouds", "Rain"}

func SyntheticWeather(location string, coords domain.Coordinates, now time.Time) *domain.WeatherSnapshot {
	seed := syntheticSeed(location, now.Truncate(time.Hour))

	return &domain.WeatherSnapshot{
		Location:     location,
		TemperatureC: 27 + int(seed%5),
		Condition:    syntheticConditions[seed%uint64(len(syntheticConditions))],
		Description:  "estimated conditions, live data unavailable",
		Humidity:     70 + int(seed%20),
		WindSpeedKmh: 10 + int(seed%15),
		PressureHPa:  1008 + int(seed%6),
		FeelsLikeC:   29 + int(seed%5),
		UVIndex:      int(seed % 9),
		CloudCover:   int(seed % 100),
		LastUpdated:  now,
		Source:       domain.SyntheticSource,
	}
}

func SyntheticForecast(location string, now time.Time) []domain.ForecastDay {
	days := make([]domain.ForecastDay, 0, 7)
	for i := 0; i < 7; i++ {
		date := now.AddDate(0, 0, i)
		seed := syntheticSeed(location, date.Truncate(24*time.Hour))

		days = append(days, domain.ForecastDay{
			Day:          date.Weekday().String(),
			Date:         date.Format("2006-01-02"),
			Condition:    syntheticConditions[seed%uint64(len(syntheticConditions))],
			TempHighC:    30 + int(seed%4),
			TempLowC:     23 + int(seed%3),
			Humidity:     70 + int(seed%20),
			WindSpeedKmh: 10 + int(seed%15),
			ChanceOfRain: int(seed % 80),
			UVIndex:      int(seed % 9),
		})
	}
	return days
}

func syntheticSeed(location string, t time.Time) uint64 {
	h := fnv.New64a()
	h.Write([]byte(location))
	h.Write([]byte(t.Format(time.RFC3339)))
	return h.Sum64()
}
