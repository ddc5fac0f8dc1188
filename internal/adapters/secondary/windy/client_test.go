package windy

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, "test-key", server.Client(), zap.NewNop())
	return client, server
}

// TestCurrentWeather covers the raw-model arithmetic: Kelvin to Celsius,
// u/v components to speed and bearing, Pascal to hPa, layered cloud cover.
func TestCurrentWeather(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/point-forecast/v2", r.URL.Path)

		var req pointForecastRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-key", req.Key)
		assert.Equal(t, "gfs", req.Model)
		assert.InDelta(t, 14.5995, req.Lat, 1e-9)

		fmt.Fprint(w, `{
			"ts": [1729576800000],
			"temp-surface": [301.15],
			"wind_u-surface": [-8.0],
			"wind_v-surface": [-6.0],
			"gust-surface": [15.0],
			"rh-surface": [82.4],
			"pressure-surface": [100800],
			"lclouds-surface": [30],
			"mclouds-surface": [40],
			"hclouds-surface": [50],
			"past3hprecip-surface": [0]
		}`)
	}))
	defer server.Close()

	snapshot, err := client.CurrentWeather(context.Background(), domain.Coordinates{Latitude: 14.5995, Longitude: 120.9842})
	require.NoError(t, err)

	assert.Equal(t, 28, snapshot.TemperatureC)
	// sqrt(64+36) = 10 m/s converts to 36 km/h.
	assert.Equal(t, 36, snapshot.WindSpeedKmh)
	assert.Equal(t, 233, snapshot.WindDirection)
	assert.Equal(t, 54, snapshot.WindGustKmh)
	assert.Equal(t, 82, snapshot.Humidity)
	assert.Equal(t, 1008, snapshot.PressureHPa)
	// 30+40+50 caps at 100, which reads as overcast.
	assert.Equal(t, 100, snapshot.CloudCover)
	assert.Equal(t, "Clouds", snapshot.Condition)
	assert.Equal(t, "Windy", snapshot.Source)
}

func TestCurrentWeather_RainWinsOverClouds(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"ts": [1729576800000],
			"temp-surface": [300.15],
			"wind_u-surface": [2.0],
			"wind_v-surface": [0],
			"gust-surface": [4.0],
			"rh-surface": [90],
			"pressure-surface": [100500],
			"lclouds-surface": [20],
			"mclouds-surface": [10],
			"hclouds-surface": [5],
			"past3hprecip-surface": [0.002]
		}`)
	}))
	defer server.Close()

	snapshot, err := client.CurrentWeather(context.Background(), domain.Coordinates{Latitude: 14.5995, Longitude: 120.9842})
	require.NoError(t, err)

	// 0.002 m is 2 mm of rain in the past three hours.
	assert.Equal(t, "Rain", snapshot.Condition)
}

func TestCurrentWeather_EmptyResponse(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ts": []}`)
	}))
	defer server.Close()

	_, err := client.CurrentWeather(context.Background(), domain.Coordinates{Latitude: 14.5995, Longitude: 120.9842})
	assert.Error(t, err)
}

// TestForecast verifies the 3-hourly steps fold into daily records in
// timestamp order.
func TestForecast(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Two steps on 2024-10-22, one on 10-23.
		fmt.Fprint(w, `{
			"ts": [1729576800000, 1729598400000, 1729663200000],
			"temp-surface": [299.15, 303.15, 301.15],
			"wind_u-surface": [3.0, -8.0, 5.0],
			"wind_v-surface": [4.0, -6.0, 0],
			"gust-surface": [8.0, 15.0, 9.0],
			"rh-surface": [80, 70, 85],
			"pressure-surface": [100800, 100700, 100600],
			"lclouds-surface": [10, 30, 90],
			"mclouds-surface": [10, 40, 10],
			"hclouds-surface": [10, 50, 0],
			"past3hprecip-surface": [0, 0.0004, 0.003]
		}`)
	}))
	defer server.Close()

	days, err := client.Forecast(context.Background(), domain.Coordinates{Latitude: 14.5995, Longitude: 120.9842})
	require.NoError(t, err)
	require.Len(t, days, 2)

	first := days[0]
	assert.Equal(t, "2024-10-22", first.Date)
	assert.Equal(t, "Tuesday", first.Day)
	assert.Equal(t, 30, first.TempHighC)
	assert.Equal(t, 26, first.TempLowC)
	assert.Equal(t, 36, first.WindSpeedKmh)
	assert.Equal(t, 75, first.Humidity)
	// 0.4 mm over the day scales to a 4% rain chance.
	assert.Equal(t, 4, first.ChanceOfRain)
	assert.Equal(t, "Clouds", first.Condition)

	second := days[1]
	assert.Equal(t, "2024-10-23", second.Date)
	assert.Equal(t, "Rain", second.Condition)
}
