package openweathermap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

const kristineAlert = `{
	"alerts": [{
		"sender_name": "PAGASA",
		"event": "Typhoon Warning",
		"start": 1729576800,
		"end": 1729663200,
		"description": "Typhoon Kristine moving NW at 20 km/h with 150 km/h winds located at 15.5°N 125.0°E, central pressure 950 hPa"
	}]
}`

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, "test-key", server.Client(), zap.NewNop())
	return client, server
}

// TestFetchStorms_ExtractsTyphoonFromAlert covers the full probe-and-extract
// path: a Manila alert describing Typhoon Kristine yields one normalized
// candidate with every field parsed out of the prose.
func TestFetchStorms_ExtractsTyphoonFromAlert(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/3.0/onecall", r.URL.Path)
		require.Equal(t, "test-key", r.URL.Query().Get("appid"))

		if r.URL.Query().Get("lat") == "14.5995" {
			fmt.Fprint(w, kristineAlert)
			return
		}
		fmt.Fprint(w, `{"alerts": []}`)
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	require.Len(t, storms, 1)

	storm := storms[0]
	assert.Equal(t, "Kristine", storm.Name)
	assert.Equal(t, 150, storm.WindSpeedKmh)
	assert.Equal(t, "Typhoon", storm.Category)
	assert.InDelta(t, 15.5, storm.Position.Latitude, 1e-9)
	assert.InDelta(t, 125.0, storm.Position.Longitude, 1e-9)
	assert.Equal(t, 20, storm.MovementSpeedKmh)
	assert.Equal(t, "NW", storm.MovementDirection)
	require.NotNil(t, storm.PressureHPa)
	assert.Equal(t, 950, *storm.PressureHPa)
	assert.Equal(t, "OpenWeatherMap", storm.Source)
	assert.Equal(t, time.Unix(1729576800, 0).UTC(), storm.LastUpdated)
	// The warning text carries the full advisory prose, not the short event
	// label.
	assert.Contains(t, storm.Warnings, "Typhoon Kristine moving NW")
}

// TestFetchStorms_PositionFallsBackToProbe verifies an alert without an
// embedded coordinate pair is pinned to the probe that saw it.
func TestFetchStorms_PositionFallsBackToProbe(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("lat") == "10.3157" {
			fmt.Fprint(w, `{"alerts": [{"event": "Tropical Storm Warning", "description": "A tropical storm is approaching"}]}`)
			return
		}
		fmt.Fprint(w, `{"alerts": []}`)
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	require.Len(t, storms, 1)

	assert.Equal(t, "Unnamed System", storms[0].Name)
	assert.InDelta(t, 10.3157, storms[0].Position.Latitude, 1e-9)
	assert.InDelta(t, 123.8854, storms[0].Position.Longitude, 1e-9)
	// No numeric wind figure, so the keyword estimate applies.
	assert.Equal(t, 65, storms[0].WindSpeedKmh)
}

// TestFetchStorms_ProbeFailureTolerated verifies one failing probe does not
// abort the sweep.
func TestFetchStorms_ProbeFailureTolerated(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("lat") {
		case "14.5995":
			http.Error(w, "upstream error", http.StatusInternalServerError)
		case "11.2408":
			fmt.Fprint(w, kristineAlert)
		default:
			fmt.Fprint(w, `{"alerts": []}`)
		}
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	assert.Len(t, storms, 1)
}

// TestFetchStorms_IgnoresNonCycloneAlerts verifies ordinary advisories never
// become storm candidates.
func TestFetchStorms_IgnoresNonCycloneAlerts(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"alerts": [{"event": "Heat Advisory", "description": "Dangerously hot conditions expected"}]}`)
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, storms)
}

func TestResolve(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/geo/1.0/direct", r.URL.Path)
		require.Equal(t, "Manila", r.URL.Query().Get("q"))
		fmt.Fprint(w, `[{"name": "Manila", "lat": 14.5995, "lon": 120.9842, "country": "PH"}]`)
	}))
	defer server.Close()

	coords, err := client.Resolve(context.Background(), "Manila")
	require.NoError(t, err)
	assert.InDelta(t, 14.5995, coords.Latitude, 1e-9)
	assert.InDelta(t, 120.9842, coords.Longitude, 1e-9)
}

func TestResolve_NoResult(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer server.Close()

	_, err := client.Resolve(context.Background(), "Atlantis")
	assert.Error(t, err)
}

func TestCurrentWeather(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/2.5/weather", r.URL.Path)
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		fmt.Fprint(w, `{
			"name": "Manila",
			"sys": {"country": "PH"},
			"weather": [{"main": "Rain", "description": "heavy intensity rain"}],
			"main": {"temp": 28.6, "feels_like": 33.2, "humidity": 84, "pressure": 1004},
			"wind": {"speed": 12.5, "deg": 310, "gust": 18.0},
			"clouds": {"all": 90},
			"visibility": 6000,
			"dt": 1729576800
		}`)
	}))
	defer server.Close()

	snapshot, err := client.CurrentWeather(context.Background(), domain.Coordinates{Latitude: 14.5995, Longitude: 120.9842})
	require.NoError(t, err)

	assert.Equal(t, 29, snapshot.TemperatureC)
	assert.Equal(t, "Rain", snapshot.Condition)
	assert.Equal(t, 84, snapshot.Humidity)
	// 12.5 m/s converts to 45 km/h after truncation.
	assert.Equal(t, 45, snapshot.WindSpeedKmh)
	assert.Equal(t, 64, snapshot.WindGustKmh)
	assert.Equal(t, 1004, snapshot.PressureHPa)
	assert.InDelta(t, 6.0, snapshot.VisibilityKm, 1e-9)
	assert.Equal(t, 33, snapshot.FeelsLikeC)
	assert.Equal(t, "OpenWeatherMap", snapshot.Source)
}

// TestForecast verifies 3-hourly periods fold into daily records with the
// day's extremes and maximum rain chance.
func TestForecast(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/data/2.5/forecast", r.URL.Path)
		// Two periods on 2024-10-22 (09:00 and 12:00 UTC), one on 10-23.
		fmt.Fprint(w, `{"list": [
			{"dt": 1729587600, "main": {"temp_max": 30.2, "temp_min": 26.1, "humidity": 80}, "weather": [{"main": "Clouds"}], "wind": {"speed": 8.0}, "pop": 0.4},
			{"dt": 1729598400, "main": {"temp_max": 31.4, "temp_min": 27.0, "humidity": 75}, "weather": [{"main": "Rain"}], "wind": {"speed": 10.0}, "pop": 0.9},
			{"dt": 1729684800, "main": {"temp_max": 29.0, "temp_min": 25.5, "humidity": 85}, "weather": [{"main": "Rain"}], "wind": {"speed": 6.0}, "pop": 0.6}
		]}`)
	}))
	defer server.Close()

	days, err := client.Forecast(context.Background(), domain.Coordinates{Latitude: 14.5995, Longitude: 120.9842})
	require.NoError(t, err)
	require.Len(t, days, 2)

	first := days[0]
	assert.Equal(t, "2024-10-22", first.Date)
	assert.Equal(t, "Tuesday", first.Day)
	assert.Equal(t, 31, first.TempHighC)
	assert.Equal(t, 26, first.TempLowC)
	// The 12:00 period is closest to midday.
	assert.Equal(t, "Rain", first.Condition)
	assert.Equal(t, 75, first.Humidity)
	assert.Equal(t, 36, first.WindSpeedKmh)
	assert.Equal(t, 90, first.ChanceOfRain)
}

func TestAlerts(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, kristineAlert)
	}))
	defer server.Close()

	alerts, err := client.Alerts(context.Background(), domain.Coordinates{Latitude: 14.5995, Longitude: 120.9842})
	require.NoError(t, err)
	require.Len(t, alerts, 1)

	assert.Equal(t, domain.AlertCritical, alerts[0].Type)
	assert.Equal(t, "Typhoon Warning", alerts[0].Title)
	assert.Equal(t, "OpenWeatherMap", alerts[0].Source)
}
