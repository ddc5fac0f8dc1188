package noaa

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

const atlanticFeed = `{
	"activeStorms": [{
		"id": "al142024",
		"name": "Milton",
		"classification": "HU",
		"intensity": "85",
		"pressure": "954",
		"latitudeNumeric": 22.0,
		"longitudeNumeric": -91.0,
		"movementDir": 90,
		"movementSpeed": 9,
		"lastUpdate": "2024-10-07T21:00:00.000Z"
	}]
}`

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
	<title>NHC Atlantic</title>
	<item>
		<title>Hurricane Milton Public Advisory Number 12</title>
		<description>Milton strengthening over the Gulf</description>
	</item>
</channel></rss>`

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, server.URL, server.URL+"/rss.xml", server.Client(), zap.NewNop())
	return client, server
}

// TestFetchStorms_NormalizesBasinFeed covers feed parsing, the knots
// heuristic, western-hemisphere longitude normalization, and RSS advisory
// enrichment.
func TestFetchStorms_NormalizesBasinFeed(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/active_atl.json":
			fmt.Fprint(w, atlanticFeed)
		case "/active_epac.json":
			fmt.Fprint(w, `{"activeStorms": []}`)
		case "/rss.xml":
			w.Header().Set("Content-Type", "application/rss+xml")
			fmt.Fprint(w, rssFeed)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	require.Len(t, storms, 1)

	storm := storms[0]
	assert.Equal(t, "al142024", storm.ID)
	assert.Equal(t, "Milton", storm.Name)
	// 85 knots is under the 200 threshold, so it converts as knots: 157 km/h.
	assert.Equal(t, 157, storm.WindSpeedKmh)
	assert.Equal(t, "Category 3", storm.Category)
	assert.InDelta(t, 22.0, storm.Position.Latitude, 1e-9)
	// -91.0 normalizes east-positive.
	assert.InDelta(t, 269.0, storm.Position.Longitude, 1e-9)
	assert.Equal(t, 16, storm.MovementSpeedKmh)
	require.NotNil(t, storm.PressureHPa)
	assert.Equal(t, 954, *storm.PressureHPa)
	assert.Equal(t, "NOAA", storm.Source)
	assert.Equal(t, "Hurricane Milton Public Advisory Number 12", storm.Warnings)
}

// TestFetchStorms_IntensityAlreadyKmh verifies values at or above 200 skip
// the knots conversion.
func TestFetchStorms_IntensityAlreadyKmh(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/active_atl.json":
			fmt.Fprint(w, `{"activeStorms": [{"id": "al152024", "name": "Nadine", "intensity": "215", "latitudeNumeric": 18.0, "longitudeNumeric": -60.0}]}`)
		case "/active_epac.json":
			fmt.Fprint(w, `{"activeStorms": []}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	require.Len(t, storms, 1)
	assert.Equal(t, 215, storms[0].WindSpeedKmh)
	assert.Equal(t, "Category 5", storms[0].Category)
}

// TestFetchStorms_ProductsFallback verifies the advisory-text path activates
// when both basin feeds are empty.
func TestFetchStorms_ProductsFallback(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/active_atl.json", "/active_epac.json":
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		case "/products/types/TCP":
			fmt.Fprint(w, `{"@graph": [{"id": "abc-123"}]}`)
		case "/products/abc-123":
			fmt.Fprint(w, `{"productText": "Hurricane Oscar located at 20.1N, 74.3W moving W at 12 kt with maximum sustained winds of 75 knots"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	require.Len(t, storms, 1)

	storm := storms[0]
	assert.Equal(t, "Oscar", storm.Name)
	// 75 knots converts to 138 km/h after the movement clause is stripped.
	assert.Equal(t, 138, storm.WindSpeedKmh)
	assert.Equal(t, "Category 2", storm.Category)
	assert.InDelta(t, 20.1, storm.Position.Latitude, 1e-9)
	assert.InDelta(t, 285.7, storm.Position.Longitude, 1e-9)
	assert.Equal(t, "W", storm.MovementDirection)
	assert.Equal(t, 22, storm.MovementSpeedKmh)
}

// TestFetchStorms_AllSourcesDown verifies total upstream failure still yields
// an empty list, never an error.
func TestFetchStorms_AllSourcesDown(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, storms)
}

func TestAlerts(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/alerts/active", r.URL.Path)
		fmt.Fprint(w, `{
			"type": "FeatureCollection",
			"features": [{
				"type": "Feature",
				"id": "urn:oid:2.49.0.1.840.0.1",
				"geometry": null,
				"properties": {
					"event": "Hurricane Warning",
					"description": "Hurricane conditions expected",
					"severity": "Extreme",
					"sent": "2024-10-07T21:00:00Z"
				}
			}, {
				"type": "Feature",
				"geometry": null,
				"properties": {
					"event": "Coastal Flood Advisory",
					"description": "Minor flooding expected",
					"severity": "Minor",
					"sent": "2024-10-07T18:00:00Z"
				}
			}]
		}`)
	}))
	defer server.Close()

	alerts, err := client.Alerts(context.Background(), domain.Coordinates{Latitude: 25.76, Longitude: 279.81})
	require.NoError(t, err)
	require.Len(t, alerts, 2)

	assert.Equal(t, "urn:oid:2.49.0.1.840.0.1", alerts[0].ID)
	assert.Equal(t, domain.AlertCritical, alerts[0].Type)
	assert.Equal(t, "Hurricane Warning", alerts[0].Title)
	assert.Equal(t, domain.AlertInfo, alerts[1].Type)
	assert.NotEmpty(t, alerts[1].ID)
}
