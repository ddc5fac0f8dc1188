package jma

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const positionPage = `<!DOCTYPE html>
<html><body>
<h1>Tropical Cyclone Information</h1>
<table>
	<tr><th>Name</th><th>Position</th><th>Movement</th><th>Pressure</th><th>Max Wind</th></tr>
	<tr>
		<td>TY 2422 (KONG-REY)</td>
		<td>21.5°N 126.0°E</td>
		<td>moving NW at 15 km/h</td>
		<td>935 hPa</td>
		<td>180 km/h</td>
	</tr>
	<tr>
		<td>TD</td>
		<td>15.0°N 130.0°E</td>
		<td>moving W slowly</td>
		<td>1000 hPa</td>
		<td>55 km/h</td>
	</tr>
</table>
</body></html>`

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	client := NewClient(server.URL, server.Client(), zap.NewNop())
	return client, server
}

// TestFetchStorms_ParsesPositionTable covers row extraction end to end: the
// named typhoon row and the unnamed depression row both normalize, the
// header row is skipped.
func TestFetchStorms_ParsesPositionTable(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, positionPage)
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	require.Len(t, storms, 2)

	typhoon := storms[0]
	assert.Equal(t, "Kong-rey", typhoon.Name)
	assert.Equal(t, 180, typhoon.WindSpeedKmh)
	assert.Equal(t, "Very Strong Typhoon", typhoon.Category)
	assert.InDelta(t, 21.5, typhoon.Position.Latitude, 1e-9)
	assert.InDelta(t, 126.0, typhoon.Position.Longitude, 1e-9)
	assert.Equal(t, "NW", typhoon.MovementDirection)
	assert.Equal(t, 15, typhoon.MovementSpeedKmh)
	require.NotNil(t, typhoon.PressureHPa)
	assert.Equal(t, 935, *typhoon.PressureHPa)
	assert.Equal(t, "JMA", typhoon.Source)

	depression := storms[1]
	assert.Equal(t, "Unnamed System", depression.Name)
	assert.Equal(t, 55, depression.WindSpeedKmh)
	assert.Equal(t, "Tropical Depression", depression.Category)
	assert.Equal(t, "W", depression.MovementDirection)
	assert.Equal(t, 0, depression.MovementSpeedKmh)
}

// TestFetchStorms_ColumnOrderDoesNotMatter verifies the independent cell
// scans survive a reshuffled table, including a longitude column that comes
// before the latitude column.
func TestFetchStorms_ColumnOrderDoesNotMatter(t *testing.T) {
	page := `<html><body><table>
		<tr>
			<td>994 hPa</td>
			<td>65 km/h</td>
			<td>TS 2423 (TRAMI)</td>
			<td>122.8°E</td>
			<td>moving WNW at 20 km/h</td>
			<td>17.2°N</td>
		</tr>
	</table></body></html>`

	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	require.Len(t, storms, 1)

	assert.Equal(t, "Trami", storms[0].Name)
	assert.Equal(t, 65, storms[0].WindSpeedKmh)
	assert.Equal(t, "Tropical Storm", storms[0].Category)
	assert.InDelta(t, 17.2, storms[0].Position.Latitude, 1e-9)
	assert.InDelta(t, 122.8, storms[0].Position.Longitude, 1e-9)
	require.NotNil(t, storms[0].PressureHPa)
	assert.Equal(t, 994, *storms[0].PressureHPa)
}

// TestFetchStorms_NoTable verifies a quiet page yields an empty list, not an
// error.
func TestFetchStorms_NoTable(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><p>There are no tropical cyclones.</p></body></html>`)
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, storms)
}

// TestFetchStorms_RowWithoutPosition verifies rows lacking a coordinate are
// dropped rather than emitted half-filled.
func TestFetchStorms_RowWithoutPosition(t *testing.T) {
	page := `<html><body><table>
		<tr><td>TY 2424</td><td>dissipated</td><td>n/a</td><td>n/a</td><td>n/a</td></tr>
	</table></body></html>`

	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	storms, err := client.FetchStorms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, storms)
}

func TestFetchStorms_UpstreamError(t *testing.T) {
	client, server := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := client.FetchStorms(context.Background())
	assert.Error(t, err)
}
