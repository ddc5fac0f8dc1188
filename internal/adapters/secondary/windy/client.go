// Package windy implements the Windy secondary adapter. Windy's
// point-forecast API is POST-based and returns parallel arrays of raw model
// output (Kelvin temperatures, Pascal pressures, u/v wind components), so
// this adapter does more arithmetic than the others: wind speed and bearing
// come from the component vectors and cloud cover is summed across the three
// layers. Windy has no storm feed; it contributes weather and forecast only.
package windy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/martinlindhe/unit"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/convert"
	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

const providerName = "Windy"

// Client talks to the Windy point-forecast API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Windy client. baseURL is typically
// https://api.windy.com and is overridable for tests.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Name() string { return providerName }

type pointForecastRequest struct {
	Lat        float64  `json:"lat"`
	Lon        float64  `json:"lon"`
	Model      string   `json:"model"`
	Parameters []string `json:"parameters"`
	Levels     []string `json:"levels"`
	Key        string   `json:"key"`
}

type pointForecastResponse struct {
	Ts       []int64   `json:"ts"`
	Temp     []float64 `json:"temp-surface"`
	WindU    []float64 `json:"wind_u-surface"`
	WindV    []float64 `json:"wind_v-surface"`
	Gust     []float64 `json:"gust-surface"`
	RH       []float64 `json:"rh-surface"`
	Pressure []float64 `json:"pressure-surface"`
	LClouds  []float64 `json:"lclouds-surface"`
	MClouds  []float64 `json:"mclouds-surface"`
	HClouds  []float64 `json:"hclouds-surface"`
	Precip   []float64 `json:"past3hprecip-surface"`
}

var forecastParameters = []string{
	"temp", "wind", "windGust", "rh", "pressure",
	"lclouds", "mclouds", "hclouds", "past3hprecip",
}

// CurrentWeather maps the first forecast step to a snapshot.
func (c *Client) CurrentWeather(ctx context.Context, coords domain.Coordinates) (*domain.WeatherSnapshot, error) {
	resp, err := c.pointForecast(ctx, coords)
	if err != nil {
		return nil, err
	}
	if len(resp.Ts) == 0 {
		return nil, fmt.Errorf("empty forecast response")
	}

	windKmh, windDeg := windFromComponents(resp.at(resp.WindU, 0), resp.at(resp.WindV, 0))
	clouds := cloudCover(resp.at(resp.LClouds, 0), resp.at(resp.MClouds, 0), resp.at(resp.HClouds, 0))
	precipMm := resp.at(resp.Precip, 0) * 1000

	return &domain.WeatherSnapshot{
		TemperatureC: int(math.Round(unit.FromKelvin(resp.at(resp.Temp, 0)).Celsius())),
		Condition:    condition(precipMm, clouds),
		Humidity:     int(resp.at(resp.RH, 0)),
		WindSpeedKmh: windKmh,
		WindDirection: windDeg,
		WindGustKmh:  convert.MsToKmh(resp.at(resp.Gust, 0)),
		PressureHPa:  int(math.Round((unit.Pressure(resp.at(resp.Pressure, 0)) * unit.Pascal).Hectopascals())),
		FeelsLikeC:   int(math.Round(unit.FromKelvin(resp.at(resp.Temp, 0)).Celsius())),
		CloudCover:   clouds,
		LastUpdated:  time.UnixMilli(resp.Ts[0]).UTC(),
		Source:       providerName,
	}, nil
}

// Forecast folds the 3-hourly steps into up to seven daily records.
func (c *Client) Forecast(ctx context.Context, coords domain.Coordinates) ([]domain.ForecastDay, error) {
	resp, err := c.pointForecast(ctx, coords)
	if err != nil {
		return nil, err
	}

	type dayAgg struct {
		date          time.Time
		highK, lowK   float64
		windKmh       int
		humiditySum   float64
		humidityCount int
		cloudsMax     int
		precipMm      float64
	}

	var order []string
	days := map[string]*dayAgg{}

	for i, ms := range resp.Ts {
		ts := time.UnixMilli(ms).UTC()
		key := ts.Format("2006-01-02")

		agg, ok := days[key]
		if !ok {
			if len(order) == 7 {
				break
			}
			agg = &dayAgg{date: ts, highK: resp.at(resp.Temp, i), lowK: resp.at(resp.Temp, i)}
			days[key] = agg
			order = append(order, key)
		}

		tempK := resp.at(resp.Temp, i)
		agg.highK = math.Max(agg.highK, tempK)
		agg.lowK = math.Min(agg.lowK, tempK)

		windKmh, _ := windFromComponents(resp.at(resp.WindU, i), resp.at(resp.WindV, i))
		if windKmh > agg.windKmh {
			agg.windKmh = windKmh
		}

		agg.humiditySum += resp.at(resp.RH, i)
		agg.humidityCount++

		clouds := cloudCover(resp.at(resp.LClouds, i), resp.at(resp.MClouds, i), resp.at(resp.HClouds, i))
		if clouds > agg.cloudsMax {
			agg.cloudsMax = clouds
		}

		agg.precipMm += resp.at(resp.Precip, i) * 1000
	}

	forecast := make([]domain.ForecastDay, 0, len(order))
	for _, key := range order {
		agg := days[key]

		humidity := 0
		if agg.humidityCount > 0 {
			humidity = int(agg.humiditySum / float64(agg.humidityCount))
		}

		rainChance := int(agg.precipMm * 10)
		if rainChance > 100 {
			rainChance = 100
		}

		forecast = append(forecast, domain.ForecastDay{
			Day:          agg.date.Weekday().String(),
			Date:         key,
			Condition:    condition(agg.precipMm, agg.cloudsMax),
			TempHighC:    int(math.Round(unit.FromKelvin(agg.highK).Celsius())),
			TempLowC:     int(math.Round(unit.FromKelvin(agg.lowK).Celsius())),
			Humidity:     humidity,
			WindSpeedKmh: agg.windKmh,
			ChanceOfRain: rainChance,
		})
	}

	return forecast, nil
}

func (c *Client) pointForecast(ctx context.Context, coords domain.Coordinates) (*pointForecastResponse, error) {
	payload, err := json.Marshal(pointForecastRequest{
		Lat:        coords.Latitude,
		Lon:        convert.SignedLongitude(coords.Longitude),
		Model:      "gfs",
		Parameters: forecastParameters,
		Levels:     []string{"surface"},
		Key:        c.apiKey,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/point-forecast/v2", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("windy returned status %d", resp.StatusCode)
	}

	var parsed pointForecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	return &parsed, nil
}

// at guards against Windy returning arrays shorter than ts.
func (r *pointForecastResponse) at(series []float64, i int) float64 {
	if i >= len(series) {
		return 0
	}
	return series[i]
}

// windFromComponents converts the u/v vector to speed in km/h and a
// meteorological bearing in degrees.
func windFromComponents(u, v float64) (int, int) {
	speedMs := math.Sqrt(u*u + v*v)
	deg := int(math.Mod(math.Atan2(u, v)*180/math.Pi+360, 360))
	return convert.MsToKmh(speedMs), deg
}

// cloudCover sums the three layers, capped at 100.
func cloudCover(low, mid, high float64) int {
	total := int(low + mid + high)
	if total > 100 {
		return 100
	}
	return total
}

func condition(precipMm float64, clouds int) string {
	switch {
	case precipMm > 0.5:
		return "Rain"
	case clouds > 80:
		return "Clouds"
	case clouds > 50:
		return "Partly Cloudy"
	default:
		return "Clear"
	}
}
