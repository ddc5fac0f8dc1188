// Package openmeteo implements the Open-Meteo secondary adapter. Open-Meteo
// is keyless and returns clean JSON with selectable units, so this is the
// simplest provider: no extraction heuristics, just a WMO weather-code table.
// It has no cyclone product at all, so its storm feed is permanently empty.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/convert"
	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

const providerName = "Open-Meteo"

// Client talks to the Open-Meteo forecast API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an Open-Meteo client. baseURL is typically
// https://api.open-meteo.com and is overridable for tests.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Name() string { return providerName }

// FetchStorms always reports no storms: Open-Meteo carries no tropical
// cyclone product and is wired in purely as a weather and forecast source.
func (c *Client) FetchStorms(ctx context.Context) ([]domain.Storm, error) {
	return []domain.Storm{}, nil
}

type currentResponse struct {
	Current struct {
		Time             string  `json:"time"`
		Temperature      float64 `json:"temperature_2m"`
		Humidity         int     `json:"relative_humidity_2m"`
		ApparentTemp     float64 `json:"apparent_temperature"`
		WeatherCode      int     `json:"weather_code"`
		CloudCover       int     `json:"cloud_cover"`
		SurfacePressure  float64 `json:"surface_pressure"`
		WindSpeedKmh     float64 `json:"wind_speed_10m"`
		WindDirectionDeg int     `json:"wind_direction_10m"`
		WindGustsKmh     float64 `json:"wind_gusts_10m"`
	} `json:"current"`
}

// CurrentWeather fetches current conditions with km/h wind units requested
// up front, so no conversion is needed.
func (c *Client) CurrentWeather(ctx context.Context, coords domain.Coordinates) (*domain.WeatherSnapshot, error) {
	endpoint := fmt.Sprintf("%s/v1/forecast?latitude=%.4f&longitude=%.4f"+
		"&current=temperature_2m,relative_humidity_2m,apparent_temperature,weather_code,cloud_cover,surface_pressure,wind_speed_10m,wind_direction_10m,wind_gusts_10m"+
		"&wind_speed_unit=kmh&timezone=UTC",
		c.baseURL, coords.Latitude, convert.SignedLongitude(coords.Longitude))

	var resp currentResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	condition, description := describeWeatherCode(resp.Current.WeatherCode)

	return &domain.WeatherSnapshot{
		TemperatureC:  int(math.Round(resp.Current.Temperature)),
		Condition:     condition,
		Description:   description,
		Humidity:      resp.Current.Humidity,
		WindSpeedKmh:  int(resp.Current.WindSpeedKmh),
		WindDirection: resp.Current.WindDirectionDeg,
		WindGustKmh:   int(resp.Current.WindGustsKmh),
		PressureHPa:   int(math.Round(resp.Current.SurfacePressure)),
		FeelsLikeC:    int(math.Round(resp.Current.ApparentTemp)),
		CloudCover:    resp.Current.CloudCover,
		LastUpdated:   parseTime(resp.Current.Time),
		Source:        providerName,
	}, nil
}

type dailyResponse struct {
	Daily struct {
		Time          []string  `json:"time"`
		WeatherCode   []int     `json:"weather_code"`
		TempMax       []float64 `json:"temperature_2m_max"`
		TempMin       []float64 `json:"temperature_2m_min"`
		PrecipProbMax []int     `json:"precipitation_probability_max"`
		WindSpeedMax  []float64 `json:"wind_speed_10m_max"`
		UVIndexMax    []float64 `json:"uv_index_max"`
	} `json:"daily"`
}

// Forecast fetches the 7-day daily feed.
func (c *Client) Forecast(ctx context.Context, coords domain.Coordinates) ([]domain.ForecastDay, error) {
	endpoint := fmt.Sprintf("%s/v1/forecast?latitude=%.4f&longitude=%.4f"+
		"&daily=weather_code,temperature_2m_max,temperature_2m_min,precipitation_probability_max,wind_speed_10m_max,uv_index_max"+
		"&wind_speed_unit=kmh&timezone=UTC&forecast_days=7",
		c.baseURL, coords.Latitude, convert.SignedLongitude(coords.Longitude))

	var resp dailyResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	days := make([]domain.ForecastDay, 0, len(resp.Daily.Time))
	for i, date := range resp.Daily.Time {
		parsed, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}

		condition, _ := describeWeatherCode(intAt(resp.Daily.WeatherCode, i))

		days = append(days, domain.ForecastDay{
			Day:          parsed.Weekday().String(),
			Date:         date,
			Condition:    condition,
			TempHighC:    int(math.Round(floatAt(resp.Daily.TempMax, i))),
			TempLowC:     int(math.Round(floatAt(resp.Daily.TempMin, i))),
			WindSpeedKmh: int(floatAt(resp.Daily.WindSpeedMax, i)),
			ChanceOfRain: intAt(resp.Daily.PrecipProbMax, i),
			UVIndex:      int(math.Round(floatAt(resp.Daily.UVIndexMax, i))),
		})
	}

	return days, nil
}

// describeWeatherCode maps WMO interpretation codes to the shared condition
// vocabulary.
func describeWeatherCode(code int) (string, string) {
	switch {
	case code == 0:
		return "Clear", "clear sky"
	case code <= 2:
		return "Partly Cloudy", "partly cloudy"
	case code == 3:
		return "Clouds", "overcast"
	case code == 45 || code == 48:
		return "Fog", "fog"
	case code >= 51 && code <= 57:
		return "Drizzle", "drizzle"
	case code >= 61 && code <= 67:
		return "Rain", "rain"
	case code >= 71 && code <= 77:
		return "Snow", "snow"
	case code >= 80 && code <= 82:
		return "Rain", "rain showers"
	case code >= 95:
		return "Thunderstorm", "thunderstorm"
	default:
		return "Clouds", "unsettled"
	}
}

func parseTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func intAt(series []int, i int) int {
	if i >= len(series) {
		return 0
	}
	return series[i]
}

func floatAt(series []float64, i int) float64 {
	if i >= len(series) {
		return 0
	}
	return series[i]
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("open-meteo returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
