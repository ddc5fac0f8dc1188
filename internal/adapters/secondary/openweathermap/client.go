// Package openweathermap implements the OpenWeatherMap secondary adapter. It
// serves four ports from one client: geocoding, current weather, the 5-day
// forecast, and severe-weather alerts. Storm detection rides on the alert
// feed: the adapter probes fixed Philippine and Western-Pacific coordinates
// and runs the free-text extractor over every alert that mentions a tropical
// cyclone.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bayanforecast/stormwatch/internal/core/convert"
	"github.com/bayanforecast/stormwatch/internal/core/domain"
	"github.com/bayanforecast/stormwatch/internal/core/scale"
	"github.com/bayanforecast/stormwatch/internal/core/stormtext"
)

const providerName = "OpenWeatherMap"

// probePoints are the fixed coordinates queried for severe-weather alerts:
// five Philippine cities plus three broader Western-Pacific points. The alert
// API answers point queries only, so regional coverage means fanning out.
var probePoints = []domain.Coordinates{
	{Latitude: 14.5995, Longitude: 120.9842}, // Manila
	{Latitude: 10.3157, Longitude: 123.8854}, // Cebu
	{Latitude: 7.1907, Longitude: 125.4553},  // Davao
	{Latitude: 16.4023, Longitude: 120.5960}, // Baguio
	{Latitude: 11.2408, Longitude: 125.0058}, // Tacloban
	{Latitude: 15.0, Longitude: 120.0},
	{Latitude: 20.0, Longitude: 125.0},
	{Latitude: 10.0, Longitude: 125.0},
}

// Client talks to the OpenWeatherMap REST APIs.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates an OpenWeatherMap client. baseURL is typically
// https://api.openweathermap.org and is overridable for tests.
func NewClient(baseURL, apiKey string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Name() string { return providerName }

type geocodeEntry struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
}

// Resolve geocodes a place name via the /geo/1.0/direct endpoint.
func (c *Client) Resolve(ctx context.Context, location string) (domain.Coordinates, error) {
	endpoint := fmt.Sprintf("%s/geo/1.0/direct?q=%s&limit=1&appid=%s",
		c.baseURL, url.QueryEscape(location), c.apiKey)

	var entries []geocodeEntry
	if err := c.getJSON(ctx, endpoint, &entries); err != nil {
		return domain.Coordinates{}, err
	}
	if len(entries) == 0 {
		return domain.Coordinates{}, fmt.Errorf("no geocoding result for %q", location)
	}

	return domain.Coordinates{
		Latitude:  entries[0].Lat,
		Longitude: convert.NormalizeLongitude(entries[0].Lon),
	}, nil
}

type weatherResponse struct {
	Name    string `json:"name"`
	Sys     struct {
		Country string `json:"country"`
	} `json:"sys"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
		Pressure  int     `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
		Gust  float64 `json:"gust"`
	} `json:"wind"`
	Clouds struct {
		All int `json:"all"`
	} `json:"clouds"`
	Visibility int   `json:"visibility"`
	Dt         int64 `json:"dt"`
}

// CurrentWeather fetches conditions from /data/2.5/weather with metric units.
// Wind arrives in m/s and is converted to km/h.
func (c *Client) CurrentWeather(ctx context.Context, coords domain.Coordinates) (*domain.WeatherSnapshot, error) {
	endpoint := fmt.Sprintf("%s/data/2.5/weather?lat=%.4f&lon=%.4f&units=metric&appid=%s",
		c.baseURL, coords.Latitude, convert.SignedLongitude(coords.Longitude), c.apiKey)

	var resp weatherResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	snapshot := &domain.WeatherSnapshot{
		Location:      resp.Name,
		Country:       resp.Sys.Country,
		TemperatureC:  int(math.Round(resp.Main.Temp)),
		Humidity:      resp.Main.Humidity,
		WindSpeedKmh:  convert.MsToKmh(resp.Wind.Speed),
		WindDirection: resp.Wind.Deg,
		WindGustKmh:   convert.MsToKmh(resp.Wind.Gust),
		PressureHPa:   resp.Main.Pressure,
		VisibilityKm:  float64(resp.Visibility) / 1000,
		FeelsLikeC:    int(math.Round(resp.Main.FeelsLike)),
		CloudCover:    resp.Clouds.All,
		LastUpdated:   time.Unix(resp.Dt, 0).UTC(),
		Source:        providerName,
	}
	if len(resp.Weather) > 0 {
		snapshot.Condition = resp.Weather[0].Main
		snapshot.Description = resp.Weather[0].Description
	}

	return snapshot, nil
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			TempMax  float64 `json:"temp_max"`
			TempMin  float64 `json:"temp_min"`
			Humidity int     `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Main string `json:"main"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

// Forecast fetches the 5-day/3-hour feed and folds it into daily records:
// high and low from the day's extremes, condition and humidity from the
// period nearest midday, rain chance from the day's maximum.
func (c *Client) Forecast(ctx context.Context, coords domain.Coordinates) ([]domain.ForecastDay, error) {
	endpoint := fmt.Sprintf("%s/data/2.5/forecast?lat=%.4f&lon=%.4f&units=metric&appid=%s",
		c.baseURL, coords.Latitude, convert.SignedLongitude(coords.Longitude), c.apiKey)

	var resp forecastResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	type dayAgg struct {
		date      time.Time
		high, low float64
		condition string
		humidity  int
		windMs    float64
		pop       float64
		middayGap float64
	}

	days := map[string]*dayAgg{}
	for _, period := range resp.List {
		ts := time.Unix(period.Dt, 0).UTC()
		key := ts.Format("2006-01-02")

		agg, ok := days[key]
		if !ok {
			agg = &dayAgg{date: ts, high: period.Main.TempMax, low: period.Main.TempMin, middayGap: 24}
			days[key] = agg
		}

		agg.high = math.Max(agg.high, period.Main.TempMax)
		agg.low = math.Min(agg.low, period.Main.TempMin)
		agg.windMs = math.Max(agg.windMs, period.Wind.Speed)
		agg.pop = math.Max(agg.pop, period.Pop)

		gap := math.Abs(float64(ts.Hour()) - 12)
		if gap <= agg.middayGap {
			agg.middayGap = gap
			agg.humidity = period.Main.Humidity
			if len(period.Weather) > 0 {
				agg.condition = period.Weather[0].Main
			}
		}
	}

	keys := make([]string, 0, len(days))
	for key := range days {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	forecast := make([]domain.ForecastDay, 0, len(keys))
	for _, key := range keys {
		agg := days[key]
		forecast = append(forecast, domain.ForecastDay{
			Day:          agg.date.Weekday().String(),
			Date:         key,
			Condition:    agg.condition,
			TempHighC:    int(math.Round(agg.high)),
			TempLowC:     int(math.Round(agg.low)),
			Humidity:     agg.humidity,
			WindSpeedKmh: convert.MsToKmh(agg.windMs),
			ChanceOfRain: int(agg.pop * 100),
		})
	}

	return forecast, nil
}

type oneCallResponse struct {
	Alerts []rawAlert `json:"alerts"`
}

type rawAlert struct {
	SenderName  string `json:"sender_name"`
	Event       string `json:"event"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Description string `json:"description"`
}

func (c *Client) alertsAt(ctx context.Context, coords domain.Coordinates) ([]rawAlert, error) {
	endpoint := fmt.Sprintf("%s/data/3.0/onecall?lat=%.4f&lon=%.4f&exclude=current,minutely,hourly,daily&appid=%s",
		c.baseURL, coords.Latitude, convert.SignedLongitude(coords.Longitude), c.apiKey)

	var resp oneCallResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}

	return resp.Alerts, nil
}

// Alerts returns the advisories for one point, mapped for presentation.
func (c *Client) Alerts(ctx context.Context, coords domain.Coordinates) ([]domain.Alert, error) {
	raw, err := c.alertsAt(ctx, coords)
	if err != nil {
		return nil, err
	}

	alerts := make([]domain.Alert, 0, len(raw))
	for _, alert := range raw {
		alerts = append(alerts, domain.Alert{
			ID:        domain.StormID(alert.Event, coords),
			Type:      alertType(alert.Event, alert.Description),
			Title:     alert.Event,
			Message:   alert.Description,
			Timestamp: time.Unix(alert.Start, 0).UTC(),
			Severity:  alert.SenderName,
			Source:    providerName,
		})
	}

	return alerts, nil
}

func alertType(event, description string) domain.AlertType {
	if stormtext.IsTropicalCyclone(event, description) {
		return domain.AlertCritical
	}
	return domain.AlertWarning
}

// FetchStorms probes every fixed coordinate concurrently and extracts storm
// candidates from alerts that mention a tropical cyclone. A failed probe is
// logged and skipped so one bad point never sinks the whole sweep; duplicate
// detections across probes are left for the merge stage.
func (c *Client) FetchStorms(ctx context.Context) ([]domain.Storm, error) {
	var (
		mu     sync.Mutex
		storms []domain.Storm
	)

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(4)

	for _, probe := range probePoints {
		probe := probe
		group.Go(func() error {
			alerts, err := c.alertsAt(gctx, probe)
			if err != nil {
				c.logger.Warn("storm probe failed",
					zap.Float64("latitude", probe.Latitude),
					zap.Float64("longitude", probe.Longitude),
					zap.Error(err))
				return nil
			}

			for _, alert := range alerts {
				if storm, ok := c.extractStorm(alert, probe); ok {
					mu.Lock()
					storms = append(storms, storm)
					mu.Unlock()
				}
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return storms, nil
}

// extractStorm turns one cyclone-flavored alert into a normalized candidate.
// The movement clause is stripped before the wind scan because both figures
// carry the same unit suffix and the first match would win.
func (c *Client) extractStorm(alert rawAlert, probe domain.Coordinates) (domain.Storm, bool) {
	if !stormtext.IsTropicalCyclone(alert.Event, alert.Description) {
		return domain.Storm{}, false
	}

	text := alert.Event + " " + alert.Description
	movement, remainder := stormtext.ExtractMovement(text)
	windKmh := stormtext.ExtractWindSpeedKmh(remainder)

	position, found := stormtext.ExtractCoordinates(text)
	if !found {
		position = probe
	}

	name := stormtext.ExtractName(text)

	storm := domain.Storm{
		ID:                domain.StormID(name, position),
		Name:              name,
		Category:          scale.Categorize(scale.OpenWeatherMap, windKmh),
		WindSpeedKmh:      windKmh,
		Position:          position,
		MovementSpeedKmh:  movement.SpeedKmh,
		MovementDirection: movement.Direction,
		Status:            "Active",
		AffectedRegions:   []string{},
		Warnings:          alert.Description,
		Source:            providerName,
		LastUpdated:       time.Unix(alert.Start, 0).UTC(),
	}
	if pressure, ok := stormtext.ExtractPressureHPa(text); ok {
		storm.PressureHPa = &pressure
	}

	return storm, true
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
		return fmt.Errorf("openweathermap returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
