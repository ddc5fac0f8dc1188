package domain

import "time"

// WeatherSnapshot is the normalized current-conditions record shared by all
// weather providers. Optional measurements a provider cannot supply are left
// at their zero value rather than invented.
type WeatherSnapshot struct {
	Location      string    `json:"location"`
	Country       string    `json:"country,omitempty"`
	TemperatureC  int       `json:"temperature"`
	Condition     string    `json:"condition"`
	Description   string    `json:"description,omitempty"`
	Humidity      int       `json:"humidity"`
	WindSpeedKmh  int       `json:"windSpeed"`
	WindDirection int       `json:"windDirection,omitempty"`
	WindGustKmh   int       `json:"windGust,omitempty"`
	PressureHPa   int       `json:"pressure"`
	VisibilityKm  float64   `json:"visibility,omitempty"`
	FeelsLikeC    int       `json:"feelsLike"`
	UVIndex       int       `json:"uvIndex"`
	CloudCover    int       `json:"cloudCover"`
	LastUpdated   time.Time `json:"lastUpdated"`
	Source        string    `json:"source"`
}

// ForecastDay is one day of the normalized daily forecast.
type ForecastDay struct {
	Day          string `json:"day"`
	Date         string `json:"date"`
	Condition    string `json:"condition"`
	TempHighC    int    `json:"tempHigh"`
	TempLowC     int    `json:"tempLow"`
	Humidity     int    `json:"humidity"`
	WindSpeedKmh int    `json:"windSpeed"`
	ChanceOfRain int    `json:"chanceOfRain"`
	UVIndex      int    `json:"uvIndex"`
}

// AlertType buckets alert severity for the presentation layer.
type AlertType string

const (
	AlertCritical AlertType = "critical"
	AlertWarning  AlertType = "warning"
	AlertInfo     AlertType = "info"
)

// Alert is a normalized severe-weather advisory.
type Alert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Severity  string    `json:"severity"`
	Source    string    `json:"source,omitempty"`
}

// SyntheticSource tags weather and forecast payloads that were generated
// locally because every provider failed. Storm data is never synthesized.
const SyntheticSource = "Synthetic"
