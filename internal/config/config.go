// Package config provides centralized configuration management for the
// aggregation service. It loads configuration from environment variables
// with sensible defaults, supporting different deployment environments
// (development, staging, production).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration settings for the service. It aggregates
// configuration for all components including the HTTP server, provider
// adapters, Redis, PostgreSQL, and observability tools.
type Config struct {
	Server        ServerConfig
	Providers     ProvidersConfig
	Cache         CacheConfig
	Redis         RedisConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// ServerConfig contains HTTP server settings and timeouts.
type ServerConfig struct {
	Port         string
	MetricsPort  string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ProviderConfig describes one upstream data source. A provider whose key is
// required but absent or still a placeholder is treated as disabled: the
// adapter is skipped at wiring time, never errored at request time.
type ProviderConfig struct {
	Enabled bool
	APIKey  string
	BaseURL string
}

// Usable reports whether the provider can be wired: it must be enabled and,
// when a key is required, carry a real one.
func (p ProviderConfig) Usable(keyRequired bool) bool {
	if !p.Enabled {
		return false
	}
	if !keyRequired {
		return true
	}
	return !isPlaceholderKey(p.APIKey)
}

// isPlaceholderKey recognizes unset and template-ish keys left over from
// sample configuration files.
func isPlaceholderKey(key string) bool {
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	lowered := strings.ToLower(key)
	for _, marker := range []string{"your_", "your-", "changeme", "placeholder", "xxx"} {
		if strings.Contains(lowered, marker) {
			return true
		}
	}

	return false
}

// ProvidersConfig groups the five upstream sources plus the NOAA auxiliary
// endpoints.
type ProvidersConfig struct {
	OpenWeatherMap ProviderConfig
	Windy          ProviderConfig
	NOAA           ProviderConfig
	JMA            ProviderConfig
	OpenMeteo      ProviderConfig

	// NOAANWSBaseURL is the api.weather.gov surface used for alerts and the
	// products fallback.
	NOAANWSBaseURL string

	// NOAARSSURL is the NHC advisory feed; empty disables enrichment.
	NOAARSSURL string

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout time.Duration
}

// CacheConfig controls how long aggregated responses are reused.
type CacheConfig struct {
	StormTTL   time.Duration
	WeatherTTL time.Duration
}

// RedisConfig contains settings for Redis cache and rate limiting.
type RedisConfig struct {
	Enabled      bool
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	MaxRetries   int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig contains PostgreSQL connection settings for the optional
// storm-sighting history store.
type DatabaseConfig struct {
	Enabled               bool
	Host                  string
	Port                  int
	User                  string
	Password              string
	Database              string
	SSLMode               string
	MaxConnections        int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
}

// ObservabilityConfig contains settings for distributed tracing and metrics.
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	OTLPEndpoint   string
	SampleRate     float64
}

// RateLimitConfig contains rate limiting settings.
type RateLimitConfig struct {
	RPS    int
	Window time.Duration
}

// Load reads configuration from environment variables and returns a Config
// instance.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			MetricsPort:  getEnv("METRICS_PORT", "9090"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Providers: ProvidersConfig{
			OpenWeatherMap: ProviderConfig{
				Enabled: getEnvAsBool("OWM_ENABLED", true),
				APIKey:  getEnv("OWM_API_KEY", ""),
				BaseURL: getEnv("OWM_BASE_URL", "https://api.openweathermap.org"),
			},
			Windy: ProviderConfig{
				Enabled: getEnvAsBool("WINDY_ENABLED", true),
				APIKey:  getEnv("WINDY_API_KEY", ""),
				BaseURL: getEnv("WINDY_BASE_URL", "https://api.windy.com"),
			},
			NOAA: ProviderConfig{
				Enabled: getEnvAsBool("NOAA_ENABLED", true),
				BaseURL: getEnv("NOAA_NHC_BASE_URL", "https://www.nhc.noaa.gov"),
			},
			JMA: ProviderConfig{
				Enabled: getEnvAsBool("JMA_ENABLED", true),
				BaseURL: getEnv("JMA_BASE_URL", "https://www.jma.go.jp/bosai/information/typhoon.html"),
			},
			OpenMeteo: ProviderConfig{
				Enabled: getEnvAsBool("OPEN_METEO_ENABLED", true),
				BaseURL: getEnv("OPEN_METEO_BASE_URL", "https://api.open-meteo.com"),
			},
			NOAANWSBaseURL: getEnv("NOAA_NWS_BASE_URL", "https://api.weather.gov"),
			NOAARSSURL:     getEnv("NOAA_RSS_URL", "https://www.nhc.noaa.gov/index-at.xml"),
			HTTPTimeout:    getEnvAsDuration("PROVIDER_HTTP_TIMEOUT", 15*time.Second),
		},
		Cache: CacheConfig{
			StormTTL:   getEnvAsDuration("STORM_CACHE_TTL", 5*time.Minute),
			WeatherTTL: getEnvAsDuration("WEATHER_CACHE_TTL", 10*time.Minute),
		},
		Redis: RedisConfig{
			Enabled:      getEnvAsBool("REDIS_ENABLED", false),
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     10,
			MinIdleConns: 5,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Database: DatabaseConfig{
			Enabled:               getEnvAsBool("DATABASE_ENABLED", false),
			Host:                  getEnv("DB_HOST", "localhost"),
			Port:                  getEnvAsInt("DB_PORT", 5432),
			User:                  getEnv("DB_USER", "stormwatch"),
			Password:              getEnv("DB_PASSWORD", ""),
			Database:              getEnv("DB_NAME", "stormwatch"),
			SSLMode:               getEnv("DB_SSLMODE", "disable"),
			MaxConnections:        25,
			MaxIdleConnections:    5,
			ConnectionMaxLifetime: 5 * time.Minute,
		},
		Observability: ObservabilityConfig{
			ServiceName:    "stormwatch",
			ServiceVersion: getEnv("VERSION", "1.0.0"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			OTLPEndpoint:   getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:     0.1,
		},
		RateLimit: RateLimitConfig{
			RPS:    getEnvAsInt("RATE_LIMIT_RPS", 100),
			Window: time.Minute,
		},
	}
}

// getEnv retrieves an environment variable value with a fallback default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}

	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer with a
// fallback default.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}

	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean with a
// fallback default.
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}

	return defaultValue
}

// getEnvAsDuration retrieves an environment variable as a duration with a
// fallback default.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}

	return defaultValue
}
