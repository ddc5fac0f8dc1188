// Package app wires the aggregation service together: configuration,
// provider adapters, caching, persistence, observability, and the HTTP
// surface. Everything optional (Redis, PostgreSQL, telemetry, individual
// providers) degrades gracefully when unavailable.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/adapters/primary/rest"
	"github.com/bayanforecast/stormwatch/internal/adapters/secondary/jma"
	"github.com/bayanforecast/stormwatch/internal/adapters/secondary/noaa"
	"github.com/bayanforecast/stormwatch/internal/adapters/secondary/openmeteo"
	"github.com/bayanforecast/stormwatch/internal/adapters/secondary/openweathermap"
	"github.com/bayanforecast/stormwatch/internal/adapters/secondary/windy"
	"github.com/bayanforecast/stormwatch/internal/config"
	"github.com/bayanforecast/stormwatch/internal/core/ports"
	"github.com/bayanforecast/stormwatch/internal/core/services"
	coresignal "github.com/bayanforecast/stormwatch/internal/core/signal"
	"github.com/bayanforecast/stormwatch/internal/infrastructure/cache"
	"github.com/bayanforecast/stormwatch/internal/infrastructure/circuitbreaker"
	"github.com/bayanforecast/stormwatch/internal/infrastructure/database"
	"github.com/bayanforecast/stormwatch/internal/infrastructure/ratelimit"
	"github.com/bayanforecast/stormwatch/internal/middleware"
	"github.com/bayanforecast/stormwatch/internal/observability"
	"github.com/bayanforecast/stormwatch/internal/version"
)

// Server represents the HTTP server instance.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// App manages the application lifecycle and dependencies.
type App struct {
	cfg       *config.Config
	server    *Server
	logger    *zap.Logger
	telemetry *observability.Telemetry
	db        *database.PostgresDB
	breakers  *circuitbreaker.Manager
}

// New creates a new application instance.
func New() (*App, error) {
	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Server.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Start initializes and starts all application components.
func (a *App) Start(ctx context.Context) error {
	if err := a.initTelemetry(ctx); err != nil {
		a.logger.Warn("failed to initialize telemetry, continuing without it", zap.Error(err))
	}

	cacheService, rateLimitService := a.initRedisServices(ctx)

	if err := a.initDatabase(); err != nil {
		a.logger.Warn("failed to connect to database, continuing without sighting history", zap.Error(err))
	}

	a.breakers = circuitbreaker.NewManager(a.logger)

	httpClient := &http.Client{Timeout: a.cfg.Providers.HTTPTimeout}
	clock := clockwork.NewRealClock()

	var owmClient *openweathermap.Client
	if a.cfg.Providers.OpenWeatherMap.Usable(true) {
		owmClient = openweathermap.NewClient(
			a.cfg.Providers.OpenWeatherMap.BaseURL,
			a.cfg.Providers.OpenWeatherMap.APIKey,
			httpClient,
			a.logger,
		)
	}

	var noaaClient *noaa.Client
	if a.cfg.Providers.NOAA.Usable(false) {
		noaaClient = noaa.NewClient(
			a.cfg.Providers.NOAA.BaseURL,
			a.cfg.Providers.NOAANWSBaseURL,
			a.cfg.Providers.NOAARSSURL,
			httpClient,
			a.logger,
		)
	}

	stormProviders := a.buildStormProviders(owmClient, noaaClient, httpClient)
	weatherProviders := a.buildWeatherProviders(owmClient, httpClient)
	alerters := a.buildAlertProviders(owmClient, noaaClient)

	var geocoder ports.Geocoder
	if owmClient != nil {
		geocoder = owmClient
	}

	var repo ports.StormRepository
	if a.db != nil {
		repo = a.db
	}

	typhoonService := services.NewTyphoonService(
		stormProviders,
		cacheService,
		repo,
		coresignal.Philippines,
		a.cfg.Cache.StormTTL,
		clock,
		a.logger,
	)

	weatherService := services.NewWeatherService(
		geocoder,
		weatherProviders,
		alerters,
		cacheService,
		a.cfg.Cache.WeatherTTL,
		clock,
		a.logger,
	)

	apiHandler := rest.NewAPIHandler(typhoonService, weatherService, clock, a.logger)

	rateLimitMiddleware := middleware.NewRateLimitMiddleware(
		rateLimitService,
		a.cfg.RateLimit.RPS,
		a.cfg.RateLimit.Window,
		a.logger,
	)

	router := a.setupRouter(apiHandler, rateLimitMiddleware)

	a.server = &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%s", a.cfg.Server.Port),
			Handler:      router,
			ReadTimeout:  a.cfg.Server.ReadTimeout,
			WriteTimeout: a.cfg.Server.WriteTimeout,
			IdleTimeout:  a.cfg.Server.IdleTimeout,
		},
		logger: a.logger,
	}

	go func() {
		a.logger.Info("starting HTTP server", zap.String("port", a.cfg.Server.Port))

		if err := a.server.server.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				a.logger.Fatal("failed to start server", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop gracefully shuts down all application components.
func (a *App) Stop() {
	a.logger.Info("shutting down application...")

	if a.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := a.server.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown server gracefully", zap.Error(err))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("failed to close database connection", zap.Error(err))
		}
	}

	if a.telemetry != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := a.telemetry.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("failed to shutdown telemetry", zap.Error(err))
		}
	}

	if err := a.logger.Sync(); err != nil {
		// Sync can fail on some platforms, ignore the error
		_ = err
	}
}

// WaitForShutdown blocks until the server receives a shutdown signal.
func (a *App) WaitForShutdown() {
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	a.logger.Info("shutdown signal received")
}

// buildStormProviders assembles the storm fallback chain in data-quality
// order. Each provider is guarded by its own circuit breaker and, when
// telemetry is up, instrumented with fetch metrics.
func (a *App) buildStormProviders(owmClient *openweathermap.Client, noaaClient *noaa.Client, httpClient *http.Client) []ports.StormProvider {
	breakerCfg := circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	}

	var providers []ports.StormProvider

	if owmClient != nil {
		guarded := circuitbreaker.GuardStormProvider(owmClient, a.breakers, breakerCfg)
		providers = append(providers, instrumentStormProvider(guarded, a.telemetry))
	}

	if a.cfg.Providers.JMA.Usable(false) {
		jmaClient := jma.NewClient(a.cfg.Providers.JMA.BaseURL, httpClient, a.logger)
		guarded := circuitbreaker.GuardStormProvider(jmaClient, a.breakers, breakerCfg)
		providers = append(providers, instrumentStormProvider(guarded, a.telemetry))
	}

	if noaaClient != nil {
		guarded := circuitbreaker.GuardStormProvider(noaaClient, a.breakers, breakerCfg)
		providers = append(providers, instrumentStormProvider(guarded, a.telemetry))
	}

	if len(providers) == 0 {
		a.logger.Warn("no storm providers configured, typhoon responses will be empty")
	}

	return providers
}

// buildWeatherProviders assembles the weather fallback chain. Open-Meteo
// needs no key so it is the always-available last resort before the
// synthetic fallback.
func (a *App) buildWeatherProviders(owmClient *openweathermap.Client, httpClient *http.Client) []ports.WeatherProvider {
	breakerCfg := circuitbreaker.Config{
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
	}

	var providers []ports.WeatherProvider

	if a.cfg.Providers.Windy.Usable(true) {
		windyClient := windy.NewClient(
			a.cfg.Providers.Windy.BaseURL,
			a.cfg.Providers.Windy.APIKey,
			httpClient,
			a.logger,
		)
		providers = append(providers, circuitbreaker.GuardWeatherProvider(windyClient, a.breakers, breakerCfg))
	}

	if owmClient != nil {
		providers = append(providers, circuitbreaker.GuardWeatherProvider(owmClient, a.breakers, breakerCfg))
	}

	if a.cfg.Providers.OpenMeteo.Usable(false) {
		meteoClient := openmeteo.NewClient(a.cfg.Providers.OpenMeteo.BaseURL, httpClient, a.logger)
		providers = append(providers, circuitbreaker.GuardWeatherProvider(meteoClient, a.breakers, breakerCfg))
	}

	return providers
}

// buildAlertProviders assembles the additive alert sources.
func (a *App) buildAlertProviders(owmClient *openweathermap.Client, noaaClient *noaa.Client) []ports.AlertProvider {
	var alerters []ports.AlertProvider

	if owmClient != nil {
		alerters = append(alerters, owmClient)
	}

	if noaaClient != nil {
		alerters = append(alerters, noaaClient)
	}

	return alerters
}

// initTelemetry initializes OpenTelemetry providers.
func (a *App) initTelemetry(ctx context.Context) error {
	telemetryConfig := observability.Config{
		ServiceName:    a.cfg.Observability.ServiceName,
		ServiceVersion: a.cfg.Observability.ServiceVersion,
		Environment:    a.cfg.Observability.Environment,
		OTLPEndpoint:   a.cfg.Observability.OTLPEndpoint,
		SampleRate:     a.cfg.Observability.SampleRate,
	}

	var err error
	a.telemetry, err = observability.InitTelemetry(ctx, telemetryConfig, a.logger)

	return err
}

// initRedisServices initializes Redis-based or memory-based cache and rate
// limiting. Redis being down is never fatal.
func (a *App) initRedisServices(ctx context.Context) (ports.CacheService, ports.RateLimitService) {
	if !a.cfg.Redis.Enabled {
		a.logger.Info("Redis disabled, using memory-based services")

		memCache := cache.NewMemoryCache(a.cfg.Cache.StormTTL, 10*time.Minute, a.logger)
		memRateLimit := middleware.NewMemoryRateLimiter(a.logger)

		return memCache, memRateLimit
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		a.logger.Warn("Redis connection failed, falling back to memory-based services", zap.Error(err))

		memCache := cache.NewMemoryCache(a.cfg.Cache.StormTTL, 10*time.Minute, a.logger)
		memRateLimit := middleware.NewMemoryRateLimiter(a.logger)

		return memCache, memRateLimit
	}

	a.logger.Info("Redis connected successfully")

	redisCfg := cache.Config{
		Addr:         a.cfg.Redis.Addr,
		Password:     a.cfg.Redis.Password,
		DB:           a.cfg.Redis.DB,
		PoolSize:     a.cfg.Redis.PoolSize,
		MinIdleConns: a.cfg.Redis.MinIdleConns,
		MaxRetries:   a.cfg.Redis.MaxRetries,
		DialTimeout:  a.cfg.Redis.DialTimeout,
		ReadTimeout:  a.cfg.Redis.ReadTimeout,
		WriteTimeout: a.cfg.Redis.WriteTimeout,
	}

	cacheService, _ := cache.NewRedisCache(redisCfg, a.logger)
	rateLimitService := ratelimit.NewRedisRateLimiter(redisClient, a.logger)

	return cacheService, rateLimitService
}

// initDatabase initializes the optional PostgreSQL sighting store.
func (a *App) initDatabase() error {
	if !a.cfg.Database.Enabled {
		return nil
	}

	dbConfig := database.Config{
		Host:                  a.cfg.Database.Host,
		Port:                  a.cfg.Database.Port,
		User:                  a.cfg.Database.User,
		Password:              a.cfg.Database.Password,
		Database:              a.cfg.Database.Database,
		SSLMode:               a.cfg.Database.SSLMode,
		MaxConnections:        a.cfg.Database.MaxConnections,
		MaxIdleConnections:    a.cfg.Database.MaxIdleConnections,
		ConnectionMaxLifetime: a.cfg.Database.ConnectionMaxLifetime,
	}

	var err error
	a.db, err = database.NewPostgresDB(dbConfig, a.logger)

	return err
}

// setupRouter creates the HTTP router. The aggregation API lives at the
// root path and dispatches on the "action" query parameter; operational
// endpoints get their own paths.
func (a *App) setupRouter(apiHandler *rest.APIHandler, rateLimitMiddleware *middleware.RateLimitMiddleware) http.Handler {
	router := mux.NewRouter()

	if a.telemetry != nil {
		obsMiddleware := middleware.NewObservabilityMiddleware(a.telemetry, a.logger)
		router.Use(obsMiddleware.TracingMiddleware)
		router.Use(obsMiddleware.MetricsMiddleware)
		router.Use(obsMiddleware.LoggingMiddleware)
	}

	if a.db != nil {
		auditMiddleware := middleware.NewAuditMiddleware(a.db, a.logger)
		router.Use(auditMiddleware.Middleware)
	}

	router.Handle("/", rateLimitMiddleware.Middleware(http.HandlerFunc(apiHandler.Dispatch))).Methods("GET")

	router.HandleFunc("/health", a.handleHealth).Methods("GET")
	router.HandleFunc("/health/live", a.handleHealth).Methods("GET")
	router.HandleFunc("/health/ready", a.handleReady).Methods("GET")
	router.HandleFunc("/version", a.handleVersion).Methods("GET")
	router.HandleFunc("/stats", a.handleStats).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}

func (a *App) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady reports readiness. The database is optional, but when it is
// configured a broken connection makes the instance not ready.
func (a *App) handleReady(w http.ResponseWriter, _ *http.Request) {
	if a.db != nil {
		if err := a.db.Ping(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("READY"))
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(version.Get()); err != nil {
		a.logger.Error("failed to encode version info", zap.Error(err))
	}
}

// handleStats exposes circuit breaker state and, when the sighting store is
// up, a 24-hour summary of recorded storms.
func (a *App) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"circuit_breakers": a.breakers.GetStats(),
	}

	if a.db != nil {
		sightings, err := a.db.Stats(r.Context(), time.Now().Add(-24*time.Hour))
		if err != nil {
			a.logger.Error("failed to read sighting stats", zap.Error(err))
		} else {
			stats["sightings_24h"] = sightings
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(stats); err != nil {
		a.logger.Error("failed to encode stats", zap.Error(err))
	}
}
