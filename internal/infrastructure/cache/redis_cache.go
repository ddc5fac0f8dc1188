package cache

import (
	"context"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/ports"
)

// tracer instruments every cache round trip; storm and weather lookups are
// cache-first, so this is the hottest path in the service.
var tracer = otel.Tracer("cache")

// RedisCache backs the storm and weather snapshot cache with Redis so that
// multiple service instances share one view of what has already been fetched
// from the providers. Entries carry the TTLs the services choose per data
// kind (storm lists turn over faster than weather snapshots).
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

// Config holds Redis connection and pooling settings, populated from the
// service configuration.
type Config struct {
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

// NewRedisCache connects to Redis and verifies the connection with a ping.
// A failure here is the caller's cue to fall back to the in-memory cache
// rather than start without one.
func NewRedisCache(cfg Config, logger *zap.Logger) (ports.CacheService, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisCache{
		client: rdb,
		logger: logger,
	}, nil
}

// Get returns the cached bytes for key, or ErrCacheMiss when the entry is
// absent or expired. Hits and misses are distinguished on the span so the
// cache effectiveness per data kind shows up in traces.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "Cache.Get")
	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	start := time.Now()
	result, err := r.client.Get(ctx, key).Bytes()
	duration := time.Since(start)

	if errors.Is(err, redis.Nil) {
		span.SetAttributes(attribute.Bool("cache.hit", false))

		r.logger.Debug("cache miss",
			zap.String("key", key),
			zap.Duration("duration", duration))

		return nil, ErrCacheMiss
	}

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache get error",
			zap.String("key", key),
			zap.Error(err))

		return nil, err
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))

	r.logger.Debug("cache hit",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return result, nil
}

// Set stores value under key for ttl.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := tracer.Start(ctx, "Cache.Set")
	defer span.End()

	span.SetAttributes(
		attribute.String("cache.key", key),
		attribute.Int("cache.value_size", len(value)),
		attribute.String("cache.ttl", ttl.String()),
	)

	start := time.Now()
	err := r.client.Set(ctx, key, value, ttl).Err()
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache set error",
			zap.String("key", key),
			zap.Error(err))

		return err
	}

	r.logger.Debug("cache set",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return nil
}

// Delete removes key; deleting an absent key is not an error.
func (r *RedisCache) Delete(ctx context.Context, key string) error {
	ctx, span := tracer.Start(ctx, "Cache.Delete")
	defer span.End()

	span.SetAttributes(attribute.String("cache.key", key))

	start := time.Now()
	err := r.client.Del(ctx, key).Err()
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)

		r.logger.Error("cache delete error",
			zap.String("key", key),
			zap.Error(err))

		return err
	}

	r.logger.Debug("cache delete",
		zap.String("key", key),
		zap.Duration("duration", duration))

	return nil
}

// Clear flushes the whole Redis database. This drops every cached snapshot
// across all service instances, so it is reserved for operational resets.
func (r *RedisCache) Clear(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Cache.Clear")
	defer span.End()

	start := time.Now()
	err := r.client.FlushDB(ctx).Err()
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		r.logger.Error("cache clear error", zap.Error(err))

		return err
	}

	r.logger.Info("cache cleared", zap.Duration("duration", duration))

	return nil
}

// Close releases the client's connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// ErrCacheMiss reports an absent or expired cache entry.
var ErrCacheMiss = redis.Nil
