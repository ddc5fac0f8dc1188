// Package database implements the optional PostgreSQL persistence layer.
// Storm aggregation itself is request-scoped and stateless; the database
// only records storm sightings for "seen before" tracking and request audit
// rows, and the service runs fine without it.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
	"github.com/bayanforecast/stormwatch/internal/core/ports"
)

// PostgresDB wraps the connection pool and implements ports.StormRepository.
type PostgresDB struct {
	db     *sql.DB
	logger *zap.Logger
}

// Config holds PostgreSQL connection settings.
type Config struct {
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

// NewPostgresDB opens the pool, verifies connectivity, and applies pending
// migrations.
func NewPostgresDB(cfg Config, logger *zap.Logger) (*PostgresDB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnectionMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(db, logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresDB{
		db:     db,
		logger: logger,
	}, nil
}

// RecordSighting upserts one sighting keyed by the storm id. Repeated polls
// of the same system bump the sighting counter and refresh the latest
// measurements instead of inserting new rows.
func (p *PostgresDB) RecordSighting(ctx context.Context, storm domain.Storm) error {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "RecordSighting")
	defer span.End()

	span.SetAttributes(
		attribute.String("storm.id", storm.ID),
		attribute.String("storm.name", storm.Name),
	)

	query := `
        INSERT INTO storm_sightings (
            storm_id, name, category, wind_speed_kmh, pressure_hpa,
            latitude, longitude, signal_level, source, first_seen, last_seen, sighting_count
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW(), 1)
        ON CONFLICT (storm_id) DO UPDATE SET
            category = EXCLUDED.category,
            wind_speed_kmh = EXCLUDED.wind_speed_kmh,
            pressure_hpa = EXCLUDED.pressure_hpa,
            latitude = EXCLUDED.latitude,
            longitude = EXCLUDED.longitude,
            signal_level = EXCLUDED.signal_level,
            last_seen = NOW(),
            sighting_count = storm_sightings.sighting_count + 1
    `

	start := time.Now()
	_, err := p.db.ExecContext(ctx, query,
		storm.ID,
		storm.Name,
		storm.Category,
		storm.WindSpeedKmh,
		storm.PressureHPa,
		storm.Position.Latitude,
		storm.Position.Longitude,
		storm.SignalLevel,
		storm.Source,
	)

	duration := time.Since(start)
	if err != nil {
		p.logger.Error("failed to record sighting",
			zap.Error(err),
			zap.String("storm_id", storm.ID),
			zap.Duration("duration", duration),
		)
		span.RecordError(err)
		return err
	}

	p.logger.Debug("sighting recorded",
		zap.String("storm_id", storm.ID),
		zap.Duration("duration", duration),
	)

	return nil
}

// SeenBefore reports whether the storm id already has a sighting row.
func (p *PostgresDB) SeenBefore(ctx context.Context, stormID string) (bool, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM storm_sightings WHERE storm_id = $1)`,
		stormID,
	).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// Stats aggregates sightings recorded since the given time.
func (p *PostgresDB) Stats(ctx context.Context, since time.Time) (*ports.SightingStats, error) {
	stats := &ports.SightingStats{BySource: map[string]int{}}

	err := p.db.QueryRowContext(ctx, `
        SELECT COUNT(*), COALESCE(SUM(sighting_count), 0)
        FROM storm_sightings
        WHERE last_seen >= $1
    `, since).Scan(&stats.DistinctStorms, &stats.TotalSightings)
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, `
        SELECT source, COUNT(*)
        FROM storm_sightings
        WHERE last_seen >= $1
        GROUP BY source
    `, since)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, err
		}
		stats.BySource[source] = count
	}

	return stats, rows.Err()
}

// AuditLog is one request audit row.
type AuditLog struct {
	CorrelationID string
	RequestID     string
	Method        string
	Path          string
	StatusCode    int
	DurationMs    int64
	UserAgent     string
	RemoteAddr    string
	ErrorMessage  *string
}

// LogAudit records one request for after-the-fact debugging.
func (p *PostgresDB) LogAudit(ctx context.Context, log AuditLog) error {
	tracer := otel.Tracer("database")
	ctx, span := tracer.Start(ctx, "LogAudit")
	defer span.End()

	span.SetAttributes(
		attribute.String("correlation_id", log.CorrelationID),
		attribute.String("request_id", log.RequestID),
	)

	query := `
        INSERT INTO audit_logs (
            correlation_id, request_id, method, path, status_code,
            duration_ms, user_agent, remote_addr, error_message
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	_, err := p.db.ExecContext(ctx, query,
		log.CorrelationID,
		log.RequestID,
		log.Method,
		log.Path,
		log.StatusCode,
		log.DurationMs,
		log.UserAgent,
		log.RemoteAddr,
		log.ErrorMessage,
	)
	if err != nil {
		p.logger.Error("failed to log audit",
			zap.Error(err),
			zap.String("correlation_id", log.CorrelationID),
		)
		span.RecordError(err)
		return err
	}

	return nil
}

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping() error {
	return p.db.Ping()
}
