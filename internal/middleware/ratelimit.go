package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/ports"
)

// RateLimitMiddleware limits requests per client IP using the configured
// limiter (Redis-backed or in-memory). Rejections use the same response
// envelope as the API handlers so clients parse one shape everywhere.
type RateLimitMiddleware struct {
	limiter ports.RateLimitService
	limit   int
	window  time.Duration
	logger  *zap.Logger
}

func NewRateLimitMiddleware(limiter ports.RateLimitService, limit int, window time.Duration, logger *zap.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		limit:   limit,
		window:  window,
		logger:  logger,
	}
}

func (m *RateLimitMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := GetClientIP(r)

		allowed, err := m.limiter.Allow(r.Context(), clientIP, m.limit, m.window)
		if err != nil {
			// Fail open: a broken limiter backend should not take the API down.
			m.logger.Warn("rate limiter unavailable, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err))

			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			m.logger.Debug("rate limit exceeded",
				zap.String("client_ip", clientIP),
				zap.Int("limit", m.limit))

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"success":   false,
				"error":     "rate limit exceeded",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}
