package middleware

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/infrastructure/database"
)

// AuditStore receives one audit row per completed request.
type AuditStore interface {
	LogAudit(ctx context.Context, log database.AuditLog) error
}

// AuditMiddleware writes request audit rows asynchronously. Auditing is best
// effort: a slow or failing store never delays the response.
type AuditMiddleware struct {
	store  AuditStore
	logger *zap.Logger
}

func NewAuditMiddleware(store AuditStore, logger *zap.Logger) *AuditMiddleware {
	return &AuditMiddleware{
		store:  store,
		logger: logger,
	}
}

func (m *AuditMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		entry := database.AuditLog{
			CorrelationID: GetCorrelationID(r.Context()),
			RequestID:     GetRequestID(r.Context()),
			Method:        r.Method,
			Path:          r.URL.Path,
			StatusCode:    wrapped.statusCode,
			DurationMs:    time.Since(start).Milliseconds(),
			UserAgent:     r.UserAgent(),
			RemoteAddr:    GetClientIP(r),
		}

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := m.store.LogAudit(ctx, entry); err != nil {
				m.logger.Warn("failed to write audit log",
					zap.String("path", entry.Path),
					zap.Error(err))
			}
		}()
	})
}
