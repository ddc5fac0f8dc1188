// Package rest implements the HTTP surface of the aggregation service. This
// package is the primary adapter: it translates the action-dispatch query
// API into service calls and wraps every answer in the response envelope the
// map client expects.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
	"github.com/bayanforecast/stormwatch/internal/core/ports"
)

// APIHandler serves the action-dispatch endpoint. Every request names its
// operation in the `action` query parameter rather than the path; the
// envelope shape is shared across all actions.
type APIHandler struct {
	typhoons ports.TyphoonService
	weather  ports.WeatherService
	clock    clockwork.Clock
	logger   *zap.Logger
}

// NewAPIHandler creates the handler for the action-dispatch endpoint.
func NewAPIHandler(typhoons ports.TyphoonService, weather ports.WeatherService, clock clockwork.Clock, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		typhoons: typhoons,
		weather:  weather,
		clock:    clock,
		logger:   logger,
	}
}

// Envelope is the uniform response wrapper.
type Envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Dispatch routes a request by its action parameter.
func (h *APIHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")

	switch action {
	case "weather":
		h.handleWeather(w, r)
	case "typhoon":
		h.handleTyphoon(w, r)
	case "forecast":
		h.handleForecast(w, r)
	case "alerts":
		h.handleAlerts(w, r)
	default:
		h.respondError(w, http.StatusBadRequest, "unknown or missing action")
	}
}

func (h *APIHandler) handleWeather(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.weather.Weather(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondData(w, snapshot)
}

// handleTyphoon serves the storm list. An empty list is a meaningful "no
// active storms" answer and is delivered as success, never as an error.
func (h *APIHandler) handleTyphoon(w http.ResponseWriter, r *http.Request) {
	storms, err := h.typhoons.ActiveStorms(r.Context())
	if err != nil {
		h.logger.Error("storm aggregation failed", zap.Error(err))
		storms = []domain.Storm{}
	}
	if storms == nil {
		storms = []domain.Storm{}
	}

	h.respondData(w, storms)
}

func (h *APIHandler) handleForecast(w http.ResponseWriter, r *http.Request) {
	days, err := h.weather.Forecast(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.respondData(w, days)
}

func (h *APIHandler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.weather.Alerts(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}

	h.respondData(w, alerts)
}

func (h *APIHandler) handleServiceError(w http.ResponseWriter, err error) {
	var serviceErr *domain.ServiceError

	if errors.As(err, &serviceErr) {
		switch serviceErr.Code {
		case domain.ErrCodeInvalidLocation, domain.ErrCodeInvalidRequest:
			h.respondError(w, http.StatusBadRequest, serviceErr.Message)
			return
		}
	}

	h.logger.Error("request failed", zap.Error(err))
	h.respondError(w, http.StatusInternalServerError, "an unexpected error occurred")
}

func (h *APIHandler) respondData(w http.ResponseWriter, data interface{}) {
	h.respondJSON(w, http.StatusOK, Envelope{
		Success:   true,
		Data:      data,
		Timestamp: h.timestamp(),
	})
}

func (h *APIHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, Envelope{
		Success:   false,
		Error:     message,
		Timestamp: h.timestamp(),
	})
}

func (h *APIHandler) respondJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (h *APIHandler) timestamp() string {
	return h.clock.Now().UTC().Format(time.RFC3339)
}
