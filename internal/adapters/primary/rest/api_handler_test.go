package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
)

// MockTyphoonService is a mock implementation of the TyphoonService interface.
type MockTyphoonService struct {
	mock.Mock
}

func (m *MockTyphoonService) ActiveStorms(ctx context.Context) ([]domain.Storm, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Storm), args.Error(1)
}

// MockWeatherService is a mock implementation of the WeatherService interface.
type MockWeatherService struct {
	mock.Mock
}

func (m *MockWeatherService) Weather(ctx context.Context, location string) (*domain.WeatherSnapshot, error) {
	args := m.Called(ctx, location)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*domain.WeatherSnapshot), args.Error(1)
}

func (m *MockWeatherService) Forecast(ctx context.Context, location string) ([]domain.ForecastDay, error) {
	args := m.Called(ctx, location)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.ForecastDay), args.Error(1)
}

func (m *MockWeatherService) Alerts(ctx context.Context, location string) ([]domain.Alert, error) {
	args := m.Called(ctx, location)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]domain.Alert), args.Error(1)
}

func newTestHandler(typhoons *MockTyphoonService, weather *MockWeatherService) *APIHandler {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 10, 22, 6, 0, 0, 0, time.UTC))
	return NewAPIHandler(typhoons, weather, clock, zap.NewNop())
}

func doRequest(h *APIHandler, target string) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	h.Dispatch(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	return recorder
}

func decodeEnvelope(t *testing.T, recorder *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &envelope))
	return envelope
}

// TestDispatch_Typhoon verifies the storm list rides the success envelope
// with the fixed-clock timestamp.
func TestDispatch_Typhoon(t *testing.T) {
	typhoons := new(MockTyphoonService)
	typhoons.On("ActiveStorms", mock.Anything).Return([]domain.Storm{
		{Name: "Kristine", Category: "Typhoon", WindSpeedKmh: 150},
	}, nil)

	recorder := doRequest(newTestHandler(typhoons, new(MockWeatherService)), "/?action=typhoon")

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	envelope := decodeEnvelope(t, recorder)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, "2024-10-22T06:00:00Z", envelope["timestamp"])

	data, ok := envelope["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	storm := data[0].(map[string]any)
	assert.Equal(t, "Kristine", storm["name"])
}

// TestDispatch_TyphoonEmptyListIsSuccess pins the contract that "no active
// storms" is a success with an empty array, never an error.
func TestDispatch_TyphoonEmptyListIsSuccess(t *testing.T) {
	typhoons := new(MockTyphoonService)
	typhoons.On("ActiveStorms", mock.Anything).Return([]domain.Storm{}, nil)

	recorder := doRequest(newTestHandler(typhoons, new(MockWeatherService)), "/?action=typhoon")

	assert.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	assert.Equal(t, true, envelope["success"])

	data, ok := envelope["data"].([]any)
	require.True(t, ok)
	assert.Empty(t, data)
}

func TestDispatch_Weather(t *testing.T) {
	weather := new(MockWeatherService)
	weather.On("Weather", mock.Anything, "Manila").Return(&domain.WeatherSnapshot{
		Location:     "Manila",
		TemperatureC: 29,
		Condition:    "Rain",
		Source:       "Windy",
	}, nil)

	recorder := doRequest(newTestHandler(new(MockTyphoonService), weather), "/?action=weather&location=Manila")

	assert.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	assert.Equal(t, true, envelope["success"])

	data := envelope["data"].(map[string]any)
	assert.Equal(t, "Manila", data["location"])
	assert.Equal(t, "Rain", data["condition"])
}

// TestDispatch_InvalidLocationIs400 verifies service validation errors map
// to the 400 error envelope.
func TestDispatch_InvalidLocationIs400(t *testing.T) {
	weather := new(MockWeatherService)
	weather.On("Weather", mock.Anything, "").Return(nil, &domain.ServiceError{
		Code:    domain.ErrCodeInvalidLocation,
		Message: "location must not be empty",
	})

	recorder := doRequest(newTestHandler(new(MockTyphoonService), weather), "/?action=weather")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "location must not be empty", envelope["error"])
	assert.NotEmpty(t, envelope["timestamp"])
}

func TestDispatch_Forecast(t *testing.T) {
	weather := new(MockWeatherService)
	weather.On("Forecast", mock.Anything, "Cebu").Return([]domain.ForecastDay{
		{Day: "Tuesday", Date: "2024-10-22", Condition: "Rain"},
	}, nil)

	recorder := doRequest(newTestHandler(new(MockTyphoonService), weather), "/?action=forecast&location=Cebu")

	assert.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	data, ok := envelope["data"].([]any)
	require.True(t, ok)
	assert.Len(t, data, 1)
}

func TestDispatch_Alerts(t *testing.T) {
	weather := new(MockWeatherService)
	weather.On("Alerts", mock.Anything, "Manila").Return([]domain.Alert{}, nil)

	recorder := doRequest(newTestHandler(new(MockTyphoonService), weather), "/?action=alerts&location=Manila")

	assert.Equal(t, http.StatusOK, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	assert.Equal(t, true, envelope["success"])
}

func TestDispatch_UnknownAction(t *testing.T) {
	recorder := doRequest(newTestHandler(new(MockTyphoonService), new(MockWeatherService)), "/?action=nonsense")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	envelope := decodeEnvelope(t, recorder)
	assert.Equal(t, false, envelope["success"])
}

func TestDispatch_MissingAction(t *testing.T) {
	recorder := doRequest(newTestHandler(new(MockTyphoonService), new(MockWeatherService)), "/")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}
