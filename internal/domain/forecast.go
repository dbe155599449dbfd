package domain

import (
	"context"
	"fmt"
)

// Classification is the forecast service's verdict for an event window.
type Classification string

const (
	Safe   Classification = "Safe"
	Risky  Classification = "Risky"
	Unsafe Classification = "Unsafe"
)

// Coordinates is a WGS-84 latitude/longitude pair in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EventRequest is the body sent to the forecast service.
type EventRequest struct {
	Name      string      `json:"name"`
	Location  Coordinates `json:"location"`
	StartTime string      `json:"start_time"` // second precision, e.g. "2024-04-26T14:00:00"
	EndTime   string      `json:"end_time"`
}

// HourlyPoint is one hour of the event window forecast.
type HourlyPoint struct {
	Time         string   `json:"time"`
	RainProb     int      `json:"rain_prob"` // 0–100
	WindKmh      float64  `json:"wind_kmh"`
	TemperatureC *float64 `json:"temperature_c,omitempty"`
}

// ForecastResult is the forecast service's successful response.
// It is treated as immutable once received.
type ForecastResult struct {
	Classification      Classification `json:"classification"`
	Summary             string         `json:"summary"`
	Reason              []string       `json:"reason"`
	EventWindowForecast []HourlyPoint  `json:"event_window_forecast"`
}

// ForecastClient calls the remote forecast service.
type ForecastClient interface {
	Forecast(ctx context.Context, req EventRequest) (ForecastResult, error)
}

// APIError is a non-2xx response from a collaborator. Message holds the
// body's "error" field and is empty when the body had none.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("forecast API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("forecast API error: status %d: %s", e.StatusCode, e.Message)
}
