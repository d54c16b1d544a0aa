// Package weather acquires daily weather observations for an analysis date
// range. A Provider yields one day at a time; the Fetcher fans requests out
// over bounded batches and converts per-date errors into soft failures so a
// single bad day never sinks a whole range.
package weather

import (
	"context"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
)

// Location is a geographic point plus the timezone the daily rollup is
// computed in.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`
}

// Observation is one day of weather at a location. Humidity is nil when the
// upstream archive has no reading for the day.
type Observation struct {
	DateISO      string   `json:"date"`
	TemperatureC float64  `json:"temperature_c"`
	RainfallMM   float64  `json:"rainfall_mm"`
	HumidityPct  *float64 `json:"humidity_pct"`
}

// SoftFailure records a date that could not be fetched and why. Soft
// failures ride alongside successful observations; callers decide whether
// the surviving coverage is still usable.
type SoftFailure struct {
	DateISO string      `json:"date"`
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
}

// Provider returns the observation for one location and day.
type Provider interface {
	Daily(ctx context.Context, loc Location, dateISO string) (Observation, error)
}
