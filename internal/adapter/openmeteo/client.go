// Package openmeteo implements weather.Provider against the Open-Meteo
// ERA5 archive API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
	"github.com/couchcryptid/order-weather-insights/internal/weather"
)

// DefaultBaseURL is the public archive endpoint.
const DefaultBaseURL = "https://archive-api.open-meteo.com"

const dailyVariables = "temperature_2m_mean,precipitation_sum,relative_humidity_2m_mean"

// Client fetches daily archive observations. The archive API is free and
// unauthenticated but rate-limited, so all requests pass through a shared
// limiter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an archive API client. An empty baseURL takes the
// public endpoint; a nil limiter disables client-side rate limiting.
func NewClient(baseURL string, timeout time.Duration, limiter *rate.Limiter, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		limiter: limiter,
		logger:  logger,
	}
}

// Daily returns the archive observation for one location and day.
func (c *Client) Daily(ctx context.Context, loc weather.Location, dateISO string) (weather.Observation, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return weather.Observation{}, err
		}
	}

	params := url.Values{
		"latitude":   {fmt.Sprintf("%.4f", loc.Latitude)},
		"longitude":  {fmt.Sprintf("%.4f", loc.Longitude)},
		"start_date": {dateISO},
		"end_date":   {dateISO},
		"daily":      {dailyVariables},
	}
	if loc.Timezone != "" {
		params.Set("timezone", loc.Timezone)
	}

	resp, err := c.doRequest(ctx, c.baseURL+"/v1/archive?"+params.Encode())
	if err != nil {
		return weather.Observation{}, err
	}

	return observationAt(resp, dateISO)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (archiveResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return archiveResponse{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return archiveResponse{}, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return archiveResponse{}, fmt.Errorf("open-meteo API error: status %d: %s", resp.StatusCode, body)
	}

	var archive archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&archive); err != nil {
		return archiveResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return archive, nil
}

// observationAt extracts the single requested day from an archive response.
// Days without a temperature reading are reported as absent rather than
// fabricated, so the merge stage can impute from neighbors instead.
func observationAt(resp archiveResponse, dateISO string) (weather.Observation, error) {
	for i, day := range resp.Daily.Time {
		if day != dateISO {
			continue
		}
		temp := valueAt(resp.Daily.TemperatureMean, i)
		if temp == nil {
			return weather.Observation{}, domain.NewError(domain.CodeFetchNoData,
				"no temperature reading for %s", dateISO)
		}
		obs := weather.Observation{
			DateISO:      dateISO,
			TemperatureC: *temp,
			HumidityPct:  valueAt(resp.Daily.RelativeHumidityMean, i),
		}
		if rain := valueAt(resp.Daily.PrecipitationSum, i); rain != nil {
			obs.RainfallMM = *rain
		}
		return obs, nil
	}
	return weather.Observation{}, domain.NewError(domain.CodeFetchNoData,
		"archive has no rows for %s", dateISO)
}

func valueAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// Open-Meteo archive response types. The daily block holds parallel arrays
// indexed by the time array; missing readings arrive as JSON null.

type archiveResponse struct {
	Daily dailyBlock `json:"daily"`
}

type dailyBlock struct {
	Time                 []string   `json:"time"`
	TemperatureMean      []*float64 `json:"temperature_2m_mean"`
	PrecipitationSum     []*float64 `json:"precipitation_sum"`
	RelativeHumidityMean []*float64 `json:"relative_humidity_2m_mean"`
}
