package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/order-weather-insights/internal/adapter/httpapi"
	"github.com/couchcryptid/order-weather-insights/internal/domain"
	"github.com/couchcryptid/order-weather-insights/internal/weather"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockFetcher struct {
	rows     []weather.Observation
	failures []weather.SoftFailure
	err      error

	gotLoc   weather.Location
	gotStart string
	gotEnd   string
}

func (m *mockFetcher) FetchRange(_ context.Context, loc weather.Location, startISO, endISO string) ([]weather.Observation, []weather.SoftFailure, error) {
	m.gotLoc = loc
	m.gotStart = startISO
	m.gotEnd = endISO
	return m.rows, m.failures, m.err
}

func newTestServer(fetcher *mockFetcher, readyErr error) *httpapi.Server {
	if fetcher == nil {
		fetcher = &mockFetcher{}
	}
	return httpapi.NewServer(":0", fetcher, &mockReadiness{err: readyErr}, slog.Default())
}

func TestWeatherReturnsRowsAndFailures(t *testing.T) {
	humidity := 65.0
	fetcher := &mockFetcher{
		rows: []weather.Observation{
			{DateISO: "2024-01-01", TemperatureC: 12.5, RainfallMM: 0.4, HumidityPct: &humidity},
			{DateISO: "2024-01-02", TemperatureC: 13.1},
		},
		failures: []weather.SoftFailure{
			{DateISO: "2024-01-03", Code: domain.CodeFetchNoData, Message: "archive has no rows for 2024-01-03"},
		},
	}
	srv := newTestServer(fetcher, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/weather?latitude=30.2672&longitude=-97.7431&timezone=America/Chicago&start=2024-01-01&end=2024-01-03", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30.2672, fetcher.gotLoc.Latitude)
	assert.Equal(t, "America/Chicago", fetcher.gotLoc.Timezone)
	assert.Equal(t, "2024-01-01", fetcher.gotStart)
	assert.Equal(t, "2024-01-03", fetcher.gotEnd)

	var body struct {
		Rows     []weather.Observation `json:"rows"`
		Failures []weather.SoftFailure `json:"failures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Rows, 2)
	require.Len(t, body.Failures, 1)
	assert.Equal(t, domain.CodeFetchNoData, body.Failures[0].Code)
}

func TestWeatherEmptyResultStaysArrays(t *testing.T) {
	srv := newTestServer(&mockFetcher{}, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/weather?latitude=1&longitude=1&start=2024-01-01&end=2024-01-01", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"rows":[]`)
	assert.Contains(t, rec.Body.String(), `"failures":[]`)
}

func TestWeatherRejectsBadCoordinates(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"missing latitude", "longitude=1&start=2024-01-01&end=2024-01-02"},
		{"latitude out of range", "latitude=99&longitude=1&start=2024-01-01&end=2024-01-02"},
		{"longitude not a number", "latitude=1&longitude=east&start=2024-01-01&end=2024-01-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(nil, nil)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/v1/weather?"+tt.query, nil)
			srv.ServeHTTP(rec, req)

			require.Equal(t, http.StatusBadRequest, rec.Code)

			var body domain.Error
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, domain.CodeInvalidNumber, body.Code)
		})
	}
}

func TestWeatherRequiresDateRange(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/weather?latitude=1&longitude=1", nil)
	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body domain.Error
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, domain.CodeDateInvalid, body.Code)
}

func TestWeatherMapsInvalidRangeTo400(t *testing.T) {
	fetcher := &mockFetcher{err: domain.NewError(domain.CodeDateInvalid, "range end before start")}
	srv := newTestServer(fetcher, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/weather?latitude=1&longitude=1&start=2024-01-05&end=2024-01-01", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWeatherMapsUnknownErrorTo500(t *testing.T) {
	fetcher := &mockFetcher{err: fmt.Errorf("boom")}
	srv := newTestServer(fetcher, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet,
		"/v1/weather?latitude=1&longitude=1&start=2024-01-01&end=2024-01-02", nil)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "boom")
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(nil, fmt.Errorf("not ready yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(nil, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
