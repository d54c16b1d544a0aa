// Package httpapi exposes the weather proxy HTTP surface: the daily
// observation endpoint plus health, readiness, and metrics routes.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
	"github.com/couchcryptid/order-weather-insights/internal/weather"
)

// WeatherFetcher serves a date range of observations for a location.
type WeatherFetcher interface {
	FetchRange(ctx context.Context, loc weather.Location, startISO, endISO string) ([]weather.Observation, []weather.SoftFailure, error)
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReadinessFunc adapts a plain function to ReadinessChecker.
type ReadinessFunc func(ctx context.Context) error

func (f ReadinessFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// Server exposes the weather proxy routes.
type Server struct {
	httpServer *http.Server
	fetcher    WeatherFetcher
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /v1/weather, /healthz, /readyz,
// and /metrics routes.
func NewServer(addr string, fetcher WeatherFetcher, ready ReadinessChecker, logger *slog.Logger) *Server {
	s := &Server{
		fetcher: fetcher,
		logger:  logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/weather", s.handleWeather)
	})
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", handleReady(ready))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// weatherResponse is the /v1/weather payload: the echoed location, one row
// per served day, and the dates that could not be served.
type weatherResponse struct {
	Location weather.Location      `json:"location"`
	Rows     []weather.Observation `json:"rows"`
	Failures []weather.SoftFailure `json:"failures"`
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r)
	if err != nil {
		renderError(w, r, http.StatusBadRequest, err)
		return
	}
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")
	if start == "" || end == "" {
		renderError(w, r, http.StatusBadRequest,
			domain.NewError(domain.CodeDateInvalid, "start and end query parameters are required"))
		return
	}

	rows, failures, err := s.fetcher.FetchRange(r.Context(), loc, start, end)
	if err != nil {
		status := http.StatusInternalServerError
		if domain.CodeOf(err) == domain.CodeDateInvalid {
			status = http.StatusBadRequest
		}
		renderError(w, r, status, err)
		return
	}

	if rows == nil {
		rows = []weather.Observation{}
	}
	if failures == nil {
		failures = []weather.SoftFailure{}
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, weatherResponse{Location: loc, Rows: rows, Failures: failures})
}

func parseLocation(r *http.Request) (weather.Location, error) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("latitude"), 64)
	if err != nil || lat < -90 || lat > 90 {
		return weather.Location{}, domain.NewError(domain.CodeInvalidNumber,
			"invalid latitude %q", q.Get("latitude"))
	}
	lon, err := strconv.ParseFloat(q.Get("longitude"), 64)
	if err != nil || lon < -180 || lon > 180 {
		return weather.Location{}, domain.NewError(domain.CodeInvalidNumber,
			"invalid longitude %q", q.Get("longitude"))
	}
	return weather.Location{Latitude: lat, Longitude: lon, Timezone: q.Get("timezone")}, nil
}

func renderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	render.Status(r, status)
	var typed *domain.Error
	if errors.As(err, &typed) {
		render.JSON(w, r, typed)
		return
	}
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			render.Status(r, http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "not ready", "error": err.Error()})
			return
		}
		render.Status(r, http.StatusOK)
		render.JSON(w, r, map[string]string{"status": "ready"})
	}
}
