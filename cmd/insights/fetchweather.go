package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/order-weather-insights/internal/adapter/openmeteo"
	"github.com/couchcryptid/order-weather-insights/internal/observability"
	"github.com/couchcryptid/order-weather-insights/internal/weather"
)

var (
	fetchLatitude    float64
	fetchLongitude   float64
	fetchTimezone    string
	fetchStart       string
	fetchEnd         string
	fetchOutPath     string
	fetchBaseURL     string
	fetchTimeout     time.Duration
	fetchConcurrency int
	fetchBatchSize   int
)

var fetchWeatherCmd = &cobra.Command{
	Use:   "fetch-weather",
	Short: "Fetch archive weather for a date range and write the weather CSV",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		metrics := observability.NewMetrics()

		limiter := rate.NewLimiter(rate.Limit(8), 4)
		client := openmeteo.NewClient(fetchBaseURL, fetchTimeout, limiter, logger)
		fetcher := weather.NewFetcher(client, logger, metrics, weather.FetcherOptions{
			BatchSize:      fetchBatchSize,
			Concurrency:    fetchConcurrency,
			RequestTimeout: fetchTimeout,
		})

		loc := weather.Location{Latitude: fetchLatitude, Longitude: fetchLongitude, Timezone: fetchTimezone}
		rows, failures, err := fetcher.FetchRange(cmd.Context(), loc, fetchStart, fetchEnd)
		if err != nil {
			return err
		}
		for _, sf := range failures {
			fmt.Fprintf(os.Stderr, "warning: %s: %s (%s)\n", sf.DateISO, sf.Message, sf.Code)
		}
		if len(rows) == 0 {
			return fmt.Errorf("no weather rows fetched for %s..%s", fetchStart, fetchEnd)
		}

		out := os.Stdout
		if fetchOutPath != "" {
			f, err := os.Create(fetchOutPath)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		w := csv.NewWriter(out)
		if err := w.Write([]string{"date", "temperature", "rainfall", "humidity"}); err != nil {
			return err
		}
		for _, obs := range rows {
			humidity := ""
			if obs.HumidityPct != nil {
				humidity = formatDecimal(*obs.HumidityPct)
			}
			record := []string{
				obs.DateISO,
				formatDecimal(obs.TemperatureC),
				formatDecimal(obs.RainfallMM),
				humidity,
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	},
}

// formatDecimal renders a value as a plain decimal number, never scientific
// notation, so the CSV round-trips through the parser unchanged.
func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func init() {
	fetchWeatherCmd.Flags().Float64Var(&fetchLatitude, "latitude", 0, "location latitude (required)")
	fetchWeatherCmd.Flags().Float64Var(&fetchLongitude, "longitude", 0, "location longitude (required)")
	fetchWeatherCmd.Flags().StringVar(&fetchTimezone, "timezone", "", "IANA timezone for daily rollups")
	fetchWeatherCmd.Flags().StringVar(&fetchStart, "start", "", "range start, YYYY-MM-DD (required)")
	fetchWeatherCmd.Flags().StringVar(&fetchEnd, "end", "", "range end, YYYY-MM-DD (required)")
	fetchWeatherCmd.Flags().StringVar(&fetchOutPath, "out", "", "write the CSV here instead of stdout")
	fetchWeatherCmd.Flags().StringVar(&fetchBaseURL, "base-url", openmeteo.DefaultBaseURL, "archive API base URL")
	fetchWeatherCmd.Flags().DurationVar(&fetchTimeout, "timeout", 5*time.Second, "per-request timeout")
	fetchWeatherCmd.Flags().IntVar(&fetchConcurrency, "concurrency", weather.DefaultConcurrency, "parallel requests")
	fetchWeatherCmd.Flags().IntVar(&fetchBatchSize, "batch-size", weather.DefaultBatchSize, "dates per batch")
	_ = fetchWeatherCmd.MarkFlagRequired("latitude")
	_ = fetchWeatherCmd.MarkFlagRequired("longitude")
	_ = fetchWeatherCmd.MarkFlagRequired("start")
	_ = fetchWeatherCmd.MarkFlagRequired("end")

	rootCmd.AddCommand(fetchWeatherCmd)
}
