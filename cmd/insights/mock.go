package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

var (
	mockOutDir   string
	mockStart    string
	mockDays     int
	mockSeed     int64
	mockGapEvery int
)

var mockCmd = &cobra.Command{
	Use:   "mock",
	Short: "Generate deterministic orders and weather fixture CSVs",
	Long: `mock writes a matched pair of fixture files, orders.csv and
weather.csv, covering a contiguous date range. The same seed always
produces the same bytes. Every Nth weather day is omitted so the fixtures
exercise weather imputation downstream.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		start, err := time.Parse("2006-01-02", mockStart)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		if mockDays < 7 {
			return fmt.Errorf("--days must be at least 7, got %d", mockDays)
		}
		if err := os.MkdirAll(mockOutDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}

		rng := rand.New(rand.NewSource(mockSeed))

		ordersPath := filepath.Join(mockOutDir, "orders.csv")
		weatherPath := filepath.Join(mockOutDir, "weather.csv")
		if err := writeMockOrders(ordersPath, start, mockDays, rng); err != nil {
			return err
		}
		if err := writeMockWeather(weatherPath, start, mockDays, mockGapEvery, rng); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "wrote %s and %s (%d days, seed %d)\n", ordersPath, weatherPath, mockDays, mockSeed)
		return nil
	},
}

// writeMockOrders emits daily totals with a weekly rhythm: weekends run
// hotter than midweek, with mild noise on top.
func writeMockOrders(path string, start time.Time, days int, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create orders fixture: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "total_orders"}); err != nil {
		return err
	}
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		base := 80
		switch day.Weekday() {
		case time.Friday:
			base = 110
		case time.Saturday, time.Sunday:
			base = 130
		}
		total := base + rng.Intn(21) - 10
		if err := w.Write([]string{day.Format("2006-01-02"), fmt.Sprintf("%d", total)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// writeMockWeather emits a slow seasonal temperature curve with sporadic
// rain. Every gapEvery-th day is skipped entirely.
func writeMockWeather(path string, start time.Time, days, gapEvery int, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create weather fixture: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "temperature", "rainfall", "humidity"}); err != nil {
		return err
	}
	for i := 0; i < days; i++ {
		if gapEvery > 0 && i > 0 && i%gapEvery == 0 {
			continue
		}
		day := start.AddDate(0, 0, i)
		temp := 15 + 8*math.Sin(float64(i)/9) + rng.Float64()*2
		rain := 0.0
		if rng.Float64() < 0.3 {
			rain = math.Round(rng.Float64()*80) / 10
		}
		humidity := 50 + rng.Intn(35)
		record := []string{
			day.Format("2006-01-02"),
			fmt.Sprintf("%.1f", temp),
			fmt.Sprintf("%.1f", rain),
			fmt.Sprintf("%d", humidity),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func init() {
	mockCmd.Flags().StringVar(&mockOutDir, "out-dir", "testdata", "directory for the fixture files")
	mockCmd.Flags().StringVar(&mockStart, "start", "2024-01-01", "first day of the range, YYYY-MM-DD")
	mockCmd.Flags().IntVar(&mockDays, "days", 30, "number of days to generate")
	mockCmd.Flags().Int64Var(&mockSeed, "seed", 1, "PRNG seed for reproducible fixtures")
	mockCmd.Flags().IntVar(&mockGapEvery, "gap-every", 11, "omit every Nth weather day (0 disables gaps)")

	rootCmd.AddCommand(mockCmd)
}
