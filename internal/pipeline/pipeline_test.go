package pipeline_test

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
	"github.com/couchcryptid/order-weather-insights/internal/observability"
	"github.com/couchcryptid/order-weather-insights/internal/pipeline"
)

// fixture builds a matched pair of orders/weather CSVs covering ten days.
func fixture() (string, string) {
	var orders, weather strings.Builder
	orders.WriteString("date,total_orders\n")
	weather.WriteString("date,temperature_c,rainfall_mm,humidity_pct\n")
	for day := 1; day <= 10; day++ {
		iso := fmt.Sprintf("2024-01-%02d", day)
		total := 100
		if day == 5 {
			total = 0
		}
		fmt.Fprintf(&orders, "%s,%d\n", iso, total)
		if day != 5 && day != 6 {
			fmt.Fprintf(&weather, "%s,%d.0,%d,60\n", iso, 10+day, day%3)
		}
	}
	return orders.String(), weather.String()
}

func newTestPipeline(opts pipeline.Options) *pipeline.Pipeline {
	return pipeline.New(slog.Default(), observability.NewMetricsForTesting(), opts)
}

func TestRun_EndToEnd(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	ordersCSV, weatherCSV := fixture()
	p := newTestPipeline(pipeline.Options{MaxGapDays: 3})

	report, err := p.Run(ordersCSV, weatherCSV)
	require.NoError(t, err)

	require.Len(t, report.Rows, 10)
	assert.Equal(t, time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC), report.GeneratedAt)

	imputed := 0
	for _, r := range report.Rows {
		if r.ImputedWeather {
			imputed++
		}
	}
	assert.Equal(t, 2, imputed)
	assert.InDelta(t, 0.2, report.KPIs.ImputedFraction, 1e-9)

	// The 5th takes the 4th's weather, the 6th takes the closer 7th's.
	assert.Equal(t, 14.0, report.Rows[4].TemperatureC)
	assert.Equal(t, 17.0, report.Rows[5].TemperatureC)

	assert.Len(t, report.Weekdays, 7)
	assert.Len(t, report.Chart, 10)
}

func TestRun_Idempotence(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	ordersCSV, weatherCSV := fixture()
	p := newTestPipeline(pipeline.Options{})

	first, err := p.Run(ordersCSV, weatherCSV)
	require.NoError(t, err)
	second, err := p.Run(ordersCSV, weatherCSV)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(string(firstJSON), string(secondJSON)))
}

func TestRun_StageFailuresPropagate(t *testing.T) {
	ordersCSV, weatherCSV := fixture()

	t.Run("parser failure", func(t *testing.T) {
		p := newTestPipeline(pipeline.Options{})
		_, err := p.Run("", weatherCSV)
		require.Error(t, err)
		assert.Equal(t, domain.CodeEmptyInput, domain.CodeOf(err))
	})

	t.Run("date failure", func(t *testing.T) {
		ambiguous := strings.Replace(ordersCSV, "2024-01-01", "01/02/2024", 1)
		// A single slash date also mixes families, but the per-value
		// ambiguity check fires first.
		p := newTestPipeline(pipeline.Options{})
		_, err := p.Run(ambiguous, weatherCSV)
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateAmbiguous, domain.CodeOf(err))
	})

	t.Run("merge failure", func(t *testing.T) {
		var farWeather strings.Builder
		farWeather.WriteString("date,temperature_c,rainfall_mm\n")
		for day := 1; day <= 7; day++ {
			fmt.Fprintf(&farWeather, "2023-06-%02d,20,0\n", day)
		}
		p := newTestPipeline(pipeline.Options{})
		_, err := p.Run(ordersCSV, farWeather.String())
		require.Error(t, err)
		assert.Equal(t, domain.CodeMergeNoRows, domain.CodeOf(err))
	})
}

func TestRun_WarningsCarrySource(t *testing.T) {
	ordersCSV, weatherCSV := fixture()

	// Weather is missing two mid-range days, so its date diagnostics warn.
	p := newTestPipeline(pipeline.Options{})
	report, err := p.Run(ordersCSV, weatherCSV)
	require.NoError(t, err)

	require.NotEmpty(t, report.Warnings)
	found := false
	for _, w := range report.Warnings {
		if strings.HasPrefix(w, "weather dates:") && strings.Contains(w, "calendar days missing") {
			found = true
		}
	}
	assert.True(t, found, "expected a weather date-gap warning, got %v", report.Warnings)
}
