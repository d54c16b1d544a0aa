// Package analytics derives per-day enrichments and summary statistics from
// merged daily rows. Everything here is a pure recomputation over the full
// input: no incremental state, so identical inputs always produce identical
// output.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
)

// DefaultRainThresholdMM is the rainfall above which a day counts as rainy.
// Strictly greater-than: a day exactly at the threshold is non-rainy.
const DefaultRainThresholdMM = 1.0

// movingAvgWindow is the trailing moving-average window in days.
const movingAvgWindow = 7

// minCorrelationPairs is the smallest sample for which a Pearson coefficient
// is reported at all.
const minCorrelationPairs = 3

// Options configures one analytics pass.
type Options struct {
	// RainThresholdMM overrides the rainy-day threshold; nil means default.
	RainThresholdMM *float64
}

// KPIs are the headline figures derived from the merged dataset. Pointer
// fields are null when the underlying bucket is empty or the statistic is
// undefined, never NaN and never a misleading zero.
type KPIs struct {
	TotalOrders     float64  `json:"total_orders"`
	AvgDailyOrders  float64  `json:"avg_daily_orders"`
	RainyDayAvg     *float64 `json:"rainy_day_avg"`
	NonRainyDayAvg  *float64 `json:"non_rainy_day_avg"`
	PercentIncrease *float64 `json:"percent_increase"`
	ImputedFraction float64  `json:"imputed_fraction"`

	MaxOrdersDay string `json:"max_orders_day"`
	MinOrdersDay string `json:"min_orders_day"`
	HottestDay   string `json:"hottest_day"`
	ColdestDay   string `json:"coldest_day"`

	BestWeekday           *int     `json:"best_weekday"`
	TempOrdersCorrelation *float64 `json:"temp_orders_correlation"`
}

// WeekdayStat is the day-of-week rollup for one weekday (0 = Sunday).
type WeekdayStat struct {
	Weekday   int      `json:"day_of_week"`
	Count     int      `json:"count"`
	AvgOrders *float64 `json:"avg_orders"`
}

// ChartPoint is a row projection shaped for chart consumers: just the series
// a dashboard plots, nothing else.
type ChartPoint struct {
	DateISO      string   `json:"date_iso"`
	TotalOrders  float64  `json:"total_orders"`
	TemperatureC float64  `json:"temperature_c"`
	RainfallMM   float64  `json:"rainfall_mm"`
	MovingAvg7   *float64 `json:"moving_avg_7"`
	IsRainy      bool     `json:"is_rainy"`
}

// Result is the terminal analytics payload.
type Result struct {
	Rows     []domain.EnrichedRecord `json:"rows"`
	KPIs     KPIs                    `json:"kpis"`
	Weekdays []WeekdayStat           `json:"weekdays"`
	Chart    []ChartPoint            `json:"chart"`
	Warnings []string                `json:"warnings,omitempty"`
}

// Compute enriches merged rows and derives KPIs, weekday rollups, and chart
// projections. Empty input is a terminal failure.
func Compute(merged []domain.MergedRecord, opts Options) (Result, error) {
	if len(merged) == 0 {
		return Result{}, domain.NewError(domain.CodeEmptyInput, "no merged rows to analyze")
	}

	threshold := DefaultRainThresholdMM
	if opts.RainThresholdMM != nil {
		threshold = *opts.RainThresholdMM
	}

	rows := make([]domain.MergedRecord, len(merged))
	copy(rows, merged)
	sort.Slice(rows, func(i, j int) bool { return rows[i].DateISO < rows[j].DateISO })

	p25, p75, havePercentiles := temperaturePercentiles(rows)

	enriched := make([]domain.EnrichedRecord, len(rows))
	for i, row := range rows {
		rec := domain.EnrichedRecord{
			MergedRecord: row,
			IsRainy:      row.RainfallMM > threshold,
			DayOfWeek:    dayOfWeek(row.DateISO),
		}
		if havePercentiles {
			rec.TempCategory = categorize(row.TemperatureC, p25, p75)
		}
		rec.MovingAvg7 = trailingAverage(rows, i)
		enriched[i] = rec
	}

	var warnings []string
	if len(rows) < movingAvgWindow {
		warnings = append(warnings,
			fmt.Sprintf("only %d merged rows; %d-day moving average is undefined", len(rows), movingAvgWindow))
	}

	kpis, corrWarning := deriveKPIs(enriched)
	if corrWarning != "" {
		warnings = append(warnings, corrWarning)
	}

	return Result{
		Rows:     enriched,
		KPIs:     kpis,
		Weekdays: weekdayRollup(enriched),
		Chart:    chartProjection(enriched),
		Warnings: warnings,
	}, nil
}

// temperaturePercentiles computes p25/p75 over finite temperature readings
// using linear interpolation between order statistics.
func temperaturePercentiles(rows []domain.MergedRecord) (p25, p75 float64, ok bool) {
	temps := make([]float64, 0, len(rows))
	for _, r := range rows {
		if isFinite(r.TemperatureC) {
			temps = append(temps, r.TemperatureC)
		}
	}
	if len(temps) == 0 {
		return 0, 0, false
	}
	sort.Float64s(temps)
	return percentile(temps, 0.25), percentile(temps, 0.75), true
}

// percentile interpolates at fractional rank (n-1)*p over a sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := float64(len(sorted)-1) * p
	lo := int(math.Floor(rank))
	frac := rank - float64(lo)
	if lo+1 >= len(sorted) {
		return sorted[lo]
	}
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func categorize(temp, p25, p75 float64) *string {
	if !isFinite(temp) {
		return nil
	}
	var cat string
	switch {
	case temp < p25:
		cat = domain.TempCategoryCold
	case temp > p75:
		cat = domain.TempCategoryHot
	default:
		cat = domain.TempCategoryModerate
	}
	return &cat
}

// trailingAverage returns the 7-day trailing mean of order counts, defined
// from the 7th row onward and nil before that.
func trailingAverage(rows []domain.MergedRecord, i int) *float64 {
	if i < movingAvgWindow-1 {
		return nil
	}
	sum := 0.0
	for j := i - movingAvgWindow + 1; j <= i; j++ {
		sum += rows[j].TotalOrders
	}
	avg := sum / movingAvgWindow
	return &avg
}

func dayOfWeek(iso string) int {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return 0
	}
	return int(t.Weekday())
}

// deriveKPIs computes the headline figures. Extreme-day identification is
// first-seen-wins over the date-sorted rows, which keeps reruns stable.
func deriveKPIs(rows []domain.EnrichedRecord) (KPIs, string) {
	k := KPIs{
		MaxOrdersDay: rows[0].DateISO,
		MinOrdersDay: rows[0].DateISO,
		HottestDay:   rows[0].DateISO,
		ColdestDay:   rows[0].DateISO,
	}

	var rainySum, drySum float64
	var rainyCount, dryCount, imputedCount int

	maxOrders, minOrders := rows[0].TotalOrders, rows[0].TotalOrders
	maxTemp, minTemp := rows[0].TemperatureC, rows[0].TemperatureC

	for _, r := range rows {
		k.TotalOrders += r.TotalOrders
		if r.IsRainy {
			rainySum += r.TotalOrders
			rainyCount++
		} else {
			drySum += r.TotalOrders
			dryCount++
		}
		if r.ImputedWeather {
			imputedCount++
		}

		// Strict comparisons keep the first-seen day on ties.
		if r.TotalOrders > maxOrders {
			maxOrders, k.MaxOrdersDay = r.TotalOrders, r.DateISO
		}
		if r.TotalOrders < minOrders {
			minOrders, k.MinOrdersDay = r.TotalOrders, r.DateISO
		}
		if r.TemperatureC > maxTemp {
			maxTemp, k.HottestDay = r.TemperatureC, r.DateISO
		}
		if r.TemperatureC < minTemp {
			minTemp, k.ColdestDay = r.TemperatureC, r.DateISO
		}
	}

	n := float64(len(rows))
	k.AvgDailyOrders = k.TotalOrders / n
	k.ImputedFraction = float64(imputedCount) / n

	if rainyCount > 0 {
		avg := rainySum / float64(rainyCount)
		k.RainyDayAvg = &avg
	}
	if dryCount > 0 {
		avg := drySum / float64(dryCount)
		k.NonRainyDayAvg = &avg
	}
	// Percent difference is undefined when the non-rainy baseline is zero or
	// missing: reporting 0% there would be a lie, so it stays null.
	if k.RainyDayAvg != nil && k.NonRainyDayAvg != nil && *k.NonRainyDayAvg != 0 {
		pct := (*k.RainyDayAvg - *k.NonRainyDayAvg) / *k.NonRainyDayAvg
		k.PercentIncrease = &pct
	}

	k.BestWeekday = bestWeekday(rows)

	corr, warning := pearson(rows)
	k.TempOrdersCorrelation = corr
	return k, warning
}

func bestWeekday(rows []domain.EnrichedRecord) *int {
	stats := weekdayRollup(rows)

	var best *int
	bestAvg := math.Inf(-1)
	for _, s := range stats {
		if s.AvgOrders != nil && *s.AvgOrders > bestAvg {
			day := s.Weekday
			best = &day
			bestAvg = *s.AvgOrders
		}
	}
	return best
}

// weekdayRollup always emits all seven weekdays; empty ones carry a nil
// average rather than a fake zero.
func weekdayRollup(rows []domain.EnrichedRecord) []WeekdayStat {
	sums := make([]float64, 7)
	counts := make([]int, 7)
	for _, r := range rows {
		sums[r.DayOfWeek] += r.TotalOrders
		counts[r.DayOfWeek]++
	}

	out := make([]WeekdayStat, 7)
	for day := 0; day < 7; day++ {
		out[day] = WeekdayStat{Weekday: day, Count: counts[day]}
		if counts[day] > 0 {
			avg := sums[day] / float64(counts[day])
			out[day].AvgOrders = &avg
		}
	}
	return out
}

// pearson correlates temperature against orders over pairs where both values
// are finite. Returns nil with a warning when fewer than three such pairs
// exist or either variable has zero variance.
func pearson(rows []domain.EnrichedRecord) (*float64, string) {
	var xs, ys []float64
	for _, r := range rows {
		if isFinite(r.TemperatureC) && isFinite(r.TotalOrders) {
			xs = append(xs, r.TemperatureC)
			ys = append(ys, r.TotalOrders)
		}
	}

	if len(xs) < minCorrelationPairs {
		return nil, fmt.Sprintf("correlation unavailable: only %d finite temperature/order pairs", len(xs))
	}

	n := float64(len(xs))
	var meanX, meanY float64
	for i := range xs {
		meanX += xs[i]
		meanY += ys[i]
	}
	meanX /= n
	meanY /= n

	var cov, varX, varY float64
	for i := range xs {
		dx := xs[i] - meanX
		dy := ys[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}

	if varX == 0 || varY == 0 {
		return nil, "correlation unavailable: zero variance in temperature or orders"
	}

	r := cov / math.Sqrt(varX*varY)
	return &r, ""
}

func chartProjection(rows []domain.EnrichedRecord) []ChartPoint {
	out := make([]ChartPoint, len(rows))
	for i, r := range rows {
		out[i] = ChartPoint{
			DateISO:      r.DateISO,
			TotalOrders:  r.TotalOrders,
			TemperatureC: r.TemperatureC,
			RainfallMM:   r.RainfallMM,
			MovingAvg7:   r.MovingAvg7,
			IsRainy:      r.IsRainy,
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
