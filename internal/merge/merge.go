// Package merge joins daily order aggregates with daily weather rollups.
//
// Orders anchor the join: the output has exactly one row per order date,
// and dates with weather but no orders never surface. Weather missing for
// an order date is imputed from the nearest day within a bounded gap, with
// equal-distance ties always resolved to the earlier day so repeated runs
// are byte-identical.
package merge

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
)

// DefaultMaxGapDays bounds the nearest-day imputation search.
const DefaultMaxGapDays = 3

// Options configures one merge pass.
type Options struct {
	// MaxGapDays overrides the imputation search radius; 0 means default.
	MaxGapDays int
}

// Result carries merged rows sorted ascending by date plus drop warnings.
type Result struct {
	Rows     []domain.MergedRecord
	Warnings []string
}

// Merge aggregates both datasets to one record per day, then joins weather
// onto the order dates. Order dates with no weather inside the gap bound
// are dropped with a warning; an empty result is a terminal failure because
// it signals a fundamentally unusable input pair.
func Merge(orders, weather []domain.NormalizedRecord, opts Options) (Result, error) {
	maxGap := opts.MaxGapDays
	if maxGap <= 0 {
		maxGap = DefaultMaxGapDays
	}

	orderDays := aggregateOrders(orders)
	weatherDays := aggregateWeather(weather)

	dateISOs := make([]string, 0, len(orderDays))
	for iso := range orderDays {
		dateISOs = append(dateISOs, iso)
	}
	sort.Strings(dateISOs)

	rows := make([]domain.MergedRecord, 0, len(dateISOs))
	var warnings []string

	for _, iso := range dateISOs {
		day, imputed, ok := nearestWeather(weatherDays, iso, maxGap)
		if !ok {
			warnings = append(warnings,
				fmt.Sprintf("no weather within %d days of %s; dropping the date", maxGap, iso))
			continue
		}
		rows = append(rows, domain.MergedRecord{
			DateISO:        iso,
			TotalOrders:    orderDays[iso].TotalOrders,
			TemperatureC:   day.TemperatureC,
			RainfallMM:     day.RainfallMM,
			HumidityPct:    day.HumidityPct,
			ImputedWeather: imputed,
		})
	}

	if len(rows) == 0 {
		return Result{}, domain.NewError(domain.CodeMergeNoRows,
			"no order dates survived the merge: no weather within %d days of any of the %d order dates",
			maxGap, len(dateISOs)).
			WithDetail("order_dates", len(dateISOs)).
			WithDetail("max_gap_days", maxGap)
	}

	return Result{Rows: rows, Warnings: warnings}, nil
}

// aggregateOrders sums order counts per date. Null counts are skipped, not
// zero-filled, but the date itself stays in the anchor set.
func aggregateOrders(rows []domain.NormalizedRecord) map[string]domain.DailyAggregate {
	out := make(map[string]domain.DailyAggregate)
	for _, row := range rows {
		agg := out[row.DateISO]
		agg.DateISO = row.DateISO
		if v := row.Field(domain.FieldTotalOrders); v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) {
			agg.TotalOrders += *v
		}
		out[row.DateISO] = agg
	}
	return out
}

// aggregateWeather rolls same-day readings into one record: mean temperature
// and humidity over finite readings, summed rainfall. A day with zero finite
// temperature readings is not materialized at all; it is wholly unknown,
// not zero.
func aggregateWeather(rows []domain.NormalizedRecord) map[string]domain.DailyWeather {
	type acc struct {
		tempSum   float64
		tempCount int
		rainSum   float64
		humSum    float64
		humCount  int
	}

	accs := make(map[string]*acc)
	for _, row := range rows {
		a := accs[row.DateISO]
		if a == nil {
			a = &acc{}
			accs[row.DateISO] = a
		}
		if v := row.Field(domain.FieldTemperatureC); v != nil {
			a.tempSum += *v
			a.tempCount++
		}
		if v := row.Field(domain.FieldRainfallMM); v != nil {
			a.rainSum += *v
		}
		if v := row.Field(domain.FieldHumidityPct); v != nil {
			a.humSum += *v
			a.humCount++
		}
	}

	out := make(map[string]domain.DailyWeather, len(accs))
	for iso, a := range accs {
		if a.tempCount == 0 {
			continue
		}
		day := domain.DailyWeather{
			DateISO:      iso,
			TemperatureC: a.tempSum / float64(a.tempCount),
			RainfallMM:   a.rainSum,
		}
		if a.humCount > 0 {
			hum := a.humSum / float64(a.humCount)
			day.HumidityPct = &hum
		}
		out[iso] = day
	}
	return out
}

// nearestWeather finds weather for a date: exact match first, then outward
// day by day checking date-1, date+1, date-2, date+2, … so equal-distance
// candidates deterministically favor the previous day.
func nearestWeather(days map[string]domain.DailyWeather, iso string, maxGap int) (domain.DailyWeather, bool, bool) {
	if day, ok := days[iso]; ok {
		return day, false, true
	}
	for gap := 1; gap <= maxGap; gap++ {
		if day, ok := days[shiftISO(iso, -gap)]; ok {
			return day, true, true
		}
		if day, ok := days[shiftISO(iso, gap)]; ok {
			return day, true, true
		}
	}
	return domain.DailyWeather{}, false, false
}

func shiftISO(iso string, days int) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.AddDate(0, 0, days).Format("2006-01-02")
}
