package domain

// Canonical field names resolved by the tabular parser. Downstream stages
// address values by these names only; raw header spellings never cross a
// stage boundary.
const (
	FieldDate                = "date"
	FieldTotalOrders         = "total_orders"
	FieldTemperatureC        = "temperature_c"
	FieldRainfallMM          = "rainfall_mm"
	FieldHumidityPct         = "humidity_pct"
	FieldRainDurationMinutes = "rain_duration_minutes"
)

// CanonicalRecord is one source row after header/alias resolution and numeric
// coercion. Date carries the raw, unparsed date string. Numeric fields are
// keyed by canonical name; a nil entry (or an absent key) is an explicit
// null. Values are always finite; the parser never stores NaN or coerces a
// bad cell to zero.
type CanonicalRecord struct {
	Date   string
	Fields map[string]*float64
}

// Field returns the named numeric value, or nil if it is null or absent.
func (r CanonicalRecord) Field(name string) *float64 {
	return r.Fields[name]
}

// NormalizedRecord is a CanonicalRecord whose date has been parsed into
// ISO form. DateRaw preserves the original string for diagnostics.
type NormalizedRecord struct {
	CanonicalRecord
	DateRaw string
	DateISO string
}

// DailyAggregate is the per-day order sum. One exists per distinct order
// date; it is never mutated after the merge stage creates it.
type DailyAggregate struct {
	DateISO     string
	TotalOrders float64
}

// DailyWeather is the per-day weather rollup: mean temperature and humidity
// over finite readings, summed rainfall. Days with zero finite temperature
// readings are never materialized, so "absent from the map" means unknown
// rather than zero.
type DailyWeather struct {
	DateISO      string
	TemperatureC float64
	RainfallMM   float64
	HumidityPct  *float64
}

// MergedRecord is one output day of the merge stage: an order aggregate
// joined with exact-date or imputed weather. Immutable once emitted; a new
// pipeline run produces a new collection.
type MergedRecord struct {
	DateISO        string   `json:"date_iso"`
	TotalOrders    float64  `json:"total_orders"`
	TemperatureC   float64  `json:"temperature_c"`
	RainfallMM     float64  `json:"rainfall_mm"`
	HumidityPct    *float64 `json:"humidity_pct"`
	ImputedWeather bool     `json:"imputed_weather"`
}

// Temperature bucket labels assigned by the metrics stage.
const (
	TempCategoryCold     = "cold"
	TempCategoryModerate = "moderate"
	TempCategoryHot      = "hot"
)

// EnrichedRecord is a MergedRecord plus derived per-day metrics. This is the
// terminal row shape consumed by presentation layers.
type EnrichedRecord struct {
	MergedRecord
	IsRainy      bool     `json:"is_rainy"`
	DayOfWeek    int      `json:"day_of_week"` // 0 = Sunday, per time.Weekday
	TempCategory *string  `json:"temp_category"`
	MovingAvg7   *float64 `json:"moving_avg_7"`
}
