package tabular

import "github.com/couchcryptid/order-weather-insights/internal/domain"

// FieldSpec declares one canonical numeric field and the header aliases that
// resolve to it. Aliases are matched against normalized header tokens.
type FieldSpec struct {
	Canonical string
	Aliases   []string
	Required  bool
}

// CountInference lets a schema fall back to counting rows when no count
// column exists: if Target is unresolved but Marker resolves, every row gets
// Target = 1. Used by the orders schema for one-row-per-order exports that
// carry only an order ID.
type CountInference struct {
	Target        string
	MarkerAliases []string
}

// Schema is the immutable parse configuration for one source kind. Schemas
// are plain values passed into Parse, so tests can construct synthetic ones.
type Schema struct {
	Name        string
	DateAliases []string
	Numeric     []FieldSpec
	Inference   *CountInference
}

// OrdersSchema returns the parse configuration for daily order exports.
func OrdersSchema() Schema {
	return Schema{
		Name:        "orders",
		DateAliases: []string{"date", "order_date", "order_placed_at", "day"},
		Numeric: []FieldSpec{
			{
				Canonical: domain.FieldTotalOrders,
				Aliases:   []string{"total_orders", "order_count", "orders", "total", "num_orders", "number_of_orders"},
			},
		},
		Inference: &CountInference{
			Target:        domain.FieldTotalOrders,
			MarkerAliases: []string{"order_id", "id"},
		},
	}
}

// WeatherSchema returns the parse configuration for daily weather exports.
func WeatherSchema() Schema {
	return Schema{
		Name:        "weather",
		DateAliases: []string{"date", "observation_date", "day"},
		Numeric: []FieldSpec{
			{
				Canonical: domain.FieldTemperatureC,
				Aliases:   []string{"temperature_c", "temperature", "temp", "avg_temp_c", "mean_temp"},
				Required:  true,
			},
			{
				Canonical: domain.FieldRainfallMM,
				Aliases:   []string{"rainfall_mm", "rainfall", "precipitation", "precip", "precipitation_mm"},
			},
			{
				Canonical: domain.FieldHumidityPct,
				Aliases:   []string{"humidity_pct", "humidity", "relative_humidity"},
			},
			{
				Canonical: domain.FieldRainDurationMinutes,
				Aliases:   []string{"rain_duration_minutes", "rain_duration", "rain_minutes", "precipitation_hours"},
			},
		},
	}
}

// SchemaByName resolves a named schema, failing with UNKNOWN_SCHEMA for
// anything other than the two built-in source kinds.
func SchemaByName(name string) (Schema, error) {
	switch name {
	case "orders":
		return OrdersSchema(), nil
	case "weather":
		return WeatherSchema(), nil
	default:
		return Schema{}, domain.NewError(domain.CodeUnknownSchema, "unknown schema %q", name).
			WithDetail("schema", name)
	}
}
