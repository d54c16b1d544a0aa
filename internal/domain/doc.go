// Package domain holds the record shapes and error taxonomy shared by the
// four pipeline stages.
//
// # Data Sources
//
// The pipeline joins two unrelated exports on calendar date:
//
//   - Orders: a delimited-text export of daily transaction counts, typically
//     from a storefront or delivery platform. Header spellings vary wildly
//     ("Total Orders", "order-count", "orders"); some exports carry one row
//     per order with only an order ID, from which a count of 1 per row is
//     inferred.
//   - Weather: daily observations (mean temperature, rainfall total, mean
//     humidity) from a weather archive export or the offline fetch tool.
//
// # Row Lifecycle
//
//	raw text → CanonicalRecord → NormalizedRecord → MergedRecord → EnrichedRecord
//
// Each shape is produced by exactly one stage and is immutable afterwards.
// A stage either fully succeeds (rows plus ordered warning strings) or fails
// with a single typed [Error]; no partial row set ever leaks past a failure.
//
// # Date Handling
//
// Dates are calendar days with no timezone semantics. A source value like
// "2024-09-10T23:59:00Z" is truncated to its written calendar date, never
// shifted across a UTC boundary. Slash-form dates where both tokens could be
// a month are rejected outright; the system refuses to guess locale
// convention.
//
// # Null Semantics
//
// Numeric fields are either finite float64 values or explicit nulls
// (nil pointers / absent map entries). NaN never appears in any record, and
// a failed coercion is an error, never a silent zero. The distinction
// matters downstream: a day with rainfall 0 is a known dry day, a day with
// rainfall null was not observed.
package domain
