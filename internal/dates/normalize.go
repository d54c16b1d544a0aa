// Package dates turns raw date strings into canonical YYYY-MM-DD values.
//
// Each value is matched against a fixed priority of format families: strict
// ISO, ISO timestamp (truncated to its written calendar date), English
// month-name forms, and two-token slash forms. Slash dates where both tokens
// could be a month are rejected rather than guessed: a 03/04 could be March
// 4th or April 3rd depending on locale, and silently picking one corrupts
// every downstream correlation.
package dates

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
)

// Family is one mutually exclusive date-string shape. Plain ISO and ISO
// timestamps are deliberately the same family: a file mixing them is still
// internally consistent.
type Family string

const (
	FamilyISO        Family = "iso"
	FamilyMonthName  Family = "month_name"
	FamilyDayFirst   Family = "day_first_slash"
	FamilyMonthFirst Family = "month_first_slash"
)

// MissingDatePolicy controls what happens to rows with empty date cells.
type MissingDatePolicy string

const (
	// MissingDateError fails the whole batch on the first missing date.
	MissingDateError MissingDatePolicy = "error"
	// MissingDateDrop silently removes such rows, with one aggregate warning.
	MissingDateDrop MissingDatePolicy = "drop"
)

// Options configures one normalization pass.
type Options struct {
	Policy MissingDatePolicy
}

// Result carries the normalized rows and post-parse diagnostics.
type Result struct {
	Rows     []domain.NormalizedRecord
	Warnings []string
}

var (
	isoRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)

	// monthNameRe tolerates a leading fragment before the first comma (a
	// time of day in order exports, e.g. "11:38 PM, September 10 2024") and
	// an optional comma before the year.
	monthNameRe = regexp.MustCompile(`^(?:[^,]*,\s*)?([A-Za-z]+)\s+(\d{1,2}),?\s+(\d{4})$`)

	slashRe = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

var monthsByName = map[string]int{
	"jan": 1, "january": 1,
	"feb": 2, "february": 2,
	"mar": 3, "march": 3,
	"apr": 4, "april": 4,
	"may": 5,
	"jun": 6, "june": 6,
	"jul": 7, "july": 7,
	"aug": 8, "august": 8,
	"sep": 9, "sept": 9, "september": 9,
	"oct": 10, "october": 10,
	"nov": 11, "november": 11,
	"dec": 12, "december": 12,
}

// Normalize parses every row's date into ISO form. It fails fast on the
// first bad value, then enforces file-wide format consistency, then emits
// best-effort diagnostics (short ranges, calendar gaps) as warnings.
func Normalize(rows []domain.CanonicalRecord, opts Options) (Result, error) {
	policy := opts.Policy
	if policy == "" {
		policy = MissingDateError
	}

	out := make([]domain.NormalizedRecord, 0, len(rows))
	families := make(map[Family]bool)
	dropped := 0

	for i, row := range rows {
		raw := strings.TrimSpace(row.Date)
		if raw == "" {
			if policy == MissingDateDrop {
				dropped++
				continue
			}
			return Result{}, domain.NewError(domain.CodeDateInvalid, "row %d has no date value", i+1).
				WithDetail("row", i+1)
		}

		iso, family, err := parseValue(raw)
		if err != nil {
			return Result{}, err.WithDetail("row", i+1)
		}
		families[family] = true

		out = append(out, domain.NormalizedRecord{
			CanonicalRecord: row,
			DateRaw:         raw,
			DateISO:         iso,
		})
	}

	if len(families) > 1 {
		names := make([]string, 0, len(families))
		for f := range families {
			names = append(names, string(f))
		}
		sort.Strings(names)
		return Result{}, domain.NewError(domain.CodeDateMixedFormats,
			"dates mix %d formats in one file: %s", len(names), strings.Join(names, ", ")).
			WithDetail("families", names)
	}

	var warnings []string
	if dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("dropped %d rows with missing date values", dropped))
	}
	warnings = append(warnings, rangeDiagnostics(out)...)

	return Result{Rows: out, Warnings: warnings}, nil
}

// ParseSingle normalizes one standalone date value. Converter tooling uses
// it for per-row timestamps like "11:38 PM, September 10 2024" that never
// pass through the tabular flow.
func ParseSingle(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.NewError(domain.CodeDateInvalid, "empty date value")
	}
	iso, _, err := parseValue(trimmed)
	if err != nil {
		return "", err
	}
	return iso, nil
}

// parseValue tries each format family in priority order. It returns the ISO
// date, the family that matched, or a typed failure.
func parseValue(raw string) (string, Family, *domain.Error) {
	if m := isoRe.FindStringSubmatch(raw); m != nil {
		return isoFromTokens(raw, m[1], m[2], m[3])
	}

	// ISO timestamp: truncate to the written calendar date. Local-date
	// semantics, never shifted across a UTC boundary.
	if len(raw) > 10 && raw[10] == 'T' {
		if m := isoRe.FindStringSubmatch(raw[:10]); m != nil {
			return isoFromTokens(raw, m[1], m[2], m[3])
		}
	}

	if m := monthNameRe.FindStringSubmatch(raw); m != nil {
		month, ok := monthsByName[strings.ToLower(m[1])]
		if !ok {
			return "", "", domain.NewError(domain.CodeDateInvalid, "unknown month name %q in %q", m[1], raw).
				WithDetail("value", raw)
		}
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		iso, ok := calendarISO(year, month, day)
		if !ok {
			return "", "", invalidCalendar(raw)
		}
		return iso, FamilyMonthName, nil
	}

	if m := slashRe.FindStringSubmatch(raw); m != nil {
		return parseSlash(raw, m)
	}

	return "", "", domain.NewError(domain.CodeDateInvalid, "unrecognized date format %q", raw).
		WithDetail("value", raw)
}

// parseSlash disambiguates two-token slash dates. A token > 12 can only be
// the day; if both tokens could be a month the value is ambiguous and the
// parse refuses to guess locale convention.
func parseSlash(raw string, m []string) (string, Family, *domain.Error) {
	first, _ := strconv.Atoi(m[1])
	second, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	inDayRange := func(n int) bool { return n >= 1 && n <= 31 }
	if !inDayRange(first) && !inDayRange(second) {
		return "", "", invalidCalendar(raw)
	}

	switch {
	case first <= 12 && second <= 12:
		return "", "", domain.NewError(domain.CodeDateAmbiguous,
			"date %q is ambiguous: both %d and %d could be the month", raw, first, second).
			WithDetail("value", raw)
	case first > 12 && second > 12:
		return "", "", invalidCalendar(raw)
	case first > 12:
		iso, ok := calendarISO(year, second, first)
		if !ok {
			return "", "", invalidCalendar(raw)
		}
		return iso, FamilyDayFirst, nil
	default:
		iso, ok := calendarISO(year, first, second)
		if !ok {
			return "", "", invalidCalendar(raw)
		}
		return iso, FamilyMonthFirst, nil
	}
}

func isoFromTokens(raw, y, mo, d string) (string, Family, *domain.Error) {
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(mo)
	day, _ := strconv.Atoi(d)
	iso, ok := calendarISO(year, month, day)
	if !ok {
		return "", "", invalidCalendar(raw)
	}
	return iso, FamilyISO, nil
}

// calendarISO validates against the real calendar: time.Date normalizes
// overflow (Feb 30 -> Mar 1), so a round-trip mismatch means the components
// were not a real date.
func calendarISO(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

func invalidCalendar(raw string) *domain.Error {
	return domain.NewError(domain.CodeDateInvalid, "%q is not a real calendar date", raw).
		WithDetail("value", raw)
}

// minDistinctDates below which a short-range warning is emitted.
const minDistinctDates = 7

// gapPreviewLimit caps how many missing days a gap warning names.
const gapPreviewLimit = 5

// rangeDiagnostics reports short date ranges and missing calendar days
// between the min and max date present. Best-effort signals, never fatal.
func rangeDiagnostics(rows []domain.NormalizedRecord) []string {
	if len(rows) == 0 {
		return nil
	}

	distinct := make(map[string]bool, len(rows))
	minISO, maxISO := rows[0].DateISO, rows[0].DateISO
	for _, r := range rows {
		distinct[r.DateISO] = true
		if r.DateISO < minISO {
			minISO = r.DateISO
		}
		if r.DateISO > maxISO {
			maxISO = r.DateISO
		}
	}

	var warnings []string
	if len(distinct) < minDistinctDates {
		warnings = append(warnings,
			fmt.Sprintf("only %d distinct dates present; derived statistics may be unreliable", len(distinct)))
	}

	start, _ := time.Parse("2006-01-02", minISO)
	end, _ := time.Parse("2006-01-02", maxISO)

	var missing []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if iso := d.Format("2006-01-02"); !distinct[iso] {
			missing = append(missing, iso)
		}
	}
	if len(missing) > 0 {
		preview := missing
		if len(preview) > gapPreviewLimit {
			preview = preview[:gapPreviewLimit]
		}
		warnings = append(warnings,
			fmt.Sprintf("%d calendar days missing between %s and %s (first %d: %s)",
				len(missing), minISO, maxISO, len(preview), strings.Join(preview, ", ")))
	}

	return warnings
}
