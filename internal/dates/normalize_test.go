package dates_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/order-weather-insights/internal/dates"
	"github.com/couchcryptid/order-weather-insights/internal/domain"
)

func rowsFromDates(values ...string) []domain.CanonicalRecord {
	rows := make([]domain.CanonicalRecord, len(values))
	for i, v := range values {
		rows[i] = domain.CanonicalRecord{Date: v, Fields: map[string]*float64{}}
	}
	return rows
}

func normalizeOne(t *testing.T, value string) (string, error) {
	t.Helper()
	res, err := dates.Normalize(rowsFromDates(value), dates.Options{})
	if err != nil {
		return "", err
	}
	require.Len(t, res.Rows, 1)
	return res.Rows[0].DateISO, nil
}

func TestNormalize_Formats(t *testing.T) {
	t.Run("strict ISO", func(t *testing.T) {
		iso, err := normalizeOne(t, "2024-09-10")
		require.NoError(t, err)
		assert.Equal(t, "2024-09-10", iso)
	})

	t.Run("ISO timestamp truncates to written date", func(t *testing.T) {
		// 23:59 UTC stays on the 10th: local-date semantics, no boundary shift.
		iso, err := normalizeOne(t, "2024-09-10T23:59:59Z")
		require.NoError(t, err)
		assert.Equal(t, "2024-09-10", iso)
	})

	t.Run("month name with leading time fragment", func(t *testing.T) {
		iso, err := normalizeOne(t, "11:38 PM, September 10 2024")
		require.NoError(t, err)
		assert.Equal(t, "2024-09-10", iso)
	})

	t.Run("month name with comma before year", func(t *testing.T) {
		iso, err := normalizeOne(t, "September 10, 2024")
		require.NoError(t, err)
		assert.Equal(t, "2024-09-10", iso)
	})

	t.Run("abbreviated month name", func(t *testing.T) {
		iso, err := normalizeOne(t, "Sep 3 2024")
		require.NoError(t, err)
		assert.Equal(t, "2024-09-03", iso)

		iso, err = normalizeOne(t, "Sept 3 2024")
		require.NoError(t, err)
		assert.Equal(t, "2024-09-03", iso)
	})

	t.Run("impossible calendar date", func(t *testing.T) {
		_, err := normalizeOne(t, "2024-02-30")
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateInvalid, domain.CodeOf(err))
	})

	t.Run("unknown month name", func(t *testing.T) {
		_, err := normalizeOne(t, "Septembro 10 2024")
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateInvalid, domain.CodeOf(err))
	})

	t.Run("unrecognized shape", func(t *testing.T) {
		_, err := normalizeOne(t, "10.09.2024")
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateInvalid, domain.CodeOf(err))
	})
}

func TestNormalize_SlashDisambiguation(t *testing.T) {
	t.Run("first token over 12 is the day", func(t *testing.T) {
		iso, err := normalizeOne(t, "13/04/2024")
		require.NoError(t, err)
		assert.Equal(t, "2024-04-13", iso)
	})

	t.Run("second token over 12 is the day", func(t *testing.T) {
		iso, err := normalizeOne(t, "04/13/2024")
		require.NoError(t, err)
		assert.Equal(t, "2024-04-13", iso)
	})

	t.Run("both tokens could be the month", func(t *testing.T) {
		_, err := normalizeOne(t, "03/04/2024")
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateAmbiguous, domain.CodeOf(err))
	})

	t.Run("both tokens over 12", func(t *testing.T) {
		_, err := normalizeOne(t, "13/14/2024")
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateInvalid, domain.CodeOf(err))
	})

	t.Run("day outside the month", func(t *testing.T) {
		_, err := normalizeOne(t, "31/02/2024")
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateInvalid, domain.CodeOf(err))
	})
}

func TestNormalize_FormatConsistency(t *testing.T) {
	t.Run("mixed families fail wholesale", func(t *testing.T) {
		_, err := dates.Normalize(rowsFromDates("2024-09-01", "13/09/2024"), dates.Options{})
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateMixedFormats, domain.CodeOf(err))

		var typed *domain.Error
		require.ErrorAs(t, err, &typed)
		assert.ElementsMatch(t, []string{"day_first_slash", "iso"}, typed.Details["families"])
	})

	t.Run("plain ISO and ISO timestamp are one family", func(t *testing.T) {
		res, err := dates.Normalize(rowsFromDates("2024-09-01", "2024-09-02T08:00:00Z"), dates.Options{})
		require.NoError(t, err)
		assert.Len(t, res.Rows, 2)
	})
}

func TestNormalize_MissingDates(t *testing.T) {
	t.Run("default policy fails on first missing", func(t *testing.T) {
		_, err := dates.Normalize(rowsFromDates("2024-09-01", "", "2024-09-03"), dates.Options{})
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateInvalid, domain.CodeOf(err))

		var typed *domain.Error
		require.ErrorAs(t, err, &typed)
		assert.Equal(t, 2, typed.Details["row"])
	})

	t.Run("drop policy removes rows with one aggregate warning", func(t *testing.T) {
		res, err := dates.Normalize(
			rowsFromDates("2024-09-01", "", "2024-09-03", ""),
			dates.Options{Policy: dates.MissingDateDrop},
		)
		require.NoError(t, err)
		assert.Len(t, res.Rows, 2)
		require.NotEmpty(t, res.Warnings)
		assert.Contains(t, res.Warnings[0], "dropped 2 rows")
	})
}

func TestNormalize_Diagnostics(t *testing.T) {
	t.Run("short range warns", func(t *testing.T) {
		res, err := dates.Normalize(rowsFromDates("2024-09-01", "2024-09-02"), dates.Options{})
		require.NoError(t, err)
		require.NotEmpty(t, res.Warnings)
		assert.Contains(t, res.Warnings[0], "2 distinct dates")
	})

	t.Run("calendar gaps warn with preview", func(t *testing.T) {
		res, err := dates.Normalize(rowsFromDates(
			"2024-09-01", "2024-09-02", "2024-09-03", "2024-09-05",
			"2024-09-07", "2024-09-08", "2024-09-09", "2024-09-10",
		), dates.Options{})
		require.NoError(t, err)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "2 calendar days missing")
		assert.Contains(t, res.Warnings[0], "2024-09-04")
		assert.Contains(t, res.Warnings[0], "2024-09-06")
	})

	t.Run("gap preview capped at five", func(t *testing.T) {
		res, err := dates.Normalize(rowsFromDates(
			"2024-09-01", "2024-09-02", "2024-09-03", "2024-09-04",
			"2024-09-05", "2024-09-06", "2024-09-07", "2024-09-30",
		), dates.Options{})
		require.NoError(t, err)
		require.Len(t, res.Warnings, 1)
		assert.Contains(t, res.Warnings[0], "22 calendar days missing")
		assert.NotContains(t, res.Warnings[0], "2024-09-13")
	})
}

func TestParseSingle(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"iso", "2024-09-10", "2024-09-10"},
		{"month name", "September 10, 2024", "2024-09-10"},
		{"timestamp prefix", "11:38 PM, September 10 2024", "2024-09-10"},
		{"day first slash", "13/04/2024", "2024-04-13"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := dates.ParseSingle(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("empty value", func(t *testing.T) {
		_, err := dates.ParseSingle("  ")
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateInvalid, domain.CodeOf(err))
	})

	t.Run("ambiguous slash", func(t *testing.T) {
		_, err := dates.ParseSingle("03/04/2024")
		require.Error(t, err)
		assert.Equal(t, domain.CodeDateAmbiguous, domain.CodeOf(err))
	})
}
