package tabular

import (
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
)

// minDataRows is a design minimum so the later percentile and moving-average
// stages have something meaningful to chew on, not a mathematical necessity.
const minDataRows = 7

// delimiterSampleLines caps how many leading non-blank lines feed delimiter
// detection.
const delimiterSampleLines = 10

// delimiterCandidates in tie-break priority order.
var delimiterCandidates = []rune{',', ';', '\t'}

// Result is a fully parsed table: canonical rows, the normalized header
// tokens that were detected, and ordered non-fatal warnings. A parse either
// produces a complete Result or a single typed error, never both.
type Result struct {
	Rows     []domain.CanonicalRecord
	Headers  []string
	Warnings []string
}

// Parse reads delimited text against a schema. It detects the delimiter,
// normalizes headers, resolves canonical fields through the schema's alias
// table, and coerces numeric cells. Row/header shape mismatches are
// non-fatal warnings; everything in the error taxonomy is terminal.
func Parse(text string, schema Schema) (Result, error) {
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	if strings.TrimSpace(text) == "" {
		return Result{}, domain.NewError(domain.CodeEmptyInput, "input for schema %q is empty", schema.Name)
	}

	delim := detectDelimiter(text)

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("read table: %w", err)
	}
	if len(records) == 0 {
		return Result{}, domain.NewError(domain.CodeEmptyInput, "input for schema %q has no rows", schema.Name)
	}

	headers := normalizeHeaders(records[0])
	dataRows := records[1:]
	if len(dataRows) < minDataRows {
		return Result{}, domain.NewError(domain.CodeTooFewRows,
			"schema %q needs at least %d data rows, got %d", schema.Name, minDataRows, len(dataRows)).
			WithDetail("rows", len(dataRows))
	}

	cols, inferCount, warnings, err := resolveColumns(schema, headers)
	if err != nil {
		return Result{}, err
	}

	rows := make([]domain.CanonicalRecord, 0, len(dataRows))
	for i, rec := range dataRows {
		lineNum := i + 2 // 1-based file line, header is line 1
		if len(rec) != len(headers) {
			warnings = append(warnings,
				fmt.Sprintf("row %d has %d fields, expected %d; aligned positionally", lineNum, len(rec), len(headers)))
		}

		row := domain.CanonicalRecord{
			Date:   strings.TrimSpace(cellAt(rec, cols.date)),
			Fields: make(map[string]*float64, len(cols.numeric)),
		}

		for canonical, col := range cols.numeric {
			value, err := coerceNumber(cellAt(rec, col))
			if err != nil {
				return Result{}, domain.NewError(domain.CodeInvalidNumber,
					"field %q at row %d: %v", canonical, lineNum, err).
					WithDetail("field", canonical).
					WithDetail("row", lineNum).
					WithDetail("value", strings.TrimSpace(cellAt(rec, col)))
			}
			if value != nil {
				row.Fields[canonical] = value
			}
		}

		if inferCount {
			one := 1.0
			row.Fields[schema.Inference.Target] = &one
		}

		rows = append(rows, row)
	}

	return Result{Rows: rows, Headers: headers, Warnings: warnings}, nil
}

// DetectDelimiter exposes delimiter detection for tooling that reads raw
// exports outside the schema flow.
func DetectDelimiter(text string) rune {
	return detectDelimiter(strings.ReplaceAll(text, "\r\n", "\n"))
}

// columns maps resolved canonical fields to column indexes.
type columns struct {
	date    int
	numeric map[string]int
}

// resolveColumns applies the schema alias table to the normalized headers.
// It returns the resolved column set, whether per-row count inference is
// active, and any resolution warnings.
func resolveColumns(schema Schema, headers []string) (columns, bool, []string, error) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[h] = i
	}

	find := func(aliases []string) (int, bool) {
		for _, a := range aliases {
			if col, ok := index[a]; ok {
				return col, true
			}
		}
		return 0, false
	}

	cols := columns{numeric: make(map[string]int)}
	var missing []string
	var warnings []string

	dateCol, ok := find(schema.DateAliases)
	if !ok {
		missing = append(missing, domain.FieldDate)
	}
	cols.date = dateCol

	for _, f := range schema.Numeric {
		col, ok := find(f.Aliases)
		if ok {
			cols.numeric[f.Canonical] = col
			continue
		}
		if f.Required {
			missing = append(missing, f.Canonical)
		}
	}

	inferCount := false
	if inf := schema.Inference; inf != nil {
		if _, ok := cols.numeric[inf.Target]; !ok {
			if marker, found := find(inf.MarkerAliases); found {
				inferCount = true
				warnings = append(warnings,
					fmt.Sprintf("no %s column detected; inferring one order per row from %q", inf.Target, headers[marker]))
			} else {
				missing = append(missing, inf.Target)
			}
		}
	}

	if len(missing) > 0 {
		return columns{}, false, nil, domain.NewError(domain.CodeMissingRequiredColumn,
			"schema %q is missing required columns %v (detected headers: %v)", schema.Name, missing, headers).
			WithDetail("missing", missing).
			WithDetail("detected_headers", headers)
	}

	return cols, inferCount, warnings, nil
}

// detectDelimiter tokenizes the leading sample lines with each candidate and
// scores mode_count × consistency_ratio. A candidate whose field-count mode
// is a single field scores zero, so a delimiter that never splits anything
// cannot beat one that does. Ties keep the earlier candidate.
func detectDelimiter(text string) rune {
	var sample []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		sample = append(sample, line)
		if len(sample) == delimiterSampleLines {
			break
		}
	}

	best := delimiterCandidates[0]
	bestScore := -1.0
	for _, cand := range delimiterCandidates {
		score := scoreDelimiter(sample, cand)
		if score > bestScore {
			best = cand
			bestScore = score
		}
	}
	return best
}

func scoreDelimiter(sample []string, delim rune) float64 {
	counts := make(map[int]int)
	for _, line := range sample {
		counts[countFields(line, delim)]++
	}

	mode, modeCount := 0, 0
	for fields, n := range counts {
		if n > modeCount || (n == modeCount && fields > mode) {
			mode, modeCount = fields, n
		}
	}

	if mode < 2 {
		return 0
	}
	consistency := float64(modeCount) / float64(len(sample))
	return float64(modeCount) * consistency
}

// countFields parses a single line as CSV with the candidate delimiter so
// quoted cells do not distort the count.
func countFields(line string, delim rune) int {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.LazyQuotes = true
	fields, err := r.Read()
	if err != nil {
		return 1
	}
	return len(fields)
}

// normalizeHeaders lowercases and trims each token, collapses internal
// whitespace and hyphens to single underscores, strips everything else
// non-alphanumeric, and suffixes duplicates by column order.
func normalizeHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		name := normalizeToken(h)
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = fmt.Sprintf("%s_%d", name, n+1)
		}
		if _, taken := seen[name]; !taken {
			seen[name] = 1
		}
		out[i] = name
	}
	return out
}

func normalizeToken(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))

	var b strings.Builder
	lastUnderscore := false
	for _, r := range h {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case unicode.IsSpace(r) || r == '-' || r == '_':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}

// coerceNumber turns a cell into a finite float or an explicit null.
// Thousands-separating commas are stripped; anything else non-numeric is an
// error, never a zero.
func coerceNumber(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}

	cleaned := strings.ReplaceAll(cell, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q as a number", cell)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%q is not a finite number", cell)
	}
	return &v, nil
}

func cellAt(rec []string, col int) string {
	if col < 0 || col >= len(rec) {
		return ""
	}
	return rec[col]
}
