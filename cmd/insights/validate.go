package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/order-weather-insights/internal/dates"
	"github.com/couchcryptid/order-weather-insights/internal/domain"
	"github.com/couchcryptid/order-weather-insights/internal/tabular"
)

var validateInPath string

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check an exported weather CSV against the fetch contract",
	RunE: func(_ *cobra.Command, _ []string) error {
		text, err := os.ReadFile(validateInPath)
		if err != nil {
			return fmt.Errorf("read input file: %w", err)
		}

		phases := validateWeatherCSV(string(text))

		failed := 0
		for _, p := range phases {
			if p.passed() {
				fmt.Printf("PASS %s\n", p.name)
				continue
			}
			failed++
			fmt.Printf("FAIL %s\n", p.name)
			for _, e := range p.errors {
				fmt.Printf("  - %s\n", e)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d phases failed", failed, len(phases))
		}
		return nil
	},
}

func validateWeatherCSV(text string) []*phase {
	parsePhase := &phase{name: "parse"}
	datePhase := &phase{name: "dates"}
	valuePhase := &phase{name: "values"}
	phases := []*phase{parsePhase, datePhase, valuePhase}

	res, err := tabular.Parse(text, tabular.WeatherSchema())
	if err != nil {
		parsePhase.errorf("weather schema parse failed: %v", err)
		return phases
	}
	for _, w := range res.Warnings {
		parsePhase.errorf("export should parse cleanly, got warning: %s", w)
	}

	norm, err := dates.Normalize(res.Rows, dates.Options{})
	if err != nil {
		datePhase.errorf("date normalization failed: %v", err)
		return phases
	}
	for _, w := range norm.Warnings {
		datePhase.errorf("date coverage warning: %s", w)
	}
	seen := make(map[string]bool, len(norm.Rows))
	prev := ""
	for _, row := range norm.Rows {
		if seen[row.DateISO] {
			datePhase.errorf("duplicate date %s", row.DateISO)
		}
		seen[row.DateISO] = true
		if prev != "" && row.DateISO <= prev {
			datePhase.errorf("dates out of order: %s follows %s", row.DateISO, prev)
		}
		prev = row.DateISO
	}

	for i, row := range norm.Rows {
		line := i + 2
		if row.Field(domain.FieldTemperatureC) == nil {
			valuePhase.errorf("row %d: missing temperature", line)
		}
		if rain := row.Field(domain.FieldRainfallMM); rain != nil && *rain < 0 {
			valuePhase.errorf("row %d: negative rainfall %v", line, *rain)
		}
		if h := row.Field(domain.FieldHumidityPct); h != nil && (*h < 0 || *h > 100) {
			valuePhase.errorf("row %d: humidity %v out of range", line, *h)
		}
	}

	return phases
}

func init() {
	validateCmd.Flags().StringVar(&validateInPath, "in", "", "exported weather CSV path (required)")
	_ = validateCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(validateCmd)
}
