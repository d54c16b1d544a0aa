package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/order-weather-insights/internal/dates"
	"github.com/couchcryptid/order-weather-insights/internal/tabular"
)

// minDistinctConvertDates matches the analysis minimum so a converted file
// is guaranteed to parse downstream.
const minDistinctConvertDates = 7

var (
	convertInPath    string
	convertOutPath   string
	convertStatus    string
	convertDateCol   string
	convertStatusCol string
)

var convertOrdersCmd = &cobra.Command{
	Use:   "convert-orders",
	Short: "Convert a raw order-history export into the daily orders CSV",
	Long: `convert-orders counts orders per calendar day from a raw export such
as the Kaggle order-history dataset, producing the canonical
date,total_orders CSV the analyze command consumes. Timestamps like
"11:38 PM, September 10 2024" are reduced to their calendar date.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		text, err := os.ReadFile(convertInPath)
		if err != nil {
			return fmt.Errorf("read input file: %w", err)
		}

		counts, err := countOrdersByDay(string(text), convertStatus, convertDateCol, convertStatusCol)
		if err != nil {
			return err
		}
		if len(counts) < minDistinctConvertDates {
			return fmt.Errorf("too few distinct dates after conversion: %d", len(counts))
		}

		days := make([]string, 0, len(counts))
		for d := range counts {
			days = append(days, d)
		}
		sort.Strings(days)

		out := os.Stdout
		if convertOutPath != "" {
			f, err := os.Create(convertOutPath)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}

		w := csv.NewWriter(out)
		if err := w.Write([]string{"date", "total_orders"}); err != nil {
			return err
		}
		for _, d := range days {
			if err := w.Write([]string{d, fmt.Sprintf("%d", counts[d])}); err != nil {
				return err
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "distinct dates: %d, range: %s to %s\n", len(days), days[0], days[len(days)-1])
		return nil
	},
}

// countOrdersByDay tallies rows per ISO date, optionally filtered by order
// status. Rows with an empty date cell are skipped, matching how upstream
// exports mark cancelled-before-placement orders.
func countOrdersByDay(text, status, dateCol, statusCol string) (map[string]int, error) {
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = tabular.DetectDelimiter(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("export has no data rows")
	}

	header := records[0]
	dateIdx, statusIdx := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case dateCol:
			dateIdx = i
		case statusCol:
			statusIdx = i
		}
	}
	if dateIdx < 0 {
		return nil, fmt.Errorf("missing date column %q", dateCol)
	}

	statusFilter := strings.ToLower(strings.TrimSpace(status))
	counts := make(map[string]int)
	for _, rec := range records[1:] {
		if statusFilter != "" && statusIdx >= 0 && statusIdx < len(rec) {
			if strings.ToLower(strings.TrimSpace(rec[statusIdx])) != statusFilter {
				continue
			}
		}
		if dateIdx >= len(rec) {
			continue
		}
		raw := strings.TrimSpace(rec[dateIdx])
		if raw == "" {
			continue
		}
		iso, err := dates.ParseSingle(raw)
		if err != nil {
			return nil, err
		}
		counts[iso]++
	}
	return counts, nil
}

func init() {
	convertOrdersCmd.Flags().StringVar(&convertInPath, "in", "", "input export CSV path (required)")
	convertOrdersCmd.Flags().StringVar(&convertOutPath, "out", "", "write the CSV here instead of stdout")
	convertOrdersCmd.Flags().StringVar(&convertStatus, "status", "Delivered", "only count rows with this order status; empty includes all")
	convertOrdersCmd.Flags().StringVar(&convertDateCol, "date-col", "Order Placed At", "column holding the order date or timestamp")
	convertOrdersCmd.Flags().StringVar(&convertStatusCol, "status-col", "Order Status", "column holding the order status")
	_ = convertOrdersCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(convertOrdersCmd)
}
