package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/order-weather-insights/internal/adapter/kafka"
	"github.com/couchcryptid/order-weather-insights/internal/dates"
	"github.com/couchcryptid/order-weather-insights/internal/observability"
	"github.com/couchcryptid/order-weather-insights/internal/pipeline"
)

var (
	analyzeOrdersPath  string
	analyzeWeatherPath string
	analyzeOutPath     string
	analyzeMaxGapDays  int
	analyzeRainMM      float64
	analyzeDropMissing bool
	analyzeBrokers     []string
	analyzeTopic       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analysis over an orders file and a weather file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()

		ordersText, err := os.ReadFile(analyzeOrdersPath)
		if err != nil {
			return fmt.Errorf("read orders file: %w", err)
		}
		weatherText, err := os.ReadFile(analyzeWeatherPath)
		if err != nil {
			return fmt.Errorf("read weather file: %w", err)
		}

		opts := pipeline.Options{MaxGapDays: analyzeMaxGapDays}
		if cmd.Flags().Changed("rain-threshold") {
			opts.RainThresholdMM = &analyzeRainMM
		}
		if analyzeDropMissing {
			opts.MissingDatePolicy = dates.MissingDateDrop
		}

		p := pipeline.New(logger, observability.NewMetrics(), opts)
		report, err := p.Run(string(ordersText), string(weatherText))
		if err != nil {
			return err
		}

		if len(analyzeBrokers) > 0 {
			writer := kafkaadapter.NewWriter(analyzeBrokers, analyzeTopic, logger)
			defer writer.Close()
			if err := writer.PublishRows(cmd.Context(), report.Rows, report.GeneratedAt); err != nil {
				return err
			}
		}

		out := os.Stdout
		if analyzeOutPath != "" {
			f, err := os.Create(analyzeOutPath)
			if err != nil {
				return fmt.Errorf("create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOrdersPath, "orders", "", "path to the orders CSV (required)")
	analyzeCmd.Flags().StringVar(&analyzeWeatherPath, "weather", "", "path to the weather CSV (required)")
	analyzeCmd.Flags().StringVar(&analyzeOutPath, "out", "", "write the JSON report here instead of stdout")
	analyzeCmd.Flags().IntVar(&analyzeMaxGapDays, "max-gap-days", 0, "imputation search radius in days (0 = default)")
	analyzeCmd.Flags().Float64Var(&analyzeRainMM, "rain-threshold", 0, "rainfall in mm above which a day counts as rainy")
	analyzeCmd.Flags().BoolVar(&analyzeDropMissing, "drop-missing-dates", false, "drop rows without a date instead of failing")
	analyzeCmd.Flags().StringSliceVar(&analyzeBrokers, "brokers", nil, "Kafka brokers to publish enriched rows to")
	analyzeCmd.Flags().StringVar(&analyzeTopic, "topic", "order-weather-enriched", "Kafka topic for enriched rows")
	_ = analyzeCmd.MarkFlagRequired("orders")
	_ = analyzeCmd.MarkFlagRequired("weather")

	rootCmd.AddCommand(analyzeCmd)
}
