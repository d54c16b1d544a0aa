// Command insights is the offline toolbox around the analysis pipeline:
// run an analysis, fetch archive weather, convert raw order exports, and
// generate or validate fixture CSVs.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/order-weather-insights/internal/observability"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "insights",
	Short: "Correlate daily order volume with weather",
	Long: `insights runs the orders-weather analysis pipeline and its supporting
tooling: fetching archive weather, converting raw order history exports
into the canonical daily CSV, and generating or validating fixtures.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
}

// newLogger builds the logger from the persistent flags.
func newLogger() *slog.Logger {
	return observability.NewLogger(logLevel, logFormat)
}
