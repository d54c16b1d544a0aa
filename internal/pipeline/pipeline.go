// Package pipeline composes the four analysis stages into one run:
// parse → normalize dates → merge → derive metrics. Stages are pure
// functions over their full input; the pipeline adds logging, metrics, and
// warning aggregation but no behavior of its own.
package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/order-weather-insights/internal/analytics"
	"github.com/couchcryptid/order-weather-insights/internal/dates"
	"github.com/couchcryptid/order-weather-insights/internal/domain"
	"github.com/couchcryptid/order-weather-insights/internal/merge"
	"github.com/couchcryptid/order-weather-insights/internal/observability"
	"github.com/couchcryptid/order-weather-insights/internal/tabular"
)

// Options configures one analysis run.
type Options struct {
	// MaxGapDays bounds weather imputation; 0 means the merge default.
	MaxGapDays int
	// RainThresholdMM overrides the rainy-day threshold; nil means default.
	RainThresholdMM *float64
	// MissingDatePolicy applies to both input files; empty means error.
	MissingDatePolicy dates.MissingDatePolicy
}

// Pipeline runs analyses with shared logging and metrics. It holds no
// cross-run state: abandoning a run means discarding its Report.
type Pipeline struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options
}

// New creates a Pipeline.
func New(logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	return &Pipeline{logger: logger, metrics: metrics, opts: opts}
}

// Report is the terminal artifact of one successful run.
type Report struct {
	GeneratedAt time.Time               `json:"generated_at"`
	Rows        []domain.EnrichedRecord `json:"rows"`
	KPIs        analytics.KPIs          `json:"kpis"`
	Weekdays    []analytics.WeekdayStat `json:"weekdays"`
	Chart       []analytics.ChartPoint  `json:"chart"`
	Warnings    []string                `json:"warnings,omitempty"`
}

// Run executes the full pipeline over raw orders and weather text. It
// returns the first typed failure any stage raises; warnings from all
// stages accumulate in order on the successful Report.
func (p *Pipeline) Run(ordersText, weatherText string) (Report, error) {
	p.metrics.AnalysesTotal.Inc()

	var warnings []string
	collect := func(source string, ws []string) {
		for _, w := range ws {
			warnings = append(warnings, fmt.Sprintf("%s: %s", source, w))
		}
		p.metrics.WarningsTotal.Add(float64(len(ws)))
	}

	orderRows, err := p.parse("orders", ordersText, tabular.OrdersSchema(), collect)
	if err != nil {
		return Report{}, p.fail(err)
	}
	weatherRows, err := p.parse("weather", weatherText, tabular.WeatherSchema(), collect)
	if err != nil {
		return Report{}, p.fail(err)
	}

	normOrders, err := p.normalize("orders", orderRows, collect)
	if err != nil {
		return Report{}, p.fail(err)
	}
	normWeather, err := p.normalize("weather", weatherRows, collect)
	if err != nil {
		return Report{}, p.fail(err)
	}

	start := time.Now()
	merged, err := merge.Merge(normOrders, normWeather, merge.Options{MaxGapDays: p.opts.MaxGapDays})
	p.metrics.StageDuration.WithLabelValues("merge").Observe(time.Since(start).Seconds())
	if err != nil {
		return Report{}, p.fail(err)
	}
	collect("merge", merged.Warnings)
	p.metrics.RowsMerged.Observe(float64(len(merged.Rows)))
	p.logger.Debug("merge complete", "rows", len(merged.Rows), "warnings", len(merged.Warnings))

	start = time.Now()
	derived, err := analytics.Compute(merged.Rows, analytics.Options{RainThresholdMM: p.opts.RainThresholdMM})
	p.metrics.StageDuration.WithLabelValues("metrics").Observe(time.Since(start).Seconds())
	if err != nil {
		return Report{}, p.fail(err)
	}
	collect("metrics", derived.Warnings)

	p.logger.Info("analysis complete",
		"rows", len(derived.Rows),
		"warnings", len(warnings),
		"imputed_fraction", derived.KPIs.ImputedFraction,
	)

	return Report{
		GeneratedAt: domain.Clock().Now().UTC(),
		Rows:        derived.Rows,
		KPIs:        derived.KPIs,
		Weekdays:    derived.Weekdays,
		Chart:       derived.Chart,
		Warnings:    warnings,
	}, nil
}

func (p *Pipeline) parse(source, text string, schema tabular.Schema, collect func(string, []string)) ([]domain.CanonicalRecord, error) {
	start := time.Now()
	res, err := tabular.Parse(text, schema)
	p.metrics.StageDuration.WithLabelValues("parse").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	collect(source, res.Warnings)
	p.logger.Debug("parse complete", "source", source, "rows", len(res.Rows), "headers", res.Headers)
	return res.Rows, nil
}

func (p *Pipeline) normalize(source string, rows []domain.CanonicalRecord, collect func(string, []string)) ([]domain.NormalizedRecord, error) {
	start := time.Now()
	res, err := dates.Normalize(rows, dates.Options{Policy: p.opts.MissingDatePolicy})
	p.metrics.StageDuration.WithLabelValues("normalize").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	collect(source+" dates", res.Warnings)
	p.logger.Debug("dates normalized", "source", source, "rows", len(res.Rows))
	return res.Rows, nil
}

// fail records the terminal failure before passing it through unchanged.
func (p *Pipeline) fail(err error) error {
	code := domain.CodeOf(err)
	p.metrics.AnalysisFailures.WithLabelValues(string(code)).Inc()
	p.logger.Error("analysis failed", "code", code, "error", err)
	return err
}
