package weather

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/order-weather-insights/internal/domain"
	"github.com/couchcryptid/order-weather-insights/internal/observability"
)

const (
	// DefaultBatchSize caps the dates claimed per worker pass so backlog
	// metrics stay meaningful on long ranges.
	DefaultBatchSize = 30

	// DefaultConcurrency bounds in-flight provider calls.
	DefaultConcurrency = 3
)

// FetcherOptions tune a Fetcher. Zero values take the defaults above.
type FetcherOptions struct {
	BatchSize      int
	Concurrency    int
	RequestTimeout time.Duration
}

// Fetcher pulls a date range from a Provider with bounded concurrency.
// Per-date errors downgrade to SoftFailures; only context cancellation
// aborts a run.
type Fetcher struct {
	provider Provider
	logger   *slog.Logger
	metrics  *observability.Metrics
	opts     FetcherOptions
}

// NewFetcher creates a Fetcher.
func NewFetcher(provider Provider, logger *slog.Logger, metrics *observability.Metrics, opts FetcherOptions) *Fetcher {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Fetcher{provider: provider, logger: logger, metrics: metrics, opts: opts}
}

// FetchRange fetches every day from startISO through endISO inclusive.
// Observations come back sorted by date; failures carry the dates that
// could not be served.
func (f *Fetcher) FetchRange(ctx context.Context, loc Location, startISO, endISO string) ([]Observation, []SoftFailure, error) {
	dates, err := expandRange(startISO, endISO)
	if err != nil {
		return nil, nil, err
	}
	return f.Fetch(ctx, loc, dates)
}

// Fetch fetches the given dates in batches.
func (f *Fetcher) Fetch(ctx context.Context, loc Location, dates []string) ([]Observation, []SoftFailure, error) {
	f.metrics.FetchBacklog.Set(float64(len(dates)))
	defer f.metrics.FetchBacklog.Set(0)

	var (
		observations []Observation
		failures     []SoftFailure
	)
	for start := 0; start < len(dates); start += f.opts.BatchSize {
		end := start + f.opts.BatchSize
		if end > len(dates) {
			end = len(dates)
		}
		obs, fails, err := f.fetchBatch(ctx, loc, dates[start:end])
		if err != nil {
			return nil, nil, err
		}
		observations = append(observations, obs...)
		failures = append(failures, fails...)
		f.metrics.FetchBacklog.Set(float64(len(dates) - end))
	}

	sort.Slice(observations, func(i, j int) bool { return observations[i].DateISO < observations[j].DateISO })
	sort.Slice(failures, func(i, j int) bool { return failures[i].DateISO < failures[j].DateISO })

	f.logger.Info("weather fetch complete",
		"dates", len(dates),
		"observations", len(observations),
		"failures", len(failures),
	)
	return observations, failures, nil
}

func (f *Fetcher) fetchBatch(ctx context.Context, loc Location, dates []string) ([]Observation, []SoftFailure, error) {
	results := make([]*Observation, len(dates))
	softs := make([]*SoftFailure, len(dates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.opts.Concurrency)
	for i, date := range dates {
		g.Go(func() error {
			obs, err := f.fetchOne(gctx, loc, date)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				softs[i] = f.classify(date, err)
				return nil
			}
			results[i] = &obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var (
		observations []Observation
		failures     []SoftFailure
	)
	for i := range dates {
		if results[i] != nil {
			observations = append(observations, *results[i])
		}
		if softs[i] != nil {
			failures = append(failures, *softs[i])
		}
	}
	return observations, failures, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, loc Location, dateISO string) (Observation, error) {
	if f.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	obs, err := f.provider.Daily(ctx, loc, dateISO)
	f.metrics.FetchDuration.Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		f.metrics.FetchRequests.WithLabelValues("success").Inc()
	case domain.CodeOf(err) == domain.CodeFetchNoData:
		f.metrics.FetchRequests.WithLabelValues("empty").Inc()
	default:
		f.metrics.FetchRequests.WithLabelValues("error").Inc()
	}
	return obs, err
}

// classify maps a per-date provider error onto a soft-failure code. Typed
// codes pass through; deadline errors become FETCH_TIMEOUT and everything
// else is a transport fault.
func (f *Fetcher) classify(dateISO string, err error) *SoftFailure {
	code := domain.CodeOf(err)
	if code == "" {
		code = domain.CodeFetchTransport
		if errors.Is(err, context.DeadlineExceeded) {
			code = domain.CodeFetchTimeout
		}
	}
	f.logger.Warn("weather fetch failed for date", "date", dateISO, "code", code, "error", err)
	return &SoftFailure{DateISO: dateISO, Code: code, Message: err.Error()}
}

func expandRange(startISO, endISO string) ([]string, error) {
	start, err := time.Parse("2006-01-02", startISO)
	if err != nil {
		return nil, domain.NewError(domain.CodeDateInvalid, "invalid range start %q", startISO)
	}
	end, err := time.Parse("2006-01-02", endISO)
	if err != nil {
		return nil, domain.NewError(domain.CodeDateInvalid, "invalid range end %q", endISO)
	}
	if end.Before(start) {
		return nil, domain.NewError(domain.CodeDateInvalid, "range end %s before start %s", endISO, startISO)
	}

	var dates []string
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}
