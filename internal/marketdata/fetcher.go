package marketdata

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"hinosemi/internal/index"
)

// FetcherConfig configures interval fallback and concurrency.
type FetcherConfig struct {
	Intervals   []string
	Lookback    time.Duration
	Concurrency int
	// Timeout bounds each instrument's fetch within FetchAll. An instrument that runs out
	// of time is reported through Input.FetchErr. Zero means no limit beyond ctx.
	Timeout time.Duration
}

// Fetcher retrieves intraday series with interval fallback.
type Fetcher struct {
	provider Provider
	cfg      FetcherConfig
	logger   *slog.Logger
}

// NewFetcher creates a fetcher over provider.
func NewFetcher(provider Provider, cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if len(cfg.Intervals) == 0 {
		cfg.Intervals = DefaultIntervals
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 10 * 24 * time.Hour
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		provider: provider,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "fetcher"), slog.String("provider", provider.Name())),
	}
}

// Fetch returns the first non-empty series over the candidate intervals.
//
// Provider errors are not fatal: the next interval is tried. When every interval comes back
// empty the series is empty and the returned error describes what the provider reported,
// if anything. Only context cancellation is reported together with a nil series.
func (f *Fetcher) Fetch(ctx context.Context, inst index.Instrument) (index.Series, error) {
	series := index.Series{Instrument: inst}
	var errs []error

	for _, interval := range f.cfg.Intervals {
		if err := ctx.Err(); err != nil {
			return series, err
		}

		points, err := f.provider.Intraday(ctx, inst.Symbol, interval)
		if err != nil {
			if ctx.Err() != nil {
				return series, ctx.Err()
			}
			f.logger.WarnContext(ctx, "interval fetch failed",
				slog.String("symbol", inst.Symbol),
				slog.String("interval", interval),
				slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", interval, err))
			continue
		}
		if len(points) == 0 {
			f.logger.DebugContext(ctx, "interval returned no data",
				slog.String("symbol", inst.Symbol),
				slog.String("interval", interval))
			continue
		}

		series.Interval = interval
		series.Points = points
		f.logger.DebugContext(ctx, "intraday series fetched",
			slog.String("symbol", inst.Symbol),
			slog.String("interval", interval),
			slog.Int("points", len(points)))
		return series, nil
	}

	return series, errors.Join(errs...)
}

// History returns the daily close history used by the prior-close baseline.
func (f *Fetcher) History(ctx context.Context, inst index.Instrument) ([]index.DailyClose, error) {
	closes, err := f.provider.DailyCloses(ctx, inst.Symbol, f.cfg.Lookback)
	if err != nil {
		return nil, fmt.Errorf("daily closes for %s: %w", inst.Symbol, err)
	}
	return closes, nil
}

// FetchAll fetches every instrument concurrently and returns one input per instrument in
// basket order. Individual failures, including a per-instrument timeout, are carried in
// Input.FetchErr; the returned error is non-nil only when ctx is cancelled.
func (f *Fetcher) FetchAll(ctx context.Context, instruments []index.Instrument, withHistory bool) ([]index.Input, error) {
	inputs := make([]index.Input, len(instruments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)
	for i, inst := range instruments {
		g.Go(func() error {
			inputs[i] = f.fetchOne(gctx, inst, withHistory)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	available := 0
	for _, in := range inputs {
		if !in.Series.Empty() {
			available++
		}
	}
	f.logger.InfoContext(ctx, "fetch completed",
		slog.Int("instruments", len(instruments)),
		slog.Int("with_data", available))

	return inputs, nil
}

func (f *Fetcher) fetchOne(ctx context.Context, inst index.Instrument, withHistory bool) index.Input {
	if f.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.Timeout)
		defer cancel()
	}

	in := index.Input{Instrument: inst}
	in.Series, in.FetchErr = f.Fetch(ctx, inst)
	if errors.Is(in.FetchErr, context.DeadlineExceeded) {
		f.logger.WarnContext(ctx, "instrument fetch timed out",
			slog.String("symbol", inst.Symbol),
			slog.Duration("timeout", f.cfg.Timeout))
		in.FetchErr = fmt.Errorf("fetch %s: %w", inst.Symbol, in.FetchErr)
	}

	if withHistory && !in.Series.Empty() {
		history, err := f.History(ctx, inst)
		if err != nil {
			f.logger.WarnContext(ctx, "history fetch failed",
				slog.String("symbol", inst.Symbol),
				slog.String("error", err.Error()))
		}
		in.History = history
	}
	return in
}
