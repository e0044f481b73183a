package marketdata

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"hinosemi/internal/index"
)

// YahooConfig configures the Yahoo Finance chart provider.
type YahooConfig struct {
	// RequestsPerSecond throttles chart requests across all goroutines.
	RequestsPerSecond float64
	Burst             int
}

// YahooProvider reads bars from the Yahoo Finance chart API.
type YahooProvider struct {
	limiter *rate.Limiter
	now     func() time.Time
	logger  *slog.Logger
}

// NewYahooProvider creates a throttled Yahoo Finance provider.
func NewYahooProvider(cfg YahooConfig, logger *slog.Logger) *YahooProvider {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &YahooProvider{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		now:     time.Now,
		logger:  logger.With(slog.String("component", "yahoo_provider")),
	}
}

// Name implements Provider.
func (y *YahooProvider) Name() string { return "yahoo" }

// Intraday implements Provider. The request window spans yesterday through tomorrow (UTC
// day boundaries) so the whole current session is covered regardless of exchange timezone;
// the Aligner keeps the latest day.
func (y *YahooProvider) Intraday(ctx context.Context, symbol, interval string) ([]index.PricePoint, error) {
	now := y.now().UTC()
	start := now.AddDate(0, 0, -1)
	end := now.AddDate(0, 0, 1)

	bars, err := y.bars(ctx, symbol, datetime.Interval(interval), start, end)
	if err != nil {
		return nil, err
	}

	points := make([]index.PricePoint, 0, len(bars))
	for _, b := range bars {
		p := index.PricePoint{
			Time:  time.Unix(int64(b.Timestamp), 0),
			Open:  toFloat(b.Open),
			Close: toFloat(b.Close),
		}
		if p.Valid() {
			points = append(points, p)
		}
	}
	return points, nil
}

// DailyCloses implements Provider.
func (y *YahooProvider) DailyCloses(ctx context.Context, symbol string, lookback time.Duration) ([]index.DailyClose, error) {
	now := y.now().UTC()
	start := now.Add(-lookback)
	end := now.AddDate(0, 0, 1)

	bars, err := y.bars(ctx, symbol, datetime.OneDay, start, end)
	if err != nil {
		return nil, err
	}

	closes := make([]index.DailyClose, 0, len(bars))
	for _, b := range bars {
		c := toFloat(b.Close)
		if c <= 0 {
			continue
		}
		closes = append(closes, index.DailyClose{Date: time.Unix(int64(b.Timestamp), 0), Close: c})
	}
	return closes, nil
}

type bar struct {
	Timestamp int
	Open      decimal.Decimal
	Close     decimal.Decimal
}

func (y *YahooProvider) bars(ctx context.Context, symbol string, interval datetime.Interval, start, end time.Time) ([]bar, error) {
	if err := y.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := &chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: interval,
	}
	params.Context = &ctx

	started := time.Now()
	iter := chart.Get(params)
	var out []bar
	for iter.Next() {
		b := iter.Bar()
		out = append(out, bar{Timestamp: b.Timestamp, Open: b.Open, Close: b.Close})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart %s %s: %w", symbol, interval, err)
	}

	y.logger.DebugContext(ctx, "chart request completed",
		slog.String("symbol", symbol),
		slog.String("interval", string(interval)),
		slog.Int("bars", len(out)),
		slog.Duration("duration", time.Since(started)))
	return out, nil
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
