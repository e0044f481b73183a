// Package marketdata retrieves raw per-instrument price series.
//
// Providers hide the upstream source (Yahoo Finance, frozen CSV fixtures). The Fetcher
// layers interval fallback and bounded concurrency on top of any Provider.
package marketdata

import (
	"context"
	"time"

	"hinosemi/internal/index"
)

// Provider is the upstream market-data capability.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Intraday returns the current-session bars of symbol sampled at interval.
	// An empty result with a nil error means the provider has no data for that interval.
	Intraday(ctx context.Context, symbol, interval string) ([]index.PricePoint, error)

	// DailyCloses returns the daily closes of symbol over the lookback period.
	DailyCloses(ctx context.Context, symbol string, lookback time.Duration) ([]index.DailyClose, error)
}

// Supported sampling intervals, finest first.
const (
	Interval1m  = "1m"
	Interval5m  = "5m"
	Interval15m = "15m"
)

// DefaultIntervals is the default fallback chain.
var DefaultIntervals = []string{Interval1m, Interval5m, Interval15m}
