package marketdata

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hinosemi/internal/index"
)

type fakeProvider struct {
	mu       sync.Mutex
	intraday map[string][]index.PricePoint // key: symbol|interval
	errs     map[string]error
	daily    map[string][]index.DailyClose
	blocked  map[string]bool
	calls    []string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		intraday: map[string][]index.PricePoint{},
		errs:     map[string]error{},
		daily:    map[string][]index.DailyClose{},
		blocked:  map[string]bool{},
	}
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Intraday(ctx context.Context, symbol, interval string) ([]index.PricePoint, error) {
	key := symbol + "|" + interval
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()
	if f.blocked[symbol] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err := f.errs[key]; err != nil {
		return nil, err
	}
	return f.intraday[key], nil
}

func (f *fakeProvider) DailyCloses(_ context.Context, symbol string, _ time.Duration) ([]index.DailyClose, error) {
	f.mu.Lock()
	f.calls = append(f.calls, symbol+"|daily")
	f.mu.Unlock()
	return f.daily[symbol], nil
}

func (f *fakeProvider) called(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if c == key {
			return true
		}
	}
	return false
}

var t0 = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func bars(n int) []index.PricePoint {
	out := make([]index.PricePoint, n)
	for i := range out {
		out[i] = index.PricePoint{Time: t0.Add(time.Duration(i) * time.Minute), Open: 100, Close: 100 + float64(i)}
	}
	return out
}

func TestFetchIntervalFallback(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(p *fakeProvider)
		wantInterval string
		wantPoints   int
		wantErr      bool
	}{
		{
			name:         "finest interval wins",
			setup:        func(p *fakeProvider) { p.intraday["A|1m"] = bars(3); p.intraday["A|5m"] = bars(1) },
			wantInterval: "1m",
			wantPoints:   3,
		},
		{
			name:         "empty interval falls through",
			setup:        func(p *fakeProvider) { p.intraday["A|5m"] = bars(2) },
			wantInterval: "5m",
			wantPoints:   2,
		},
		{
			name: "provider error falls through",
			setup: func(p *fakeProvider) {
				p.errs["A|1m"] = errors.New("rate limited")
				p.intraday["A|15m"] = bars(4)
			},
			wantInterval: "15m",
			wantPoints:   4,
		},
		{
			name: "all intervals exhausted",
			setup: func(p *fakeProvider) {
				p.errs["A|5m"] = errors.New("boom")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakeProvider()
			tt.setup(p)
			f := NewFetcher(p, FetcherConfig{}, nil)

			series, err := f.Fetch(context.Background(), index.Instrument{Symbol: "A"})
			assert.Equal(t, tt.wantInterval, series.Interval)
			assert.Len(t, series.Points, tt.wantPoints)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, series.Empty())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFetchNoDataNoError(t *testing.T) {
	f := NewFetcher(newFakeProvider(), FetcherConfig{}, nil)

	series, err := f.Fetch(context.Background(), index.Instrument{Symbol: "A"})
	assert.NoError(t, err)
	assert.True(t, series.Empty())
}

func TestFetchAllKeepsBasketOrder(t *testing.T) {
	p := newFakeProvider()
	p.intraday["A|1m"] = bars(2)
	p.intraday["C|5m"] = bars(3)
	p.errs["B|1m"] = errors.New("timeout")
	p.daily["A"] = []index.DailyClose{{Date: t0.AddDate(0, 0, -1), Close: 99}}

	f := NewFetcher(p, FetcherConfig{Concurrency: 2}, nil)
	basket := []index.Instrument{{Symbol: "A"}, {Symbol: "B"}, {Symbol: "C"}}

	inputs, err := f.FetchAll(context.Background(), basket, true)
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	for i, in := range inputs {
		assert.Equal(t, basket[i].Symbol, in.Instrument.Symbol)
	}
	assert.Len(t, inputs[0].Series.Points, 2)
	assert.Len(t, inputs[0].History, 1)
	assert.True(t, inputs[1].Series.Empty())
	assert.Error(t, inputs[1].FetchErr)
	assert.Equal(t, "5m", inputs[2].Series.Interval)

	assert.False(t, p.called("B|daily"), "history is skipped for instruments without intraday data")
}

func TestFetchAllWithoutHistory(t *testing.T) {
	p := newFakeProvider()
	p.intraday["A|1m"] = bars(1)

	f := NewFetcher(p, FetcherConfig{}, nil)
	inputs, err := f.FetchAll(context.Background(), []index.Instrument{{Symbol: "A"}}, false)
	require.NoError(t, err)
	assert.Nil(t, inputs[0].History)
	assert.False(t, p.called("A|daily"))
}

func TestFetchAllSlowInstrumentTimesOutAlone(t *testing.T) {
	p := newFakeProvider()
	p.intraday["A|1m"] = bars(5)
	p.intraday["B|1m"] = bars(5)
	p.blocked["SLOW"] = true

	f := NewFetcher(p, FetcherConfig{Timeout: 50 * time.Millisecond}, nil)
	basket := []index.Instrument{{Symbol: "A"}, {Symbol: "SLOW"}, {Symbol: "B"}}

	inputs, err := f.FetchAll(context.Background(), basket, false)
	require.NoError(t, err)
	require.Len(t, inputs, 3)

	assert.Len(t, inputs[0].Series.Points, 5)
	assert.Len(t, inputs[2].Series.Points, 5)
	assert.True(t, inputs[1].Series.Empty())
	assert.ErrorIs(t, inputs[1].FetchErr, context.DeadlineExceeded)
}

func TestFetchAllCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := NewFetcher(newFakeProvider(), FetcherConfig{}, nil)
	_, err := f.FetchAll(ctx, []index.Instrument{{Symbol: "A"}}, false)
	assert.ErrorIs(t, err, context.Canceled)
}
