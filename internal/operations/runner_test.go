package operations

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hinosemi/internal/index"
	"hinosemi/internal/publish"
	"hinosemi/internal/shared/testutil"
)

var testDay = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func at(hh, mm int) time.Time {
	return testDay.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

type fakeFetcher struct {
	inputs      []index.Input
	err         error
	withHistory atomic.Bool
	block       chan struct{}
}

func (f *fakeFetcher) FetchAll(ctx context.Context, instruments []index.Instrument, withHistory bool) ([]index.Input, error) {
	f.withHistory.Store(withHistory)
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.inputs, f.err
}

type fakeWriter struct {
	mu     sync.Mutex
	writes int
	snap   index.Snapshot
	series index.IndexSeries
	err    error
}

func (w *fakeWriter) Write(_ context.Context, series index.IndexSeries, snap index.Snapshot, _ time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.writes++
	w.snap = snap
	w.series = series
	return nil
}

type fakePublisher struct {
	name string
	err  error
	got  []publish.Release
}

func (p *fakePublisher) Name() string { return p.name }

func (p *fakePublisher) Publish(_ context.Context, rel publish.Release) error {
	p.got = append(p.got, rel)
	return p.err
}

func basket() []index.Instrument {
	return []index.Instrument{{Symbol: "A", Name: "Alpha"}, {Symbol: "B", Name: "Bravo"}, {Symbol: "C", Name: "Charlie"}}
}

func series(symbol string, closes ...float64) index.Series {
	s := index.Series{Instrument: index.Instrument{Symbol: symbol}, Interval: "1m"}
	for i, c := range closes {
		s.Points = append(s.Points, index.PricePoint{Time: at(9, i), Open: c, Close: c})
	}
	return s
}

func testRunnerConfig(t *testing.T) RunnerConfig {
	t.Helper()
	session, err := index.NewSession(time.UTC, "09:00", "15:30", 10*time.Minute)
	require.NoError(t, err)
	return RunnerConfig{
		Key:      "TEST",
		Title:    "Test Index",
		Hashtags: []string{"#test"},
		Basket:   basket(),
		Settings: index.Settings{
			Session:         session,
			Policy:          index.PolicyOpenAnchored,
			CoverageRatio:   0.6,
			SmoothingWindow: 3,
		},
	}
}

func healthyInputs() []index.Input {
	return []index.Input{
		{Instrument: basket()[0], Series: series("A", 100, 101, 102)},
		{Instrument: basket()[1], Series: series("B", 200, 200, 202)},
		{Instrument: basket()[2]},
	}
}

func fixedClock() func() time.Time {
	return func() time.Time { return at(9, 5) }
}

func TestNewRunnerValidation(t *testing.T) {
	good := testRunnerConfig(t)

	tests := []struct {
		name   string
		mutate func(*RunnerConfig)
	}{
		{"missing key", func(c *RunnerConfig) { c.Key = "" }},
		{"empty basket", func(c *RunnerConfig) { c.Basket = nil }},
		{"bad coverage", func(c *RunnerConfig) { c.Settings.CoverageRatio = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := good
			tt.mutate(&cfg)
			_, err := NewRunner(cfg, &fakeFetcher{}, &fakeWriter{}, nil)
			require.Error(t, err)
			assert.Equal(t, ErrorTypeValidation, GetErrorType(err))
		})
	}

	_, err := NewRunner(good, nil, &fakeWriter{}, nil)
	assert.Error(t, err)
}

func TestRunSucceeds(t *testing.T) {
	writer := &fakeWriter{}
	pub := &fakePublisher{name: "fake"}
	var completed []*RunSummary

	r, err := NewRunner(testRunnerConfig(t), &fakeFetcher{inputs: healthyInputs()}, writer, nil,
		WithPublisher(publish.NewFanout(nil, pub)), WithClock(fixedClock()))
	require.NoError(t, err)
	r.OnComplete(func(s *RunSummary) { completed = append(completed, s) })

	summary, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStatusSucceeded, summary.Status)
	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, []string{"A", "B"}, summary.Contributors)
	require.Len(t, summary.Excluded, 1)
	assert.Equal(t, "C", summary.Excluded[0].Symbol)
	assert.Equal(t, string(index.KindInstrumentUnavailable), summary.Excluded[0].Kind)
	assert.Equal(t, 3, summary.Points)
	assert.Equal(t, 2, summary.Threshold)
	assert.Empty(t, summary.PublishErrors)

	require.NotNil(t, summary.Snapshot)
	assert.Equal(t, "TEST", summary.Snapshot.Key)
	assert.Equal(t, 1.0, summary.Snapshot.PctIntraday)
	assert.Equal(t, "2025/03/14 09:05", summary.Snapshot.UpdatedAt)
	assert.Equal(t, []string{"A", "B", "C"}, summary.Snapshot.Tickers, "tickers list the full basket")
	assert.Len(t, summary.Series(), 3)

	assert.Equal(t, 1, writer.writes)
	assert.Equal(t, *summary.Snapshot, writer.snap)

	require.Len(t, pub.got, 1)
	assert.Contains(t, pub.got[0].Post, "【TEST | Test Index】")
	assert.Contains(t, pub.got[0].Post, "+1.00%")

	require.Len(t, completed, 1)
	assert.Same(t, summary, completed[0])

	view := r.State().View()
	assert.False(t, view.Running)
	assert.Equal(t, 1, view.Runs)
	assert.Equal(t, 0, view.Failures)
	last, ok := r.State().LastSuccess()
	require.True(t, ok)
	assert.Same(t, summary, last)
}

func TestRunFetchesHistoryOnlyForPriorClose(t *testing.T) {
	fetcher := &fakeFetcher{inputs: healthyInputs()}
	r, err := NewRunner(testRunnerConfig(t), fetcher, &fakeWriter{}, nil)
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.False(t, fetcher.withHistory.Load())

	cfg := testRunnerConfig(t)
	cfg.Settings.Policy = index.PolicyPriorClose
	r, err = NewRunner(cfg, fetcher, &fakeWriter{}, nil)
	require.NoError(t, err)
	_, _ = r.Run(context.Background())
	assert.True(t, fetcher.withHistory.Load())
}

func TestRunNoDataAtAllIsFatal(t *testing.T) {
	writer := &fakeWriter{}
	pub := &fakePublisher{name: "fake"}
	inputs := []index.Input{
		{Instrument: basket()[0], FetchErr: errors.New("timeout")},
		{Instrument: basket()[1]},
		{Instrument: basket()[2]},
	}
	r, err := NewRunner(testRunnerConfig(t), &fakeFetcher{inputs: inputs}, writer, nil,
		WithPublisher(pub))
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, index.ErrNoDataAtAll)
	assert.Equal(t, ErrorTypeFatal, GetErrorType(err))

	require.NotNil(t, summary)
	assert.Equal(t, RunStatusFailed, summary.Status)
	assert.Equal(t, ErrorTypeFatal, summary.ErrorType)
	assert.Len(t, summary.Excluded, 3)
	assert.Nil(t, summary.Snapshot)

	assert.Zero(t, writer.writes, "no artifacts on total failure")
	assert.Empty(t, pub.got)

	view := r.State().View()
	assert.Equal(t, 1, view.Failures)
	_, ok := r.State().LastSuccess()
	assert.False(t, ok)
}

func TestRunWriteFailure(t *testing.T) {
	writer := &fakeWriter{err: errors.New("disk full")}
	r, err := NewRunner(testRunnerConfig(t), &fakeFetcher{inputs: healthyInputs()}, writer, nil)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.Error(t, err)
	var opErr *OperationError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, StepWrite, opErr.Step)
	assert.Equal(t, ErrorTypeExecution, opErr.Type)
	assert.Nil(t, summary.Snapshot)
}

func TestRunPublishFailureIsBestEffort(t *testing.T) {
	ok := &fakePublisher{name: "ok"}
	bad := &fakePublisher{name: "bad", err: errors.New("unreachable")}
	writer := &fakeWriter{}
	r, err := NewRunner(testRunnerConfig(t), &fakeFetcher{inputs: healthyInputs()}, writer, nil,
		WithPublisher(publish.NewFanout(nil, bad, ok)))
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStatusSucceeded, summary.Status)
	require.Len(t, summary.PublishErrors, 1)
	assert.Contains(t, summary.PublishErrors[0], "bad")
	assert.Len(t, ok.got, 1, "later publishers still run")
	assert.Equal(t, 1, writer.writes)
}

func TestRunChart(t *testing.T) {
	pub := &fakePublisher{name: "fake"}
	chart := func(_ context.Context, s index.IndexSeries, _ time.Time) ([]byte, error) {
		return []byte("png"), nil
	}
	r, err := NewRunner(testRunnerConfig(t), &fakeFetcher{inputs: healthyInputs()}, &fakeWriter{}, nil,
		WithPublisher(pub), WithChart(chart))
	require.NoError(t, err)
	_, err = r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.got, 1)
	assert.Equal(t, []byte("png"), pub.got[0].ChartPNG)

	failing := func(context.Context, index.IndexSeries, time.Time) ([]byte, error) {
		return nil, errors.New("no browser")
	}
	pub = &fakePublisher{name: "fake"}
	r, err = NewRunner(testRunnerConfig(t), &fakeFetcher{inputs: healthyInputs()}, &fakeWriter{}, nil,
		WithPublisher(pub), WithChart(failing))
	require.NoError(t, err)
	summary, err := r.Run(context.Background())
	require.NoError(t, err, "chart failures do not fail the run")
	assert.Empty(t, summary.PublishErrors)
	require.Len(t, pub.got, 1)
	assert.Nil(t, pub.got[0].ChartPNG)
}

func TestRunRejectsOverlap(t *testing.T) {
	fetcher := &fakeFetcher{inputs: healthyInputs(), block: make(chan struct{})}
	r, err := NewRunner(testRunnerConfig(t), fetcher, &fakeWriter{}, nil)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return r.State().View().Running }, time.Second, 5*time.Millisecond)

	_, err = r.Run(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(fetcher.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, r.State().View().Runs)
}

func TestRunTimeout(t *testing.T) {
	cfg := testRunnerConfig(t)
	cfg.RunTimeout = 20 * time.Millisecond
	fetcher := &fakeFetcher{inputs: healthyInputs(), block: make(chan struct{})}
	r, err := NewRunner(cfg, fetcher, &fakeWriter{}, nil)
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, ErrorTypeTimeout, GetErrorType(err))
	assert.True(t, IsRetryable(err))
	assert.Equal(t, RunStatusFailed, summary.Status)
}

func TestRunnerReportsCoverageGaps(t *testing.T) {
	inputs := healthyInputs()
	// only A prints at 09:03, below the two-instrument threshold
	inputs[0].Series = series("A", 100, 101, 102, 103)
	logger, logs := testutil.NewTestLogger(t)

	r, err := NewRunner(testRunnerConfig(t), &fakeFetcher{inputs: inputs}, &fakeWriter{}, logger, WithClock(fixedClock()))
	require.NoError(t, err)

	summary, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Threshold)
	assert.Equal(t, 1, summary.CoverageGaps)
	assert.Equal(t, 4, summary.Points)
	assert.True(t, logs.ContainsMessage("coverage gaps forward-filled"))
	assert.True(t, logs.ContainsAttr("gaps", int64(1)))
}
