package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hinosemi/internal/chart"
	"hinosemi/internal/exporter"
	"hinosemi/internal/index"
	"hinosemi/internal/operations"
)

type fakeRunner struct {
	state *operations.State
	calls int
	err   error
}

func newFakeRunner() *fakeRunner { return &fakeRunner{state: operations.NewState()} }

func (f *fakeRunner) State() *operations.State { return f.state }

func (f *fakeRunner) Run(context.Context) (*operations.RunSummary, error) {
	f.calls++
	summary := &operations.RunSummary{ID: "run", Status: operations.RunStatusSucceeded}
	if f.err != nil {
		summary.Status = operations.RunStatusFailed
	}
	f.state.Begin(summary.ID)
	f.state.Finish(summary)
	return summary, f.err
}

func testSeries() index.IndexSeries {
	base := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	return index.IndexSeries{
		{Time: base, Percent: 0.1, Resolved: true},
		{Time: base.Add(time.Minute), Percent: 0.2, Resolved: true},
		{Time: base.Add(2 * time.Minute), Percent: -0.3, Resolved: true},
	}
}

func writeArtifacts(t *testing.T, dir string) IndexServiceConfig {
	t.Helper()
	cfg := IndexServiceConfig{
		Key:          "HINOSEMI",
		SnapshotPath: filepath.Join(dir, "hinosemi_stats.json"),
		SeriesPath:   filepath.Join(dir, "hinosemi_intraday.csv"),
		Location:     time.UTC,
		Chart:        chart.DefaultOptions(),
	}

	f, err := os.Create(cfg.SeriesPath)
	require.NoError(t, err)
	require.NoError(t, exporter.WriteSeriesCSV(f, testSeries(), time.UTC))
	require.NoError(t, f.Close())

	snap, err := exporter.NewSnapshot("HINOSEMI", testSeries(), []string{"A", "B"}, time.Date(2025, 3, 14, 0, 5, 0, 0, time.UTC), time.UTC)
	require.NoError(t, err)
	f, err = os.Create(cfg.SnapshotPath)
	require.NoError(t, err)
	require.NoError(t, exporter.WriteSnapshot(f, snap))
	require.NoError(t, f.Close())
	return cfg
}

func TestIndexServiceFallsBackToDisk(t *testing.T) {
	svc := NewIndexService(writeArtifacts(t, t.TempDir()), newFakeRunner(), nil)

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -0.3, snap.PctIntraday)
	assert.Equal(t, "2025/03/14 00:05", snap.UpdatedAt)

	series, err := svc.Series(context.Background(), time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, series, 3)
}

func TestIndexServiceNoArtifacts(t *testing.T) {
	dir := t.TempDir()
	svc := NewIndexService(IndexServiceConfig{
		SnapshotPath: filepath.Join(dir, "missing.json"),
		SeriesPath:   filepath.Join(dir, "missing.csv"),
	}, nil, nil)

	_, err := svc.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
	_, err = svc.Series(context.Background(), time.Time{}, 0)
	assert.ErrorIs(t, err, ErrNoSnapshot)
	_, err = svc.Chart(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.Equal(t, operations.StateView{}, svc.Status())
}

func TestIndexServiceSeriesFilters(t *testing.T) {
	svc := NewIndexService(writeArtifacts(t, t.TempDir()), nil, nil)
	base := testSeries()[0].Time

	tests := []struct {
		name  string
		since time.Time
		limit int
		want  []float64
	}{
		{"all", time.Time{}, 0, []float64{0.1, 0.2, -0.3}},
		{"since", base.Add(time.Minute), 0, []float64{0.2, -0.3}},
		{"limit", time.Time{}, 1, []float64{-0.3}},
		{"since after end", base.Add(time.Hour), 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			series, err := svc.Series(context.Background(), tt.since, tt.limit)
			require.NoError(t, err)
			var got []float64
			for _, p := range series {
				got = append(got, p.Percent)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIndexServiceChart(t *testing.T) {
	svc := NewIndexService(writeArtifacts(t, t.TempDir()), nil, nil)
	svg, err := svc.Chart(context.Background())
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, string(svg), "HINOSEMI Intraday Snapshot (2025/03/14 UTC)")
}

func TestIndexServiceRefresh(t *testing.T) {
	runner := newFakeRunner()
	cfg := writeArtifacts(t, t.TempDir())

	_, err := NewIndexService(cfg, runner, nil).Refresh(context.Background())
	assert.ErrorIs(t, err, ErrRefreshDisabled)
	assert.Zero(t, runner.calls)

	cfg.AllowRefresh = true
	svc := NewIndexService(cfg, runner, nil)
	summary, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, operations.RunStatusSucceeded, summary.Status)
	assert.Equal(t, 1, svc.Status().Runs)
}

func TestHealthService(t *testing.T) {
	dir := t.TempDir()
	empty := NewIndexService(IndexServiceConfig{
		SnapshotPath: filepath.Join(dir, "missing.json"),
		SeriesPath:   filepath.Join(dir, "missing.csv"),
	}, newFakeRunner(), nil)

	hs := NewHealthService("1.0.0", empty, nil)
	assert.Equal(t, "alive", hs.LivenessCheck(context.Background()).Status)

	status, ready := hs.ReadinessCheck(context.Background())
	assert.False(t, ready)
	assert.Equal(t, "not_ready", status.Status)

	hs = NewHealthService("1.0.0", NewIndexService(writeArtifacts(t, dir), newFakeRunner(), nil), nil)
	status, ready = hs.ReadinessCheck(context.Background())
	assert.True(t, ready)
	assert.Equal(t, "ready", status.Status)
	assert.Contains(t, status.Services, "runner")
}
