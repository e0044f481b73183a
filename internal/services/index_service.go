package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"hinosemi/internal/chart"
	"hinosemi/internal/exporter"
	"hinosemi/internal/index"
	"hinosemi/internal/operations"
)

// Runner is the part of operations.Runner the service needs.
type Runner interface {
	Run(ctx context.Context) (*operations.RunSummary, error)
	State() *operations.State
}

// IndexServiceConfig holds the artifact locations and presentation settings.
type IndexServiceConfig struct {
	Key          string
	SnapshotPath string
	SeriesPath   string
	Location     *time.Location
	Chart        chart.Options
	AllowRefresh bool
}

// IndexService serves snapshots, series and run state.
type IndexService struct {
	cfg    IndexServiceConfig
	runner Runner
	logger *slog.Logger
}

// NewIndexService creates the service. runner may be nil for a read-only dashboard.
func NewIndexService(cfg IndexServiceConfig, runner Runner, logger *slog.Logger) *IndexService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &IndexService{
		cfg:    cfg,
		runner: runner,
		logger: logger.With(slog.String("service", "index")),
	}
}

func (s *IndexService) lastSuccess() (*operations.RunSummary, bool) {
	if s.runner == nil {
		return nil, false
	}
	return s.runner.State().LastSuccess()
}

// Snapshot returns the latest snapshot.
func (s *IndexService) Snapshot(ctx context.Context) (index.Snapshot, error) {
	if last, ok := s.lastSuccess(); ok && last.Snapshot != nil {
		return *last.Snapshot, nil
	}
	snap, err := exporter.LoadSnapshot(s.cfg.SnapshotPath)
	if errors.Is(err, fs.ErrNotExist) {
		return index.Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to load snapshot",
			slog.String("path", s.cfg.SnapshotPath),
			slog.String("error", err.Error()))
		return index.Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// Series returns the latest smoothed series, restricted to points at or after since when
// it is non-zero and to the last limit points when limit is positive.
func (s *IndexService) Series(ctx context.Context, since time.Time, limit int) (index.IndexSeries, error) {
	var series index.IndexSeries
	if last, ok := s.lastSuccess(); ok {
		series = last.Series()
	} else {
		loaded, err := exporter.LoadSeriesCSV(s.cfg.SeriesPath)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		if err != nil {
			s.logger.ErrorContext(ctx, "Failed to load series",
				slog.String("path", s.cfg.SeriesPath),
				slog.String("error", err.Error()))
			return nil, fmt.Errorf("load series: %w", err)
		}
		series = loaded
	}

	if !since.IsZero() {
		start := len(series)
		for i, p := range series {
			if !p.Time.Before(since) {
				start = i
				break
			}
		}
		series = series[start:]
	}
	if limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}
	return series, nil
}

// Chart renders the latest series as SVG.
func (s *IndexService) Chart(ctx context.Context) ([]byte, error) {
	series, err := s.Series(ctx, time.Time{}, 0)
	if err != nil {
		return nil, err
	}
	last, ok := series.Last()
	if !ok {
		return nil, ErrNoSnapshot
	}
	opts := s.cfg.Chart
	opts.Location = s.cfg.Location
	opts.Title = chart.Title(s.cfg.Key, last.Time, s.cfg.Location)
	return chart.RenderSVG(series, opts)
}

// Status returns the run state.
func (s *IndexService) Status() operations.StateView {
	if s.runner == nil {
		return operations.StateView{}
	}
	return s.runner.State().View()
}

// Refresh triggers a run and waits for it.
func (s *IndexService) Refresh(ctx context.Context) (*operations.RunSummary, error) {
	if !s.cfg.AllowRefresh || s.runner == nil {
		return nil, ErrRefreshDisabled
	}
	s.logger.InfoContext(ctx, "Manual refresh requested")
	return s.runner.Run(ctx)
}
