package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"hinosemi/internal/announce"
	"hinosemi/internal/exporter"
	"hinosemi/internal/index"
	"hinosemi/internal/infrastructure"
	"hinosemi/internal/publish"
)

// Fetcher retrieves raw inputs for the basket.
type Fetcher interface {
	FetchAll(ctx context.Context, instruments []index.Instrument, withHistory bool) ([]index.Input, error)
}

// ArtifactWriter persists the run artifacts.
type ArtifactWriter interface {
	Write(ctx context.Context, series index.IndexSeries, snap index.Snapshot, generatedAt time.Time) error
}

// Publisher delivers a release downstream.
type Publisher interface {
	Publish(ctx context.Context, rel publish.Release) error
}

// ChartFunc renders a PNG chart of a finished series.
type ChartFunc func(ctx context.Context, series index.IndexSeries, generatedAt time.Time) ([]byte, error)

// RunnerConfig holds the index definition a runner executes.
type RunnerConfig struct {
	Key        string
	Title      string
	Hashtags   []string
	Basket     []index.Instrument
	Settings   index.Settings
	RunTimeout time.Duration
}

// Runner executes pipeline runs.
type Runner struct {
	cfg       RunnerConfig
	fetcher   Fetcher
	writer    ArtifactWriter
	publisher Publisher
	chart     ChartFunc
	state     *State
	tracer    *runTracer
	logger    *slog.Logger
	now       func() time.Time
	listeners []func(*RunSummary)
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithPublisher sets the downstream publisher.
func WithPublisher(p Publisher) RunnerOption {
	return func(r *Runner) { r.publisher = p }
}

// WithChart renders a chart for publishers.
func WithChart(fn ChartFunc) RunnerOption {
	return func(r *Runner) { r.chart = fn }
}

// WithMetrics records run metrics.
func WithMetrics(m *infrastructure.IndexMetrics) RunnerOption {
	return func(r *Runner) { r.tracer = newRunTracer(m) }
}

// WithState shares run state with other components.
func WithState(s *State) RunnerOption {
	return func(r *Runner) { r.state = s }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a runner.
func NewRunner(cfg RunnerConfig, fetcher Fetcher, writer ArtifactWriter, logger *slog.Logger, opts ...RunnerOption) (*Runner, error) {
	if cfg.Key == "" {
		return nil, NewValidationError("", "index key is required")
	}
	if len(cfg.Basket) == 0 {
		return nil, NewValidationError("", "basket is empty")
	}
	if err := cfg.Settings.Validate(); err != nil {
		return nil, NewValidationError("", err.Error())
	}
	if fetcher == nil || writer == nil {
		return nil, NewValidationError("", "fetcher and writer are required")
	}
	r := &Runner{
		cfg:     cfg,
		fetcher: fetcher,
		writer:  writer,
		state:   NewState(),
		tracer:  newRunTracer(nil),
		logger:  infrastructure.WithComponent(logger, "runner"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// State returns the runner's state tracker.
func (r *Runner) State() *State { return r.state }

// OnComplete registers a callback invoked after every run.
func (r *Runner) OnComplete(fn func(*RunSummary)) {
	r.listeners = append(r.listeners, fn)
}

// Symbols returns the basket symbols in canonical order.
func (r *Runner) Symbols() []string {
	out := make([]string, len(r.cfg.Basket))
	for i, inst := range r.cfg.Basket {
		out[i] = inst.Symbol
	}
	return out
}

// Run executes one pipeline run. The summary is returned for failed runs as well.
func (r *Runner) Run(ctx context.Context) (*RunSummary, error) {
	runID := infrastructure.GenerateTraceID()
	if !r.state.Begin(runID) {
		return nil, ErrRunInProgress
	}

	if r.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.RunTimeout)
		defer cancel()
	}
	ctx = infrastructure.WithTraceID(ctx, runID)
	ctx, span := r.tracer.startRun(ctx, runID, r.cfg.Key)

	summary := &RunSummary{ID: runID, Status: RunStatusRunning, StartedAt: r.now()}
	r.logger.InfoContext(ctx, "run started", slog.Int("instruments", len(r.cfg.Basket)))

	err := r.execute(ctx, summary)

	summary.FinishedAt = r.now()
	if err != nil {
		opErr := WrapError(err, "")
		summary.Status = RunStatusFailed
		summary.Error = opErr.Error()
		summary.ErrorType = opErr.Type
		r.logger.ErrorContext(ctx, "run failed",
			slog.String("error", summary.Error),
			slog.String("error_type", string(opErr.Type)),
			slog.Duration("duration", summary.Duration()))
		err = opErr
	} else {
		summary.Status = RunStatusSucceeded
		r.logger.InfoContext(ctx, "run completed",
			slog.Float64("pct_intraday", summary.Snapshot.PctIntraday),
			slog.Int("points", summary.Points),
			slog.Int("contributors", len(summary.Contributors)),
			slog.Int("excluded", len(summary.Excluded)),
			slog.Duration("duration", summary.Duration()))
	}

	r.tracer.finishRun(ctx, span, summary)
	r.state.Finish(summary)
	for _, fn := range r.listeners {
		fn(summary)
	}
	return summary, err
}

func (r *Runner) execute(ctx context.Context, summary *RunSummary) error {
	var inputs []index.Input
	err := r.tracer.step(ctx, StepFetch, func(ctx context.Context) error {
		var err error
		inputs, err = r.fetcher.FetchAll(ctx, r.cfg.Basket, r.cfg.Settings.Policy.NeedsHistory())
		if err != nil {
			return stepError(err, StepFetch)
		}
		for _, in := range inputs {
			if in.Series.Empty() {
				r.tracer.metrics.RecordFetchFailure(ctx, in.Instrument.Symbol)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var result *index.Result
	err = r.tracer.step(ctx, StepBuild, func(ctx context.Context) error {
		var err error
		result, err = index.Build(ctx, inputs, r.cfg.Settings)
		if result != nil {
			r.summarize(ctx, summary, result)
		}
		if errors.Is(err, index.ErrNoDataAtAll) {
			return NewFatalError(StepBuild, "no instrument produced usable data", err)
		}
		return stepError(err, StepBuild)
	})
	if err != nil {
		return err
	}

	generatedAt := r.now()
	snap, err := exporter.NewSnapshot(r.cfg.Key, result.Series, r.Symbols(), generatedAt, r.cfg.Settings.Session.Location)
	if err != nil {
		return NewFatalError(StepBuild, "cannot summarize series", err)
	}

	err = r.tracer.step(ctx, StepWrite, func(ctx context.Context) error {
		return stepError(r.writer.Write(ctx, result.Series, snap, generatedAt), StepWrite)
	})
	if err != nil {
		return err
	}
	summary.Snapshot = &snap
	summary.series = result.Series

	if r.publisher != nil {
		_ = r.tracer.step(ctx, StepPublish, func(ctx context.Context) error {
			return r.publish(ctx, summary, result.Series, snap, generatedAt)
		})
	}
	return nil
}

func (r *Runner) summarize(ctx context.Context, summary *RunSummary, result *index.Result) {
	summary.Points = len(result.Series)
	summary.Threshold = result.Threshold
	summary.Contributors = make([]string, len(result.Contributors))
	for i, inst := range result.Contributors {
		summary.Contributors[i] = inst.Symbol
	}
	summary.Excluded = make([]ExclusionSummary, len(result.Excluded))
	for i, ex := range result.Excluded {
		kind := ""
		var ie *index.Error
		if errors.As(ex.Reason, &ie) {
			kind = string(ie.Kind)
		}
		summary.Excluded[i] = ExclusionSummary{Symbol: ex.Instrument.Symbol, Kind: kind, Reason: ex.Reason.Error()}
		r.logger.WarnContext(ctx, "instrument excluded",
			slog.String("symbol", ex.Instrument.Symbol),
			slog.String("reason", ex.Reason.Error()))
	}
	if result.Coverage != nil {
		summary.CoverageGaps = result.Aggregate.Unresolved()
		infrastructure.WithError(r.logger, result.Coverage).WarnContext(ctx, "coverage gaps forward-filled",
			slog.Int("gaps", summary.CoverageGaps),
			slog.Int("threshold", result.Threshold))
	}
}

func (r *Runner) publish(ctx context.Context, summary *RunSummary, series index.IndexSeries, snap index.Snapshot, generatedAt time.Time) error {
	post, err := announce.Render(announce.FromSnapshot(snap, r.cfg.Title, r.cfg.Hashtags))
	if err != nil {
		return err
	}
	rel := publish.Release{Snapshot: snap, Series: series, Post: post}

	if r.chart != nil {
		png, err := r.chart(ctx, series, generatedAt)
		if err != nil {
			infrastructure.WithError(r.logger, err).WarnContext(ctx, "chart rendering failed")
		} else {
			rel.ChartPNG = png
		}
	}

	err = r.publisher.Publish(ctx, rel)
	if err == nil {
		return nil
	}
	failed := publish.Failed(err)
	for _, pe := range failed {
		r.tracer.metrics.RecordPublishError(ctx, pe.Publisher)
		summary.PublishErrors = append(summary.PublishErrors, pe.Error())
	}
	if len(failed) == 0 {
		summary.PublishErrors = append(summary.PublishErrors, err.Error())
	}
	return NewPublishError(fmt.Errorf("%d publisher(s) failed: %w", len(summary.PublishErrors), err))
}

// stepError is WrapError that keeps a nil error nil as an interface value.
func stepError(err error, step string) error {
	if err == nil {
		return nil
	}
	return WrapError(err, step)
}
