package operations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"hinosemi/internal/infrastructure"
)

// RunFunc executes one scheduled run.
type RunFunc func(ctx context.Context) (*RunSummary, error)

// Scheduler triggers runs on a cron schedule in the reference timezone.
// Overlapping triggers are skipped.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	spec    string
	run     RunFunc
	timeout time.Duration
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler parses spec and prepares the schedule. Specs accept an optional leading
// seconds field and descriptors such as @every 5m.
func NewScheduler(spec string, loc *time.Location, timeout time.Duration, run RunFunc, logger *slog.Logger) (*Scheduler, error) {
	if run == nil {
		return nil, NewValidationError("", "run function is required")
	}
	if loc == nil {
		loc = time.Local
	}
	logger = infrastructure.WithComponent(logger, "scheduler")

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		spec:    spec,
		run:     run,
		timeout: timeout,
		logger:  logger,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithParser(parser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	id, err := s.cron.AddFunc(spec, s.trigger)
	if err != nil {
		s.cancel()
		return nil, NewValidationError("", fmt.Sprintf("invalid schedule %q: %v", spec, err))
	}
	s.entry = id
	return s, nil
}

func (s *Scheduler) trigger() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	summary, err := s.run(ctx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		s.logger.Warn("scheduled run skipped, another run is in progress")
	case err != nil:
		logger := infrastructure.WithError(s.logger, err)
		if summary != nil {
			logger = logger.With(slog.String("run_id", summary.ID))
		}
		logger.Error("scheduled run failed")
	default:
		s.logger.Debug("scheduled run finished", slog.String("run_id", summary.ID))
	}
}

// Start begins triggering runs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.String("spec", s.spec),
		slog.Time("next", s.Next()))
}

// Stop halts the schedule, cancels an in-flight run and waits for it to return or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next activation time, or zero if the scheduler is not running.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Spec returns the schedule expression.
func (s *Scheduler) Spec() string { return s.spec }

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)...)
}
