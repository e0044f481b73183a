// Package publish delivers finished runs to downstream consumers.
//
// Publishers are best-effort: a failing publisher never fails the run that produced the
// release. Each publisher is enabled independently through configuration.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"hinosemi/internal/index"
)

// Release is what a run hands to publishers.
type Release struct {
	Snapshot index.Snapshot
	Series   index.IndexSeries
	Post     string
	ChartPNG []byte
}

// Publisher delivers a release to one destination.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, rel Release) error
}

// Error reports which publisher failed.
type Error struct {
	Publisher string
	Err       error
}

func (e *Error) Error() string { return fmt.Sprintf("publish %s: %v", e.Publisher, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

// Fanout runs every publisher in order and collects failures.
type Fanout struct {
	publishers []Publisher
	logger     *slog.Logger
}

// NewFanout wraps publishers.
func NewFanout(logger *slog.Logger, publishers ...Publisher) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{publishers: publishers, logger: logger.With(slog.String("component", "publish"))}
}

// Len returns the number of configured publishers.
func (f *Fanout) Len() int { return len(f.publishers) }

// Publish delivers rel to every publisher. The returned error joins one *Error per failure.
func (f *Fanout) Publish(ctx context.Context, rel Release) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, rel); err != nil {
			f.logger.WarnContext(ctx, "publisher failed",
				slog.String("publisher", p.Name()),
				slog.String("error", err.Error()))
			errs = append(errs, &Error{Publisher: p.Name(), Err: err})
			continue
		}
		f.logger.InfoContext(ctx, "published", slog.String("publisher", p.Name()))
	}
	return errors.Join(errs...)
}

// Failed extracts the per-publisher errors from an error returned by Fanout.Publish.
func Failed(err error) []*Error {
	if err == nil {
		return nil
	}
	var out []*Error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			var pe *Error
			if errors.As(e, &pe) {
				out = append(out, pe)
			}
		}
		return out
	}
	var pe *Error
	if errors.As(err, &pe) {
		out = append(out, pe)
	}
	return out
}
