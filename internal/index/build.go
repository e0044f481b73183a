package index

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Settings configures one run of the aggregation core.
type Settings struct {
	Session         Session
	Policy          BaselinePolicy
	CoverageRatio   float64
	SmoothingWindow int
}

// Validate checks the settings before a run.
func (s Settings) Validate() error {
	if s.Session.Location == nil {
		return fmt.Errorf("session location is required")
	}
	if s.Session.Close <= s.Session.Open {
		return fmt.Errorf("session close must be after open")
	}
	switch s.Policy {
	case PolicyOpenAnchored, PolicyPriorClose:
	default:
		return fmt.Errorf("unknown baseline policy %q", s.Policy)
	}
	if s.CoverageRatio <= 0 || s.CoverageRatio > 1 {
		return fmt.Errorf("coverage ratio must be in (0, 1], got %v", s.CoverageRatio)
	}
	if s.SmoothingWindow < 1 {
		return fmt.Errorf("smoothing window must be at least 1, got %d", s.SmoothingWindow)
	}
	return nil
}

// Input is everything fetched for one instrument.
type Input struct {
	Instrument Instrument
	Series     Series
	History    []DailyClose
	// FetchErr records why the fetch produced nothing, if known.
	FetchErr error
}

// Exclusion records an instrument left out of the aggregate.
type Exclusion struct {
	Instrument Instrument
	Reason     error
}

// Result is the output of Build.
type Result struct {
	Series       IndexSeries
	Aggregate    IndexSeries
	Baselines    map[string]Baseline
	Contributors []Instrument
	Excluded     []Exclusion
	Threshold    int
	// Coverage is non-nil when some aggregate timestamps were unresolved.
	Coverage *Error
}

type branch struct {
	baseline   Baseline
	normalized []NormalizedPoint
	err        error
}

// Build runs align, baseline, normalize, aggregate and smooth over all inputs.
//
// Per-instrument stages run concurrently; each goroutine owns its slot of the branch slice.
// Instruments that cannot be normalized are excluded and reported in Result.Excluded.
// ErrNoDataAtAll is returned when no instrument contributes.
func Build(ctx context.Context, inputs []Input, s Settings) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	branches := make([]branch, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	for i := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			branches[i] = prepare(inputs[i], s)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{Baselines: make(map[string]Baseline)}
	normalized := make([][]NormalizedPoint, 0, len(inputs))
	for i, b := range branches {
		in := inputs[i].Instrument
		if b.err != nil {
			result.Excluded = append(result.Excluded, Exclusion{Instrument: in, Reason: b.err})
			continue
		}
		result.Baselines[in.Symbol] = b.baseline
		result.Contributors = append(result.Contributors, in)
		normalized = append(normalized, b.normalized)
	}

	if len(result.Contributors) == 0 {
		return result, NewNoDataError(len(inputs))
	}

	result.Aggregate, result.Threshold = Aggregate(normalized, s.CoverageRatio)
	if gaps := result.Aggregate.Unresolved(); gaps > 0 {
		result.Coverage = NewInsufficientCoverageError(gaps, len(result.Aggregate), result.Threshold)
	}
	result.Series = Smooth(result.Aggregate, s.SmoothingWindow)
	if len(result.Series) == 0 {
		return result, NewNoDataError(len(inputs))
	}
	return result, nil
}

func prepare(in Input, s Settings) branch {
	symbol := in.Instrument.Symbol
	if in.Series.Empty() {
		return branch{err: NewUnavailableError(symbol, "no intraday data", in.FetchErr)}
	}
	series := in.Series
	series.Instrument = in.Instrument

	aligned := Align(series, s.Session)
	if aligned.Empty() {
		return branch{err: NewUnavailableError(symbol, "no points inside the session window", nil)}
	}

	b, err := SelectBaseline(aligned, in.History, s.Policy, s.Session)
	if err != nil {
		return branch{err: err}
	}

	points := Normalize(aligned, b)
	if len(points) == 0 {
		return branch{err: NewUnavailableError(symbol, "normalization produced no points", nil)}
	}
	return branch{baseline: b, normalized: points}
}
