// Package index implements the aggregation core of the HINOSEMI intraday index.
//
// The package turns per-instrument intraday price series into one equal-weighted
// percent-change series. Data flows strictly in one direction:
//
//   - align.go: timezone normalization and session-window clipping
//   - baseline.go: per-instrument reference price (open-anchored or prior-close)
//   - normalize.go: percent change against the baseline
//   - aggregate.go: cross-instrument mean with a minimum-coverage rule
//   - smooth.go: centered rolling median followed by a bounded forward fill
//   - build.go: runs the stages above for a whole basket
//
// Nothing in this package performs I/O. Fetching lives in internal/marketdata and
// persistence in internal/exporter.
//
// # Usage Example
//
//	result, err := index.Build(ctx, inputs, index.Settings{
//	    Session:         session,
//	    Policy:          index.PolicyOpenAnchored,
//	    CoverageRatio:   0.6,
//	    SmoothingWindow: 3,
//	})
//	if errors.Is(err, index.ErrNoDataAtAll) {
//	    // abort the run, leave previous artifacts untouched
//	}
package index
