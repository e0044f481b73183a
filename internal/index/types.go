package index

import (
	"math"
	"time"
)

// Unit is the fixed unit tag carried by every snapshot.
const Unit = "pct"

// Instrument is one basket constituent.
type Instrument struct {
	Symbol string `json:"symbol" yaml:"symbol" validate:"required"`
	Name   string `json:"name" yaml:"name"`
}

// PricePoint is a single sampling tick for one instrument.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	Close float64   `json:"close"`
}

// Valid reports whether both prices are finite and strictly positive.
func (p PricePoint) Valid() bool {
	return validPrice(p.Open) && validPrice(p.Close)
}

// Series is the time-ordered intraday series of one instrument.
type Series struct {
	Instrument Instrument   `json:"instrument"`
	Interval   string       `json:"interval"`
	Points     []PricePoint `json:"points"`
}

// Empty reports whether the series carries no points.
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

// DailyClose is one session close from the daily history.
type DailyClose struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// BaselinePolicy selects how the per-instrument reference price is resolved.
type BaselinePolicy string

const (
	// PolicyOpenAnchored uses the first valid point of the opening sub-window.
	PolicyOpenAnchored BaselinePolicy = "open"
	// PolicyPriorClose uses the close of the most recent prior session.
	PolicyPriorClose BaselinePolicy = "prior_close"
)

// String returns the configuration spelling of the policy.
func (p BaselinePolicy) String() string {
	return string(p)
}

// NeedsHistory reports whether the policy requires daily close history.
func (p BaselinePolicy) NeedsHistory() bool {
	return p == PolicyPriorClose
}

// Baseline is the reference price of one instrument for the session.
type Baseline struct {
	Price  float64        `json:"price"`
	Anchor time.Time      `json:"anchor"` // zero for prior-close baselines
	Policy BaselinePolicy `json:"policy"`
}

// Valid reports whether the baseline can be divided by.
func (b Baseline) Valid() bool {
	return validPrice(b.Price)
}

// NormalizedPoint is an instrument's percent change at one timestamp.
type NormalizedPoint struct {
	Time    time.Time `json:"time"`
	Percent float64   `json:"percent"`
}

// IndexPoint is the aggregate at one timestamp.
// Resolved is false for gaps left by the coverage rule.
type IndexPoint struct {
	Time         time.Time `json:"time"`
	Percent      float64   `json:"percent"`
	Contributors int       `json:"contributors"`
	Resolved     bool      `json:"resolved"`
}

// IndexSeries is the ordered index output.
type IndexSeries []IndexPoint

// Last returns the final point of the series.
func (s IndexSeries) Last() (IndexPoint, bool) {
	if len(s) == 0 {
		return IndexPoint{}, false
	}
	return s[len(s)-1], true
}

// Unresolved counts points that fell below the coverage threshold.
func (s IndexSeries) Unresolved() int {
	n := 0
	for _, p := range s {
		if !p.Resolved {
			n++
		}
	}
	return n
}

// Snapshot is the compact summary consumed by the dashboard and the post generator.
type Snapshot struct {
	Key         string   `json:"key"`
	PctIntraday float64  `json:"pct_intraday"`
	UpdatedAt   string   `json:"updated_at"`
	Unit        string   `json:"unit"`
	Tickers     []string `json:"tickers"`
}

func validPrice(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
