package index

import (
	"fmt"
)

// SelectBaseline resolves the reference price of one aligned series under the given policy.
// history is only consulted by PolicyPriorClose. A non-nil error means the instrument must be
// excluded from the run.
func SelectBaseline(aligned Series, history []DailyClose, policy BaselinePolicy, session Session) (Baseline, error) {
	symbol := aligned.Instrument.Symbol
	if aligned.Empty() {
		return Baseline{}, NewUnavailableError(symbol, "no points inside the session window", nil)
	}

	var (
		b   Baseline
		err error
	)
	switch policy {
	case PolicyOpenAnchored:
		b, err = openAnchored(aligned, session)
	case PolicyPriorClose:
		b, err = priorClose(aligned, history, session)
	default:
		return Baseline{}, fmt.Errorf("unknown baseline policy %q", policy)
	}
	if err != nil {
		return Baseline{}, err
	}
	if !b.Valid() {
		return Baseline{}, NewInvalidBaselineError(symbol, fmt.Sprintf("baseline %v is not a positive finite price", b.Price))
	}
	return b, nil
}

func openAnchored(aligned Series, session Session) (Baseline, error) {
	for _, p := range aligned.Points {
		if !session.InOpeningWindow(p.Time) {
			if p.Time.After(session.OpenAt(p.Time)) {
				break
			}
			continue
		}
		price := p.Close
		if !validPrice(price) {
			price = p.Open
		}
		if !validPrice(price) {
			continue
		}
		return Baseline{Price: price, Anchor: p.Time, Policy: PolicyOpenAnchored}, nil
	}
	return Baseline{}, NewInvalidBaselineError(aligned.Instrument.Symbol,
		fmt.Sprintf("no valid point in the first %s of the session", session.OpeningWindow))
}

func priorClose(aligned Series, history []DailyClose, session Session) (Baseline, error) {
	sessionDay := session.Day(aligned.Points[0].Time)

	var (
		best  DailyClose
		found bool
	)
	for _, d := range history {
		if !validPrice(d.Close) {
			continue
		}
		if !session.Day(d.Date).Before(sessionDay) {
			continue
		}
		if !found || d.Date.After(best.Date) {
			best = d
			found = true
		}
	}
	if !found {
		return Baseline{}, NewInvalidBaselineError(aligned.Instrument.Symbol, "no prior session close in history")
	}
	return Baseline{Price: best.Close, Policy: PolicyPriorClose}, nil
}
