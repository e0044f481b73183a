package index

import (
	"sort"
)

// Align re-expresses a series in the session timezone and clips it to the session window.
//
// Invalid points are dropped, duplicate timestamps collapse to the last observation,
// and only the latest session day present survives. Empty input yields an empty series.
func Align(series Series, session Session) Series {
	out := Series{Instrument: series.Instrument, Interval: series.Interval}
	if len(series.Points) == 0 {
		return out
	}

	kept := make([]PricePoint, 0, len(series.Points))
	for _, p := range series.Points {
		if !p.Valid() || !session.Contains(p.Time) {
			continue
		}
		p.Time = session.Local(p.Time)
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return out
	}

	// Stable so that "last observation wins" follows input order.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Time.Before(kept[j].Time)
	})

	latest := session.Day(kept[len(kept)-1].Time)
	points := make([]PricePoint, 0, len(kept))
	for _, p := range kept {
		if !session.Day(p.Time).Equal(latest) {
			continue
		}
		if n := len(points); n > 0 && points[n-1].Time.Equal(p.Time) {
			points[n-1] = p
			continue
		}
		points = append(points, p)
	}

	out.Points = points
	return out
}
