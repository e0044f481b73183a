package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var jst = time.FixedZone("JST", 9*60*60)

func testSession(t *testing.T) Session {
	t.Helper()
	s, err := NewSession(jst, "09:00", "15:30", 10*time.Minute)
	require.NoError(t, err)
	return s
}

// at returns 2025-01-06 hh:mm JST.
func at(hh, mm int) time.Time {
	return time.Date(2025, 1, 6, hh, mm, 0, 0, jst)
}

func series(symbol string, points ...PricePoint) Series {
	return Series{Instrument: Instrument{Symbol: symbol}, Interval: "5m", Points: points}
}

func pp(t time.Time, open, close float64) PricePoint {
	return PricePoint{Time: t, Open: open, Close: close}
}
