package exporter

import (
	"strconv"
	"time"
)

// PercentDecimals is the precision of the pct column.
const PercentDecimals = 6

// formatPercent formats a percent value with fixed precision.
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', PercentDecimals, 64)
}

// formatTimestamp renders t in loc as RFC3339.
func formatTimestamp(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(time.RFC3339)
}
