package index

import (
	"sort"
)

// DefaultSmoothingWindow is the centered rolling-median width.
const DefaultSmoothingWindow = 3

// Smooth denoises a gapped aggregate and closes interior gaps.
//
// A centered rolling median (min periods 1, unresolved neighbours ignored) is applied first,
// then any remaining gap is forward-filled from the last resolved value. Points before the
// first resolved aggregate are dropped rather than synthesized. Every returned point is resolved.
func Smooth(gapped IndexSeries, window int) IndexSeries {
	first := -1
	for i, p := range gapped {
		if p.Resolved {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}
	if window < 1 {
		window = 1
	}
	if window%2 == 0 {
		window++
	}
	half := window / 2

	src := gapped[first:]
	out := make(IndexSeries, len(src))
	vals := make([]float64, 0, window)
	for i := range src {
		vals = vals[:0]
		for j := i - half; j <= i+half; j++ {
			if j < 0 || j >= len(src) || !src[j].Resolved {
				continue
			}
			vals = append(vals, src[j].Percent)
		}
		out[i] = src[i]
		if len(vals) > 0 {
			out[i].Percent = median(vals)
			out[i].Resolved = true
		}
	}

	// out[0] is resolved: src[0] is the first resolved aggregate.
	last := out[0].Percent
	for i := range out {
		if out[i].Resolved {
			last = out[i].Percent
			continue
		}
		out[i].Percent = last
		out[i].Resolved = true
	}
	return out
}

func median(vals []float64) float64 {
	s := append([]float64(nil), vals...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}
