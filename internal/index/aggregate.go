package index

import (
	"math"
	"sort"
	"time"
)

// DefaultCoverageRatio is the minimum share of contributing instruments a timestamp needs.
const DefaultCoverageRatio = 0.6

// CoverageThreshold returns ceil(ratio * contributing), at least 1.
func CoverageThreshold(contributing int, ratio float64) int {
	if contributing <= 0 {
		return 0
	}
	// Guard against 0.6*5 landing a hair above 3.
	need := int(math.Ceil(ratio*float64(contributing) - 1e-9))
	if need < 1 {
		need = 1
	}
	if need > contributing {
		need = contributing
	}
	return need
}

type bucket struct {
	t   time.Time
	sum float64
	n   int
}

// Aggregate merges normalized series into one gapped index series.
//
// Every timestamp present in any series is kept. The value is the arithmetic mean of the
// instruments that carry that exact timestamp; a timestamp whose contributor count is below
// the coverage threshold is returned unresolved. The second return value is the threshold used.
func Aggregate(series [][]NormalizedPoint, coverageRatio float64) (IndexSeries, int) {
	contributing := 0
	buckets := make(map[int64]*bucket)
	for _, s := range series {
		if len(s) == 0 {
			continue
		}
		contributing++
		for _, p := range s {
			if math.IsNaN(p.Percent) || math.IsInf(p.Percent, 0) {
				continue
			}
			key := p.Time.UnixNano()
			b, ok := buckets[key]
			if !ok {
				b = &bucket{t: p.Time}
				buckets[key] = b
			}
			b.sum += p.Percent
			b.n++
		}
	}

	threshold := CoverageThreshold(contributing, coverageRatio)
	if len(buckets) == 0 {
		return nil, threshold
	}

	keys := make([]int64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make(IndexSeries, 0, len(keys))
	for _, k := range keys {
		b := buckets[k]
		p := IndexPoint{Time: b.t, Contributors: b.n}
		if b.n >= threshold {
			p.Percent = b.sum / float64(b.n)
			p.Resolved = true
		}
		out = append(out, p)
	}
	return out, threshold
}
