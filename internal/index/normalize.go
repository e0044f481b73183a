package index

// Normalize converts an aligned series into percent change against its baseline.
// An invalid baseline yields nil; such instruments contribute nothing.
func Normalize(aligned Series, b Baseline) []NormalizedPoint {
	if !b.Valid() || aligned.Empty() {
		return nil
	}
	out := make([]NormalizedPoint, 0, len(aligned.Points))
	for _, p := range aligned.Points {
		out = append(out, NormalizedPoint{
			Time:    p.Time,
			Percent: PercentChange(p.Close, b.Price),
		})
	}
	return out
}

// PercentChange returns (price/base - 1) * 100.
func PercentChange(price, base float64) float64 {
	return (price/base - 1.0) * 100.0
}
