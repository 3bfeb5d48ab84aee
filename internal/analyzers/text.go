package analyzers

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
