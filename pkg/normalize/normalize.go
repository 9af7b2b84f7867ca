// Package normalize maps raw per-modality analyzer metrics onto [0,1] risk
// contributions. Every function here is pure.
package normalize

import "math"

func clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	return math.Min(1, math.Max(0, x))
}

// value returns *p, or fallback when p is nil or zero. Analyzers emit 0 for
// metrics they could not measure.
func value(fallback float64, ps ...*float64) float64 {
	for _, p := range ps {
		if p != nil && *p != 0 && !math.IsNaN(*p) {
			return *p
		}
	}
	return fallback
}

// measured returns *p, or fallback when the metric is absent.
func measured(p *float64, fallback float64) float64 {
	if p == nil || math.IsNaN(*p) {
		return fallback
	}
	return *p
}
