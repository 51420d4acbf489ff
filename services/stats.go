package services

import (
	"math"
	"sort"
)

// minQuantileSamples is the smallest sample size for which p25/p75 are
// reported. Below it the quantiles stay undefined rather than fabricated.
const minQuantileSamples = 4

func mean(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	var total float64
	for _, v := range vals {
		total += v
	}
	return floatPtr(round2(total / float64(len(vals))))
}

func median(vals []float64) *float64 {
	n := len(vals)
	if n == 0 {
		return nil
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return floatPtr(sorted[n/2])
	}
	return floatPtr((sorted[n/2-1] + sorted[n/2]) / 2)
}

// quantile uses linear interpolation over sorted values: the q-th quantile
// sits at position (n-1)·q, interpolated between its two neighbors. This is
// the one fixed rule used everywhere quantiles are reported.
func quantile(vals []float64, q float64) *float64 {
	n := len(vals)
	if n < minQuantileSamples {
		return nil
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)

	pos := float64(n-1) * q
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return floatPtr(round2(sorted[lo]))
	}
	frac := pos - float64(lo)
	return floatPtr(round2(sorted[lo] + (sorted[hi]-sorted[lo])*frac))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func floatPtr(v float64) *float64 { return &v }
