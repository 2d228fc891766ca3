// Package stats holds the small statistical kernel shared by the HTTP
// benchmark summarizer and the micro-benchmark round aggregator.
//
// Two percentile conventions coexist on purpose. Latency percentiles use
// nearest-rank with a ceiling (PercentileNearestRank); scenario wall-time
// summaries in the matrix runner use linear interpolation
// (PercentileInterpolated). They produce different values for the same
// input and must not be unified: swapping one for the other silently
// changes reported P95/P99 and can mask regressions.
package stats

import (
	"math"
	"slices"
)

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

// Median returns the standard median: the middle element for odd n, the
// mean of the two middle elements for even n. 0 for an empty slice.
func Median(vals []float64) float64 {
	n := len(vals)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(vals)
	slices.Sort(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// TrimmedMean drops exactly one minimum and one maximum sample when n > 2,
// reducing outlier sensitivity; for n <= 2 it equals the plain mean.
func TrimmedMean(vals []float64) float64 {
	if len(vals) <= 2 {
		return Mean(vals)
	}
	sorted := slices.Clone(vals)
	slices.Sort(sorted)
	return Mean(sorted[1 : len(sorted)-1])
}

// StdDev returns the population standard deviation, 0 when n <= 1.
func StdDev(vals []float64) float64 {
	n := len(vals)
	if n <= 1 {
		return 0
	}
	mean := Mean(vals)
	var variance float64
	for _, v := range vals {
		diff := v - mean
		variance += diff * diff
	}
	variance /= float64(n)
	return math.Sqrt(variance)
}

// CV returns the coefficient of variation (stddev / mean), a dimensionless
// dispersion measure. 0 when n <= 1 or the mean is 0.
func CV(vals []float64) float64 {
	if len(vals) <= 1 {
		return 0
	}
	mean := Mean(vals)
	if mean == 0 {
		return 0
	}
	return StdDev(vals) / mean
}

// NearestRankIndex returns the nearest-rank-with-ceiling index for
// percentile p (0..1) over n samples: clamp(ceil(n*p)-1, 0, n-1).
func NearestRankIndex(n int, p float64) int {
	if n <= 1 || p <= 0 {
		return 0
	}
	if p >= 1 {
		return n - 1
	}
	idx := int(math.Ceil(float64(n)*p)) - 1
	if idx < 0 {
		return 0
	}
	if idx >= n {
		return n - 1
	}
	return idx
}

// PercentileNearestRank returns the p-th percentile (p in 0..1) of sorted,
// which must be ascending. Nearest-rank-ceiling convention; used for
// request latency percentiles. 0 for an empty slice.
func PercentileNearestRank(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[NearestRankIndex(len(sorted), p)]
}

// PercentileInterpolated returns the p-th percentile (p in 0..1) of sorted,
// which must be ascending, interpolating linearly between adjacent ranks.
// Used only for scenario wall-time summaries; not interchangeable with
// PercentileNearestRank. 0 for an empty slice.
func PercentileInterpolated(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 || p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}
	rank := p * float64(n-1)
	lower := int(math.Floor(rank))
	frac := rank - float64(lower)
	if lower+1 >= n {
		return sorted[n-1]
	}
	return sorted[lower] + frac*(sorted[lower+1]-sorted[lower])
}
