package httpbench

import (
	"slices"
	"sort"
	"time"

	"github.com/perfgate/perfgate/internal/stats"
)

// LatencyStats holds latency metrics in milliseconds. Percentiles use the
// nearest-rank-ceiling convention; min <= p50 <= p95 <= p99 <= max holds
// for any non-empty input, and every field is 0 for an empty one.
type LatencyStats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Metrics is the reduced view of one target run.
type Metrics struct {
	Requests             int          `json:"requests"`
	Success              int          `json:"success"`
	Failures             int          `json:"failures"`
	ErrorRate            float64      `json:"errorRate"`
	ThroughputRps        float64      `json:"throughputRps"`
	SuccessThroughputRps float64      `json:"successThroughputRps"`
	Latency              LatencyStats `json:"latency"`
}

// Result is the per-target benchmark report entry.
type Result struct {
	Target  string  `json:"target"`
	Metrics Metrics `json:"metrics"`
}

// RankingItem is the ordered view over a set of results; Rank is the
// 1-based position after tie-breaking.
type RankingItem struct {
	Rank                 int     `json:"rank"`
	Target               string  `json:"target"`
	SuccessThroughputRps float64 `json:"successThroughputRps"`
	ErrorRate            float64 `json:"errorRate"`
	ThroughputRps        float64 `json:"throughputRps"`
	P95Ms                float64 `json:"p95Ms"`
}

// ComputeLatencyStats reduces latency samples (milliseconds) into
// percentile statistics.
func ComputeLatencyStats(latenciesMs []float64) LatencyStats {
	if len(latenciesMs) == 0 {
		return LatencyStats{}
	}
	sorted := slices.Clone(latenciesMs)
	slices.Sort(sorted)
	return LatencyStats{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: stats.Mean(sorted),
		P50: stats.PercentileNearestRank(sorted, 0.50),
		P95: stats.PercentileNearestRank(sorted, 0.95),
		P99: stats.PercentileNearestRank(sorted, 0.99),
	}
}

// Summarize reduces a raw target run into its report entry.
func Summarize(raw RawResult) Result {
	requests := raw.Success + raw.Failure
	latenciesMs := make([]float64, len(raw.Latencies))
	for i, d := range raw.Latencies {
		latenciesMs[i] = float64(d) / float64(time.Millisecond)
	}

	m := Metrics{
		Requests: requests,
		Success:  raw.Success,
		Failures: raw.Failure,
		Latency:  ComputeLatencyStats(latenciesMs),
	}
	if requests > 0 {
		m.ErrorRate = float64(raw.Failure) / float64(requests)
	}
	totalSec := raw.TotalDuration.Seconds()
	if totalSec > 0 {
		m.ThroughputRps = float64(requests) / totalSec
		m.SuccessThroughputRps = float64(raw.Success) / totalSec
	}
	return Result{Target: raw.Target.Name, Metrics: m}
}

// BuildThroughputRanking orders results by success throughput descending,
// then error rate ascending, then total throughput descending, then p95
// ascending; target name is the final tier, making the order total so
// that permuting the input never changes rank assignment.
func BuildThroughputRanking(results []Result) []RankingItem {
	items := make([]RankingItem, 0, len(results))
	for _, r := range results {
		items = append(items, RankingItem{
			Target:               r.Target,
			SuccessThroughputRps: r.Metrics.SuccessThroughputRps,
			ErrorRate:            r.Metrics.ErrorRate,
			ThroughputRps:        r.Metrics.ThroughputRps,
			P95Ms:                r.Metrics.Latency.P95,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.SuccessThroughputRps != b.SuccessThroughputRps {
			return a.SuccessThroughputRps > b.SuccessThroughputRps
		}
		if a.ErrorRate != b.ErrorRate {
			return a.ErrorRate < b.ErrorRate
		}
		if a.ThroughputRps != b.ThroughputRps {
			return a.ThroughputRps > b.ThroughputRps
		}
		if a.P95Ms != b.P95Ms {
			return a.P95Ms < b.P95Ms
		}
		return a.Target < b.Target
	})
	for i := range items {
		items[i].Rank = i + 1
	}
	return items
}
