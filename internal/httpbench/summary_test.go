package httpbench

import (
	"math/rand"
	"testing"
	"time"
)

func TestComputeLatencyStatsEmpty(t *testing.T) {
	s := ComputeLatencyStats(nil)
	if s.Min != 0 || s.Max != 0 || s.Avg != 0 || s.P50 != 0 || s.P95 != 0 || s.P99 != 0 {
		t.Errorf("empty input must yield zero stats: %+v", s)
	}
}

func TestComputeLatencyStatsOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		n := 1 + rng.Intn(200)
		lats := make([]float64, n)
		for i := range lats {
			lats[i] = rng.Float64() * 100
		}
		s := ComputeLatencyStats(lats)
		if !(s.Min <= s.P50 && s.P50 <= s.P95 && s.P95 <= s.P99 && s.P99 <= s.Max) {
			t.Fatalf("ordering violated for n=%d: %+v", n, s)
		}
	}
}

func TestSummarizeRates(t *testing.T) {
	raw := RawResult{
		Target:        Target{Name: "api"},
		Latencies:     []time.Duration{time.Millisecond, 2 * time.Millisecond, 3 * time.Millisecond, 4 * time.Millisecond},
		Success:       3,
		Failure:       1,
		TotalDuration: 2 * time.Second,
	}
	r := Summarize(raw)
	if r.Metrics.Requests != 4 {
		t.Errorf("requests: got %d", r.Metrics.Requests)
	}
	if r.Metrics.ErrorRate != 0.25 {
		t.Errorf("error rate: got %v", r.Metrics.ErrorRate)
	}
	if r.Metrics.ThroughputRps != 2 {
		t.Errorf("throughput: got %v", r.Metrics.ThroughputRps)
	}
	if r.Metrics.SuccessThroughputRps != 1.5 {
		t.Errorf("success throughput: got %v", r.Metrics.SuccessThroughputRps)
	}
}

func TestSummarizeZeroDuration(t *testing.T) {
	r := Summarize(RawResult{Target: Target{Name: "z"}})
	if r.Metrics.ThroughputRps != 0 || r.Metrics.SuccessThroughputRps != 0 {
		t.Errorf("zero duration must yield zero throughput: %+v", r.Metrics)
	}
	if r.Metrics.ErrorRate != 0 {
		t.Errorf("no requests must yield zero error rate: %v", r.Metrics.ErrorRate)
	}
}

func rankingFixture() []Result {
	mk := func(name string, successRps, errRate, rps, p95 float64) Result {
		return Result{Target: name, Metrics: Metrics{
			SuccessThroughputRps: successRps,
			ErrorRate:            errRate,
			ThroughputRps:        rps,
			Latency:              LatencyStats{P95: p95},
		}}
	}
	return []Result{
		mk("slow", 100, 0.1, 120, 50),
		mk("fast", 500, 0.0, 500, 10),
		mk("tied-a", 300, 0.05, 320, 20),
		mk("tied-b", 300, 0.05, 320, 15), // wins tier 4 on lower p95
		mk("erratic", 300, 0.20, 400, 5), // loses tier 2 on error rate
	}
}

func TestBuildThroughputRankingTieBreaks(t *testing.T) {
	ranking := BuildThroughputRanking(rankingFixture())
	wantOrder := []string{"fast", "tied-b", "tied-a", "erratic", "slow"}
	if len(ranking) != len(wantOrder) {
		t.Fatalf("ranking size: got %d", len(ranking))
	}
	for i, want := range wantOrder {
		if ranking[i].Target != want {
			t.Errorf("rank %d: got %s, want %s", i+1, ranking[i].Target, want)
		}
		if ranking[i].Rank != i+1 {
			t.Errorf("rank field: got %d, want %d", ranking[i].Rank, i+1)
		}
	}
}

func TestBuildThroughputRankingIsPermutationInvariant(t *testing.T) {
	base := BuildThroughputRanking(rankingFixture())
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		shuffled := rankingFixture()
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		got := BuildThroughputRanking(shuffled)
		for i := range base {
			if got[i].Target != base[i].Target || got[i].Rank != base[i].Rank {
				t.Fatalf("trial %d: rank assignment changed under permutation", trial)
			}
		}
	}
}
