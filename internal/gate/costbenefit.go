package gate

// HotspotTimings breaks one optimized code path into its marshal, compute
// and unmarshal phases, in milliseconds. Negative inputs clamp to zero.
type HotspotTimings struct {
	MarshalMs   float64 `json:"marshalMs"`
	ComputeMs   float64 `json:"computeMs"`
	UnmarshalMs float64 `json:"unmarshalMs"`
}

// BenefitDeltas are observed end-to-end deltas attributable to the
// optimization, as ratios. Throughput improves when positive; p95 latency
// and CPU time improve when negative.
type BenefitDeltas struct {
	ThroughputDeltaRatio float64 `json:"throughputDeltaRatio"`
	P95DeltaRatio        float64 `json:"p95DeltaRatio"`
	CPUTimeDeltaRatio    float64 `json:"cpuTimeDeltaRatio"`
}

// CostBenefitDecision is the verdict on whether an optimization's
// serialization overhead outweighs its measured benefit.
type CostBenefitDecision struct {
	SerializationRatio float64 `json:"serializationRatio"`
	EndpointBenefit    bool    `json:"endpointBenefit"`
	ShouldDisable      bool    `json:"shouldDisable"`
}

// serializationDominanceThreshold is the share of total time above which
// marshal+unmarshal counts as dominant.
const serializationDominanceThreshold = 0.4

// EvaluateCostBenefit recommends disabling an optimization only when its
// serialization overhead dominates (>40% of total time) and no end-to-end
// signal improved. Any single improving signal keeps it enabled.
func EvaluateCostBenefit(t HotspotTimings, b BenefitDeltas) CostBenefitDecision {
	marshal := clampNonNegative(t.MarshalMs)
	compute := clampNonNegative(t.ComputeMs)
	unmarshal := clampNonNegative(t.UnmarshalMs)

	total := marshal + compute + unmarshal
	ratio := 0.0
	if total > 0 {
		ratio = (marshal + unmarshal) / total
	}

	benefit := b.ThroughputDeltaRatio > 0 || b.P95DeltaRatio < 0 || b.CPUTimeDeltaRatio < 0

	return CostBenefitDecision{
		SerializationRatio: ratio,
		EndpointBenefit:    benefit,
		ShouldDisable:      ratio > serializationDominanceThreshold && !benefit,
	}
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
