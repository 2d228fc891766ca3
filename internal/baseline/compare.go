package baseline

import (
	"github.com/perfgate/perfgate/internal/microbench"
)

// Source is the in-memory comparison view of a loaded profile, keyed by
// metric name.
type Source struct {
	byName map[string]Metric
}

// DecodeComparisonSource decodes raw profile JSON into a lookup source,
// rejecting legacy single-sample shapes like Decode does.
func DecodeComparisonSource(raw []byte) (*Source, error) {
	p, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return NewSource(p), nil
}

// NewSource indexes a loaded profile by metric name.
func NewSource(p Profile) *Source {
	byName := make(map[string]Metric, len(p.Metrics))
	for _, m := range p.Metrics {
		byName[m.Name] = m
	}
	return &Source{byName: byName}
}

// Lookup returns the baseline metric for a name.
func (s *Source) Lookup(name string) (Metric, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// MetricComparison carries one current metric's stability signal and its
// deltas against the baseline. Nil deltas mean the baseline has no metric
// of this name (or an unusable zero baseline) — absent, not zero; the gate
// decides whether that is a violation.
type MetricComparison struct {
	Name                string
	CV                  float64
	MedianDeltaPct      *float64
	TrimmedMeanDeltaPct *float64
}

// Compare computes percentage deltas for each current aggregate against
// the same-named baseline metric. src may be nil when no baseline was
// loaded; every delta is then nil and the caller reports compared=false.
func Compare(current []microbench.SampleProfile, src *Source) []MetricComparison {
	out := make([]MetricComparison, 0, len(current))
	for _, cur := range current {
		mc := MetricComparison{
			Name: cur.Name,
			CV:   cur.CoefficientOfVariation,
		}
		if src != nil {
			if base, ok := src.Lookup(cur.Name); ok {
				if base.MedianOpsPerSecond != 0 {
					d := (cur.MedianOpsPerSecond - base.MedianOpsPerSecond) / base.MedianOpsPerSecond * 100
					mc.MedianDeltaPct = &d
				}
				if base.TrimmedMeanOpsPerSecond != 0 {
					d := (cur.TrimmedMeanOpsPerSecond - base.TrimmedMeanOpsPerSecond) / base.TrimmedMeanOpsPerSecond * 100
					mc.TrimmedMeanDeltaPct = &d
				}
			}
		}
		out = append(out, mc)
	}
	return out
}
