// Package gate turns benchmark statistics into mechanical pass/fail
// verdicts. A failed gate is a structured result, not an error: callers
// decide how to surface it (typically a non-zero exit after archiving
// artifacts).
package gate

import (
	"fmt"

	"github.com/perfgate/perfgate/internal/baseline"
)

// Violation rules.
const (
	RuleCV                = "cv"
	RuleMedianRegression  = "median-regression"
	RuleMissingComparison = "missing-comparison"
)

// WildcardMetric marks a violation that applies to the run as a whole.
const WildcardMetric = "*"

// Policy is the caller-owned regression policy, immutable for a run.
type Policy struct {
	MaxCv                  float64 `json:"maxCv"`
	MaxMedianRegressionPct float64 `json:"maxMedianRegressionPct"`
	RequireComparison      bool    `json:"requireComparison"`
}

// Violation is one named policy breach.
type Violation struct {
	Metric    string  `json:"metric"`
	Rule      string  `json:"rule"`
	Actual    float64 `json:"actual"`
	Threshold float64 `json:"threshold"`
	Message   string  `json:"message"`
}

// Result is the gate verdict. Passed is true exactly when Violations is
// empty.
type Result struct {
	Passed     bool        `json:"passed"`
	Compared   bool        `json:"compared"`
	Policy     Policy      `json:"policy"`
	Violations []Violation `json:"violations"`
}

// Evaluate applies the policy to the compared metrics. Improvements never
// violate; only regressions beyond the allowed percentage do, and a
// metric missing from an otherwise-present baseline is a violation in its
// own right when comparison happened.
func Evaluate(metrics []baseline.MetricComparison, compared bool, policy Policy) Result {
	violations := []Violation{}

	if !compared && policy.RequireComparison {
		violations = append(violations, Violation{
			Metric:    WildcardMetric,
			Rule:      RuleMissingComparison,
			Actual:    0,
			Threshold: 0,
			Message:   "baseline comparison is required by policy but no baseline profile was loaded",
		})
	}

	for _, m := range metrics {
		if m.CV > policy.MaxCv {
			violations = append(violations, Violation{
				Metric:    m.Name,
				Rule:      RuleCV,
				Actual:    m.CV,
				Threshold: policy.MaxCv,
				Message:   fmt.Sprintf("coefficient of variation %.4f exceeds max %.4f; samples too unstable to trust", m.CV, policy.MaxCv),
			})
		}
		if !compared {
			continue
		}
		if m.MedianDeltaPct == nil {
			violations = append(violations, Violation{
				Metric:    m.Name,
				Rule:      RuleMissingComparison,
				Actual:    0,
				Threshold: 0,
				Message:   fmt.Sprintf("baseline profile has no metric named %q", m.Name),
			})
			continue
		}
		if *m.MedianDeltaPct < -policy.MaxMedianRegressionPct {
			violations = append(violations, Violation{
				Metric:    m.Name,
				Rule:      RuleMedianRegression,
				Actual:    *m.MedianDeltaPct,
				Threshold: -policy.MaxMedianRegressionPct,
				Message:   fmt.Sprintf("median ops/sec regressed %.2f%% against baseline (allowed %.2f%%)", -*m.MedianDeltaPct, policy.MaxMedianRegressionPct),
			})
		}
	}

	return Result{
		Passed:     len(violations) == 0,
		Compared:   compared,
		Policy:     policy,
		Violations: violations,
	}
}
