package gate

import (
	"testing"

	"github.com/perfgate/perfgate/internal/baseline"
)

func pct(v float64) *float64 { return &v }

func defaultPolicy() Policy {
	return Policy{MaxCv: 0.35, MaxMedianRegressionPct: 20, RequireComparison: false}
}

func countRule(violations []Violation, rule string) int {
	n := 0
	for _, v := range violations {
		if v.Rule == rule {
			n++
		}
	}
	return n
}

func TestEvaluatePassesCleanRun(t *testing.T) {
	metrics := []baseline.MetricComparison{
		{Name: "json-roundtrip", CV: 0.05, MedianDeltaPct: pct(3), TrimmedMeanDeltaPct: pct(2)},
	}
	res := Evaluate(metrics, true, defaultPolicy())
	if !res.Passed {
		t.Fatalf("clean run must pass: %+v", res.Violations)
	}
	if len(res.Violations) != 0 {
		t.Errorf("passed result must have zero violations")
	}
}

func TestEvaluateCVViolation(t *testing.T) {
	metrics := []baseline.MetricComparison{
		{Name: "file-io", CV: 0.5, MedianDeltaPct: pct(0)},
	}
	res := Evaluate(metrics, true, defaultPolicy())
	if res.Passed {
		t.Fatal("cv=0.5 over max 0.35 must fail")
	}
	if got := countRule(res.Violations, RuleCV); got != 1 {
		t.Fatalf("expected exactly one cv violation, got %d", got)
	}
	v := res.Violations[0]
	if v.Metric != "file-io" || v.Actual != 0.5 || v.Threshold != 0.35 {
		t.Errorf("violation fields: %+v", v)
	}
}

func TestEvaluateMedianRegression(t *testing.T) {
	policy := defaultPolicy()

	res := Evaluate([]baseline.MetricComparison{
		{Name: "m", CV: 0.01, MedianDeltaPct: pct(-25)},
	}, true, policy)
	if res.Passed || countRule(res.Violations, RuleMedianRegression) != 1 {
		t.Fatalf("-25%% under max 20%% must fail with a median-regression violation: %+v", res.Violations)
	}
	if res.Violations[0].Threshold != -20 {
		t.Errorf("threshold: got %v, want -20", res.Violations[0].Threshold)
	}

	res = Evaluate([]baseline.MetricComparison{
		{Name: "m", CV: 0.01, MedianDeltaPct: pct(-15)},
	}, true, policy)
	if !res.Passed {
		t.Fatalf("-15%% within max 20%% must pass: %+v", res.Violations)
	}
}

func TestEvaluateImprovementNeverViolates(t *testing.T) {
	res := Evaluate([]baseline.MetricComparison{
		{Name: "m", CV: 0.01, MedianDeltaPct: pct(80)},
	}, true, defaultPolicy())
	if !res.Passed {
		t.Fatalf("improvement flagged as regression: %+v", res.Violations)
	}
}

func TestEvaluateRequireComparisonWildcard(t *testing.T) {
	policy := defaultPolicy()
	policy.RequireComparison = true
	res := Evaluate([]baseline.MetricComparison{
		{Name: "m", CV: 0.01},
	}, false, policy)
	if res.Passed {
		t.Fatal("uncompared run must fail when comparison is required")
	}
	if countRule(res.Violations, RuleMissingComparison) != 1 {
		t.Fatalf("expected one missing-comparison violation: %+v", res.Violations)
	}
	if res.Violations[0].Metric != WildcardMetric {
		t.Errorf("wildcard metric: got %q", res.Violations[0].Metric)
	}
}

func TestEvaluateMissingMetricInLoadedBaseline(t *testing.T) {
	// Profile exists (compared=true) but lacks this metric: per-metric
	// missing-comparison violation, no delta rules applied.
	res := Evaluate([]baseline.MetricComparison{
		{Name: "new-op", CV: 0.01, MedianDeltaPct: nil},
	}, true, defaultPolicy())
	if res.Passed {
		t.Fatal("missing metric in a loaded baseline must fail")
	}
	if countRule(res.Violations, RuleMissingComparison) != 1 {
		t.Fatalf("violations: %+v", res.Violations)
	}
	if res.Violations[0].Metric != "new-op" {
		t.Errorf("metric: got %q", res.Violations[0].Metric)
	}
}

func TestEvaluateNoComparisonNotRequired(t *testing.T) {
	res := Evaluate([]baseline.MetricComparison{
		{Name: "m", CV: 0.01},
	}, false, defaultPolicy())
	if !res.Passed {
		t.Fatalf("uncompared run with lax policy must pass: %+v", res.Violations)
	}
	if res.Compared {
		t.Error("compared flag must be false")
	}
}

func TestEvaluateAccumulatesViolations(t *testing.T) {
	res := Evaluate([]baseline.MetricComparison{
		{Name: "a", CV: 0.9, MedianDeltaPct: pct(-50)},
		{Name: "b", CV: 0.01, MedianDeltaPct: pct(1)},
	}, true, defaultPolicy())
	if res.Passed {
		t.Fatal("must fail")
	}
	if len(res.Violations) != 2 {
		t.Fatalf("expected cv + median-regression for metric a, got %+v", res.Violations)
	}
}
