package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perfgate/perfgate/internal/baseline"
	"github.com/perfgate/perfgate/internal/gate"
	"github.com/perfgate/perfgate/internal/microbench"
)

var (
	gateProfilePath  string
	gateBaselinePath string

	gateMaxCv             float64
	gateMaxMedianRegrPct  float64
	gateRequireComparison bool
	gateEnforce           bool
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Evaluate a saved profile against a baseline",
	Long: `Apply the regression policy to an already-measured profile without
re-running any benchmark. Useful in CI where measurement and gating run
as separate steps.`,
	SilenceUsage: true,
	RunE:         runGate,
}

func init() {
	f := gateCmd.Flags()
	f.StringVar(&gateProfilePath, "profile", "", "Measured profile JSON (required)")
	f.StringVar(&gateBaselinePath, "baseline", "", "Baseline profile JSON to compare against")
	f.Float64Var(&gateMaxCv, "max-cv", 0.35, "Max coefficient of variation per metric")
	f.Float64Var(&gateMaxMedianRegrPct, "max-median-regression", 20, "Max allowed median ops/sec regression, percent")
	f.BoolVar(&gateRequireComparison, "require-comparison", false, "Fail the gate when no baseline was loaded")
	f.BoolVar(&gateEnforce, "enforce", true, "Exit non-zero when the gate fails")
	gateCmd.MarkFlagRequired("profile")

	rootCmd.AddCommand(gateCmd)
}

func runGate(cmd *cobra.Command, args []string) error {
	current, err := baseline.Load(gateProfilePath)
	if err != nil {
		return err
	}

	var src *baseline.Source
	compared := false
	if gateBaselinePath != "" {
		base, err := baseline.Load(gateBaselinePath)
		if err != nil {
			return err
		}
		src = baseline.NewSource(base)
		compared = true
	}

	// The saved profile already carries cross-round aggregates; lift them
	// back into the shape the comparator consumes.
	profiles := make([]microbench.SampleProfile, 0, len(current.Metrics))
	for _, m := range current.Metrics {
		profiles = append(profiles, microbench.SampleProfile{
			Name:                    m.Name,
			MeasuredRounds:          m.Rounds,
			MedianOpsPerSecond:      m.MedianOpsPerSecond,
			TrimmedMeanOpsPerSecond: m.TrimmedMeanOpsPerSecond,
			MinOpsPerSecond:         m.MinOpsPerSecond,
			MaxOpsPerSecond:         m.MaxOpsPerSecond,
			CoefficientOfVariation:  m.CoefficientOfVariation,
		})
	}

	comparisons := baseline.Compare(profiles, src)
	verdict := gate.Evaluate(comparisons, compared, gate.Policy{
		MaxCv:                  gateMaxCv,
		MaxMedianRegressionPct: gateMaxMedianRegrPct,
		RequireComparison:      gateRequireComparison,
	})

	printMicroResults(profiles, comparisons)
	printGateVerdict(verdict)

	if !verdict.Passed && gateEnforce {
		return fmt.Errorf("gate failed with %d violation(s)", len(verdict.Violations))
	}
	return nil
}
