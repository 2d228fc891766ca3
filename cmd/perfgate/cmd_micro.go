package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/perfgate/perfgate/internal/baseline"
	"github.com/perfgate/perfgate/internal/gate"
	"github.com/perfgate/perfgate/internal/microbench"
)

var (
	microIterations     int
	microWarmupRounds   int
	microRounds         int
	microInterval       time.Duration
	microWorkDir        string
	microSave           string
	microCompare        string
	microUpdateBaseline bool

	microMaxCv             float64
	microMaxMedianRegrPct  float64
	microRequireComparison bool
	microEnforce           bool
)

var microCmd = &cobra.Command{
	Use:   "micro",
	Short: "Run micro-benchmark rounds and gate against a baseline",
	Long: `Run the standard operation set over warmup and measured rounds, reduce
per-operation ops/sec samples to cross-round statistics, and optionally
compare against a saved baseline profile and apply the regression policy.

Warmup round samples are discarded entirely; only measured rounds feed
the statistics. The gate verdict is printed either way; the process exits
non-zero on gate failure only with --enforce.`,
	SilenceUsage: true,
	RunE:         runMicro,
}

func init() {
	f := microCmd.Flags()
	f.IntVar(&microIterations, "iterations", 1000, "Iterations per operation per round")
	f.IntVar(&microWarmupRounds, "warmup-rounds", 2, "Discarded warmup rounds")
	f.IntVar(&microRounds, "rounds", 5, "Measured rounds")
	f.DurationVar(&microInterval, "interval", 100*time.Millisecond, "Pause between rounds")
	f.StringVar(&microWorkDir, "work-dir", "", "Directory for disk-backed file I/O samples (default: <tmp>/perfgate-bench)")
	f.StringVar(&microSave, "save", "", "Save the measured profile to this path")
	f.StringVar(&microCompare, "compare", "", "Baseline profile JSON to compare against")
	f.BoolVar(&microUpdateBaseline, "update-baseline", false, "Overwrite the --compare baseline with this run's profile after evaluation")

	f.Float64Var(&microMaxCv, "max-cv", 0.35, "Max coefficient of variation per metric")
	f.Float64Var(&microMaxMedianRegrPct, "max-median-regression", 20, "Max allowed median ops/sec regression, percent")
	f.BoolVar(&microRequireComparison, "require-comparison", false, "Fail the gate when no baseline was loaded")
	f.BoolVar(&microEnforce, "enforce", false, "Exit non-zero when the gate fails")

	rootCmd.AddCommand(microCmd)
}

func runMicro(cmd *cobra.Command, args []string) error {
	if microUpdateBaseline && microCompare == "" {
		return fmt.Errorf("--update-baseline requires --compare")
	}

	otelShutdown, err := initTracing()
	if err != nil {
		return err
	}
	defer otelShutdown()

	ops, err := microbench.DefaultOperations(microWorkDir, microIterations)
	if err != nil {
		return err
	}

	var src *baseline.Source
	compared := false
	if microCompare != "" {
		// Structural baseline errors abort before any measurement.
		prof, err := baseline.Load(microCompare)
		if err != nil {
			return err
		}
		src = baseline.NewSource(prof)
		compared = true
	}

	fmt.Printf("perfgate micro\n")
	fmt.Printf("  operations:    %d\n", len(ops))
	fmt.Printf("  iterations:    %d\n", microIterations)
	fmt.Printf("  warmup-rounds: %d\n", microWarmupRounds)
	fmt.Printf("  rounds:        %d\n", microRounds)
	fmt.Printf("  interval:      %s\n", microInterval)
	if microCompare != "" {
		fmt.Printf("  baseline:      %s\n", microCompare)
	}
	fmt.Println()

	profiles, err := microbench.RunRounds(cmd.Context(), microbench.InProcessRunner(ops), microbench.RoundOptions{
		WarmupRounds:   microWarmupRounds,
		MeasuredRounds: microRounds,
		Interval:       microInterval,
	})
	if err != nil {
		return err
	}

	comparisons := baseline.Compare(profiles, src)
	printMicroResults(profiles, comparisons)

	policy := gate.Policy{
		MaxCv:                  microMaxCv,
		MaxMedianRegressionPct: microMaxMedianRegrPct,
		RequireComparison:      microRequireComparison,
	}
	verdict := gate.Evaluate(comparisons, compared, policy)
	printGateVerdict(verdict)

	opts := baseline.Options{
		WarmupRounds: microWarmupRounds,
		Rounds:       microRounds,
		IntervalMs:   int(microInterval.Milliseconds()),
	}
	if microSave != "" {
		if err := baseline.Save(microSave, baseline.FromProfiles(profiles, opts)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save profile: %v\n", err)
		} else {
			fmt.Printf("\nProfile saved to %s\n", microSave)
		}
	}
	if microUpdateBaseline {
		if err := baseline.Save(microCompare, baseline.FromProfiles(profiles, opts)); err != nil {
			return fmt.Errorf("update baseline: %w", err)
		}
		fmt.Printf("Baseline updated at %s\n", microCompare)
	}

	if !verdict.Passed && microEnforce {
		return fmt.Errorf("gate failed with %d violation(s)", len(verdict.Violations))
	}
	return nil
}

func printMicroResults(profiles []microbench.SampleProfile, comparisons []baseline.MetricComparison) {
	byName := make(map[string]baseline.MetricComparison, len(comparisons))
	for _, c := range comparisons {
		byName[c.Name] = c
	}

	fmt.Println("=== Measured Rounds ===")
	fmt.Printf("  %-16s %14s %14s %8s %10s\n", "operation", "median ops/s", "trimmed ops/s", "cv", "vs base")
	for _, p := range profiles {
		delta := "n/a"
		if c, ok := byName[p.Name]; ok && c.MedianDeltaPct != nil {
			delta = fmt.Sprintf("%+.1f%%", *c.MedianDeltaPct)
		}
		fmt.Printf("  %-16s %14.1f %14.1f %8.3f %10s\n",
			p.Name,
			p.MedianOpsPerSecond,
			p.TrimmedMeanOpsPerSecond,
			p.CoefficientOfVariation,
			delta,
		)
	}
}

func printGateVerdict(verdict gate.Result) {
	fmt.Println("\n=== Gate ===")
	if verdict.Passed {
		fmt.Println("  PASS")
		return
	}
	fmt.Printf("  FAIL (%d violation(s))\n", len(verdict.Violations))
	for _, v := range verdict.Violations {
		fmt.Printf("  - [%s] %s: %s\n", v.Rule, v.Metric, v.Message)
	}
}
