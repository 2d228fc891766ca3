package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/perfgate/perfgate/internal/httpbench"
)

var (
	loadTargetsPath string
	loadRequests    int
	loadConcurrency int
	loadWarmup      int
	loadTimeout     time.Duration
	loadSave        string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Benchmark a matrix of HTTP targets",
	Long: `Fire a fixed request budget at each target in the targets file, one
target at a time, and rank the targets by success throughput. The full
per-target report is saved as a JSON artifact.`,
	SilenceUsage: true,
	RunE:         runLoad,
}

func init() {
	f := loadCmd.Flags()
	f.StringVar(&loadTargetsPath, "targets", "targets.json", "Targets file (JSON)")
	f.IntVar(&loadRequests, "requests", 200, "Measured requests per target")
	f.IntVar(&loadConcurrency, "concurrency", 10, "Concurrent request workers")
	f.IntVar(&loadWarmup, "warmup", 10, "Discarded warmup requests per target")
	f.DurationVar(&loadTimeout, "timeout", 10*time.Second, "Per-request timeout")
	f.StringVar(&loadSave, "save", "", "Save the report to this path (default: loadreport-<timestamp>.json)")

	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	otelShutdown, err := initTracing()
	if err != nil {
		return err
	}
	defer otelShutdown()

	targets, err := httpbench.LoadTargets(loadTargetsPath)
	if err != nil {
		return err
	}

	fmt.Printf("perfgate load\n")
	fmt.Printf("  targets:     %d (%s)\n", len(targets), loadTargetsPath)
	fmt.Printf("  requests:    %d\n", loadRequests)
	fmt.Printf("  concurrency: %d\n", loadConcurrency)
	fmt.Printf("  warmup:      %d\n", loadWarmup)
	fmt.Printf("  timeout:     %s\n", loadTimeout)
	fmt.Println()

	client := &http.Client{Timeout: loadTimeout}
	report, err := httpbench.RunMatrix(cmd.Context(), client, targets, httpbench.MatrixOptions{
		Requests:       loadRequests,
		Concurrency:    loadConcurrency,
		WarmupRequests: loadWarmup,
		Timeout:        loadTimeout,
	})
	if err != nil {
		return err
	}

	printRanking(report)

	savePath := loadSave
	if savePath == "" {
		savePath = fmt.Sprintf("loadreport-%s.json", time.Now().Format("20060102-150405"))
	}
	if err := httpbench.WriteReport(savePath, report); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not save report: %v\n", err)
	} else {
		fmt.Printf("\nReport saved to %s\n", savePath)
	}
	return nil
}

func printRanking(report httpbench.Report) {
	fmt.Println("=== Ranking ===")
	fmt.Printf("  %-4s %-20s %12s %10s %12s %10s\n",
		"rank", "target", "ok rps", "err rate", "total rps", "p95 ms")
	for _, item := range report.Ranking {
		fmt.Printf("  %-4d %-20s %12.1f %9.1f%% %12.1f %10.2f\n",
			item.Rank,
			item.Target,
			item.SuccessThroughputRps,
			item.ErrorRate*100,
			item.ThroughputRps,
			item.P95Ms,
		)
	}
	fmt.Printf("\n  scenario wall p50: %.1fms  p95: %.1fms\n", report.Scenario.P50Ms, report.Scenario.P95Ms)
}
