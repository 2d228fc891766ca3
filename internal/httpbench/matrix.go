package httpbench

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/perfgate/perfgate/internal/stats"
)

// MatrixOptions applies the same budget to every target in the matrix.
type MatrixOptions struct {
	Requests       int
	Concurrency    int
	WarmupRequests int
	Timeout        time.Duration
	Classifier     SuccessClassifier
}

// ScenarioTiming summarizes per-target scenario wall times. Unlike request
// latency percentiles these use linear interpolation between adjacent
// ranks; the two conventions are deliberately distinct.
type ScenarioTiming struct {
	DurationsMs []float64 `json:"durationsMs"`
	P50Ms       float64   `json:"p50Ms"`
	P95Ms       float64   `json:"p95Ms"`
}

// Report is the produced benchmark artifact: one entry per target plus the
// ranking array and scenario timing.
type Report struct {
	GeneratedAt string         `json:"generatedAt"`
	Results     []Result       `json:"results"`
	Ranking     []RankingItem  `json:"ranking"`
	Scenario    ScenarioTiming `json:"scenario"`
}

// RunMatrix benchmarks every target in order with the shared options and
// ranks the outcomes. Targets run sequentially so they never contend with
// each other for local resources.
func RunMatrix(ctx context.Context, client Doer, targets []Target, opts MatrixOptions) (Report, error) {
	if len(targets) == 0 {
		return Report{}, fmt.Errorf("no targets to benchmark")
	}
	tracer := otel.Tracer("perfgate/httpbench")

	exec := &Executor{Client: client, Timeout: opts.Timeout, Classifier: opts.Classifier}
	results := make([]Result, 0, len(targets))
	durationsMs := make([]float64, 0, len(targets))

	for _, target := range targets {
		targetCtx, span := tracer.Start(ctx, "httpbench.target",
			trace.WithAttributes(
				attribute.String("target.name", target.Name),
				attribute.Int("target.requests", opts.Requests),
				attribute.Int("target.concurrency", opts.Concurrency),
			))
		scenarioStart := time.Now()
		raw, err := Dispatch(targetCtx, exec, target, DispatchOptions{
			Requests:       opts.Requests,
			Concurrency:    opts.Concurrency,
			WarmupRequests: opts.WarmupRequests,
		})
		span.End()
		if err != nil {
			return Report{}, fmt.Errorf("target %s: %w", target.Name, err)
		}
		durationsMs = append(durationsMs, float64(time.Since(scenarioStart))/float64(time.Millisecond))

		res := Summarize(raw)
		slog.Info("target benchmarked",
			"target", res.Target,
			"requests", res.Metrics.Requests,
			"error_rate", res.Metrics.ErrorRate,
			"throughput_rps", res.Metrics.ThroughputRps,
			"p95_ms", res.Metrics.Latency.P95,
		)
		results = append(results, res)
	}

	sortedDur := slices.Clone(durationsMs)
	slices.Sort(sortedDur)

	return Report{
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Results:     results,
		Ranking:     BuildThroughputRanking(results),
		Scenario: ScenarioTiming{
			DurationsMs: durationsMs,
			P50Ms:       stats.PercentileInterpolated(sortedDur, 0.50),
			P95Ms:       stats.PercentileInterpolated(sortedDur, 0.95),
		},
	}, nil
}

// WriteReport persists the report as indented JSON.
func WriteReport(path string, report Report) error {
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
