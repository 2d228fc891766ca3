package microbench

import (
	"context"
	"fmt"
	"time"

	"github.com/perfgate/perfgate/internal/stats"
)

// SampleProfile is one named operation's cross-round statistics. This, not
// any single round, is what baseline comparison consumes.
type SampleProfile struct {
	Name                    string    `json:"name"`
	Iterations              int       `json:"iterations"`
	WarmupRounds            int       `json:"warmupRounds"`
	MeasuredRounds          int       `json:"measuredRounds"`
	MeasuredOpsPerSecond    []float64 `json:"measuredOpsPerSecond"`
	MedianOpsPerSecond      float64   `json:"medianOpsPerSecond"`
	TrimmedMeanOpsPerSecond float64   `json:"trimmedMeanOpsPerSecond"`
	MinOpsPerSecond         float64   `json:"minOpsPerSecond"`
	MaxOpsPerSecond         float64   `json:"maxOpsPerSecond"`
	CoefficientOfVariation  float64   `json:"coefficientOfVariation"`
}

// RoundOptions controls the round schedule.
type RoundOptions struct {
	WarmupRounds   int
	MeasuredRounds int
	Interval       time.Duration // fixed sleep between consecutive rounds
}

// RoundRunner executes one full pass over every operation and returns one
// sample per operation. The CLI uses InProcessRunner; an orchestrator may
// substitute a runner that spawns an isolated process per round and feeds
// its JSON output back here.
type RoundRunner func(ctx context.Context) ([]Sample, error)

// InProcessRunner returns a RoundRunner that measures ops in this process.
func InProcessRunner(ops []Operation) RoundRunner {
	return func(ctx context.Context) ([]Sample, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return MeasureAll(ops)
	}
}

// RunRounds executes WarmupRounds passes whose samples are discarded
// entirely, then MeasuredRounds passes whose ops/sec samples are bucketed
// by operation name and reduced to per-operation statistics. Profiles are
// returned in first-seen operation order.
func RunRounds(ctx context.Context, run RoundRunner, opts RoundOptions) ([]SampleProfile, error) {
	if opts.MeasuredRounds < 1 {
		return nil, fmt.Errorf("measured rounds must be >= 1, got %d", opts.MeasuredRounds)
	}
	if opts.WarmupRounds < 0 {
		opts.WarmupRounds = 0
	}

	total := opts.WarmupRounds + opts.MeasuredRounds
	order := make([]string, 0, 8)
	buckets := make(map[string]*SampleProfile, 8)

	for round := 0; round < total; round++ {
		if round > 0 && opts.Interval > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(opts.Interval):
			}
		}
		samples, err := run(ctx)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", round, err)
		}
		if round < opts.WarmupRounds {
			continue
		}
		for _, s := range samples {
			p, ok := buckets[s.Name]
			if !ok {
				p = &SampleProfile{
					Name:           s.Name,
					Iterations:     s.Iterations,
					WarmupRounds:   opts.WarmupRounds,
					MeasuredRounds: opts.MeasuredRounds,
				}
				buckets[s.Name] = p
				order = append(order, s.Name)
			}
			p.MeasuredOpsPerSecond = append(p.MeasuredOpsPerSecond, s.OpsPerSecond)
		}
	}

	profiles := make([]SampleProfile, 0, len(order))
	for _, name := range order {
		p := buckets[name]
		vals := p.MeasuredOpsPerSecond
		p.MedianOpsPerSecond = stats.Median(vals)
		p.TrimmedMeanOpsPerSecond = stats.TrimmedMean(vals)
		p.MinOpsPerSecond = minOf(vals)
		p.MaxOpsPerSecond = maxOf(vals)
		p.CoefficientOfVariation = stats.CV(vals)
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

func minOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}
