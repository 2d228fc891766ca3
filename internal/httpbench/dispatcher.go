package httpbench

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// DispatchOptions sizes one target run.
type DispatchOptions struct {
	Requests       int // fixed request budget, >= 1
	Concurrency    int // concurrent workers, floored to 1
	WarmupRequests int // sequential requests discarded before timing starts
}

// RawResult is the unreduced output of one target run. The latency slice
// holds every request, successful or failed:
// len(Latencies) == Success + Failure.
type RawResult struct {
	Target        Target
	Latencies     []time.Duration
	Success       int
	Failure       int
	TotalDuration time.Duration
}

type workerBuffer struct {
	lats    []time.Duration
	success int
	failure int
}

// Dispatch runs the fixed request budget against one target. Workers pull
// indices from a shared atomic counter until the budget is exhausted; the
// increment-and-fetch is a single indivisible step, so no index is ever
// double-assigned or skipped regardless of scheduling. Per-worker latency
// buffers are merged only after every worker has drained, so ordering
// across workers is neither preserved nor meaningful.
func Dispatch(ctx context.Context, exec *Executor, target Target, opts DispatchOptions) (RawResult, error) {
	if opts.Requests < 1 {
		return RawResult{}, fmt.Errorf("requests must be >= 1, got %d", opts.Requests)
	}
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	// Warmup phase: sequential, discarded, excludes cold-path effects
	// from the measured latencies.
	for i := 0; i < opts.WarmupRequests; i++ {
		if err := ctx.Err(); err != nil {
			return RawResult{}, err
		}
		exec.Execute(ctx, target, i)
	}

	var next atomic.Int64
	buffers := make([]workerBuffer, concurrency)
	var wg sync.WaitGroup

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(buf *workerBuffer) {
			defer wg.Done()
			for {
				idx := next.Add(1) - 1
				if idx >= int64(opts.Requests) {
					return
				}
				out := exec.Execute(ctx, target, int(idx))
				buf.lats = append(buf.lats, out.Duration)
				if out.OK {
					buf.success++
				} else {
					buf.failure++
				}
			}
		}(&buffers[w])
	}
	wg.Wait()
	elapsed := time.Since(start)

	result := RawResult{
		Target:        target,
		Latencies:     make([]time.Duration, 0, opts.Requests),
		TotalDuration: elapsed,
	}
	for _, buf := range buffers {
		result.Latencies = append(result.Latencies, buf.lats...)
		result.Success += buf.success
		result.Failure += buf.failure
	}
	return result, nil
}
