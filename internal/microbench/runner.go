package microbench

import (
	"fmt"
	"time"
)

// Sample is one operation's result for one round. Ops/sec is iterations
// completed per second of wall-clock time, with the wall time measured
// once around the whole iteration loop, not per iteration.
type Sample struct {
	Name         string  `json:"name"`
	Iterations   int     `json:"iterations"`
	DurationMs   float64 `json:"durationMs"`
	OpsPerSecond float64 `json:"opsPerSecond"`
}

// Measure runs op.Iterations invocations back-to-back and returns a single
// sample. The first self-check failure aborts the measurement: the round
// that contains it is fatal, not retried.
func Measure(op Operation) (Sample, error) {
	iterations := op.Iterations
	if iterations < 1 {
		iterations = 1
	}
	start := time.Now()
	for i := 0; i < iterations; i++ {
		if err := op.fn(); err != nil {
			return Sample{}, fmt.Errorf("operation %s iteration %d: %w", op.Name, i, err)
		}
	}
	durationMs := float64(time.Since(start)) / float64(time.Millisecond)

	opsPerSecond := 0.0
	if durationMs > 0 {
		opsPerSecond = float64(iterations) / (durationMs / 1000)
	}
	return Sample{
		Name:         op.Name,
		Iterations:   iterations,
		DurationMs:   durationMs,
		OpsPerSecond: opsPerSecond,
	}, nil
}

// MeasureAll measures every operation in order, failing fast on the first
// corrupted operation.
func MeasureAll(ops []Operation) ([]Sample, error) {
	samples := make([]Sample, 0, len(ops))
	for _, op := range ops {
		s, err := Measure(op)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}
