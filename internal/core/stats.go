package core

import (
	"sort"
	"time"
)

// Latency summarizes per-attempt round-trip times.
type Latency struct {
	Min time.Duration
	Max time.Duration
	Avg time.Duration
	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
}

// Percentile returns the nearest-rank percentile of an ascending slice.
// p is a fraction in [0, 1].
func Percentile(sorted []time.Duration, p float64) time.Duration {
	switch {
	case len(sorted) == 0:
		return 0
	case p <= 0:
		return sorted[0]
	case p >= 1:
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*p)]
}

// ComputeLatency builds a Latency summary. The input is not modified.
func ComputeLatency(samples []time.Duration) Latency {
	if len(samples) == 0 {
		return Latency{}
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	return Latency{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: total / time.Duration(len(sorted)),
		P50: Percentile(sorted, 0.50),
		P90: Percentile(sorted, 0.90),
		P95: Percentile(sorted, 0.95),
		P99: Percentile(sorted, 0.99),
	}
}
