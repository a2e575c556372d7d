package core

import (
	"sort"
	"time"
)

// RunReport is the finalized aggregate of one simulation run.
type RunReport struct {
	Target   Target
	Total    int
	Acquired int
	Conflict int
	Other    int
	Elapsed  time.Duration

	// Winner is the first acquiring actor observed; nil when nobody acquired.
	Winner *ActorID
	// Acquirers lists every acquiring actor in observation order. More than
	// one entry means the backend let the race through.
	Acquirers []ActorID
	// Failures counts OtherFailure outcomes by diagnostic string.
	Failures map[string]int
	Latency  Latency
}

// Settled reports whether every issued attempt landed in exactly one bucket.
func (r *RunReport) Settled() bool {
	return r.Acquired+r.Conflict+r.Other == r.Total
}

// Throughput returns attempts per second over the run.
func (r *RunReport) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Total) / r.Elapsed.Seconds()
}

// FailureDetail is one distinct OtherFailure diagnostic with its count.
type FailureDetail struct {
	Detail string `json:"detail"`
	Count  int    `json:"count"`
}

// TopFailures returns failure details sorted by count (descending), then
// detail, truncated to n entries. n <= 0 returns all.
func (r *RunReport) TopFailures(n int) []FailureDetail {
	out := make([]FailureDetail, 0, len(r.Failures))
	for detail, count := range r.Failures {
		out = append(out, FailureDetail{Detail: detail, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Detail < out[j].Detail
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
