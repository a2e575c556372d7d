// Package collector folds booking outcomes into a run report, checks the
// report against expectations and renders it.
package collector

import (
	"sync"
	"time"

	"flashtix/internal/core"
)

// unclassifiedDetail is used when a failed outcome carries no diagnostic.
const unclassifiedDetail = "unclassified failure"

// Accumulator builds a RunReport from outcomes recorded concurrently.
// Outcomes travel over a channel to a single consumer goroutine which
// applies them one at a time: the counter increment, the bucket update,
// winner selection and the progress notification for one outcome never
// interleave with another outcome's.
type Accumulator struct {
	ch         chan core.Outcome
	done       chan struct{}
	onProgress func(float64)

	// Owned by the consumer goroutine until done is closed.
	report    core.RunReport
	latencies []time.Duration
	completed int

	finalizeOnce sync.Once
}

// NewAccumulator starts the consumer for a run of total attempts against
// target. onProgress may be nil; otherwise it is called from the consumer
// goroutine once per outcome with completed/total.
func NewAccumulator(target core.Target, total int, onProgress func(float64)) *Accumulator {
	a := &Accumulator{
		ch:         make(chan core.Outcome, total),
		done:       make(chan struct{}),
		onProgress: onProgress,
		report: core.RunReport{
			Target:   target,
			Total:    total,
			Failures: make(map[string]int),
		},
		latencies: make([]time.Duration, 0, total),
	}
	go a.consume()
	return a
}

func (a *Accumulator) consume() {
	defer close(a.done)
	for outcome := range a.ch {
		a.apply(outcome)
	}
}

func (a *Accumulator) apply(o core.Outcome) {
	a.completed++

	switch o.Kind {
	case core.Acquired:
		a.report.Acquired++
		a.report.Acquirers = append(a.report.Acquirers, o.Actor)
		if a.report.Winner == nil {
			winner := o.Actor
			a.report.Winner = &winner
		}
	case core.Conflict:
		a.report.Conflict++
	default:
		// Unknown kinds are failures too; every outcome lands in a bucket.
		a.report.Other++
		detail := o.Detail
		if detail == "" {
			detail = unclassifiedDetail
		}
		a.report.Failures[detail]++
	}

	if o.Latency > 0 {
		a.latencies = append(a.latencies, o.Latency)
	}

	if a.onProgress != nil && a.report.Total > 0 {
		a.onProgress(float64(a.completed) / float64(a.report.Total))
	}
}

// Record queues one outcome. Safe for concurrent use; must not be called
// after Finalize.
func (a *Accumulator) Record(o core.Outcome) {
	a.ch <- o
}

// Finalize waits for every recorded outcome to be applied and returns the
// report with the given elapsed time. Later calls return the same report.
func (a *Accumulator) Finalize(elapsed time.Duration) *core.RunReport {
	a.finalizeOnce.Do(func() {
		close(a.ch)
		<-a.done
		a.report.Elapsed = elapsed
		a.report.Latency = core.ComputeLatency(a.latencies)
	})
	return &a.report
}
