package collector_test

import (
	"fmt"
	"time"

	"flashtix/internal/collector"
	"flashtix/internal/core"
)

func ExampleNewAccumulator() {
	acc := collector.NewAccumulator(1, 3, func(p float64) {
		fmt.Printf("progress %.0f%%\n", p*100)
	})

	acc.Record(core.Outcome{Kind: core.Conflict, Actor: 1001})
	acc.Record(core.Outcome{Kind: core.Acquired, Actor: 1000})
	acc.Record(core.Outcome{Kind: core.OtherFailure, Actor: 1002, Detail: "timeout"})

	report := acc.Finalize(120 * time.Millisecond)
	fmt.Printf("acquired=%d conflict=%d other=%d winner=%d\n",
		report.Acquired, report.Conflict, report.Other, *report.Winner)
	// Output:
	// progress 33%
	// progress 67%
	// progress 100%
	// acquired=1 conflict=1 other=1 winner=1000
}
