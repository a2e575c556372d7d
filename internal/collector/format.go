package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"flashtix/internal/core"
)

// maxFailureLines caps the distinct failure diagnostics printed.
const maxFailureLines = 5

// FormatText writes a human-readable run report.
func FormatText(w io.Writer, r *core.RunReport, checks *CheckResults) {
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Flashtix - Booking Race Results")
	fmt.Fprintln(w, "===============================")
	fmt.Fprintln(w, "")
	fmt.Fprintf(w, "Ticket:         %d\n", r.Target)
	fmt.Fprintf(w, "Duration:       %s\n", FormatDuration(r.Elapsed))
	fmt.Fprintf(w, "Total Requests: %s\n", formatNumber(r.Total))
	fmt.Fprintf(w, "Throughput:     %.1f req/s\n", r.Throughput())
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Outcomes:")
	fmt.Fprintf(w, "  Acquired:  %s\n", formatNumber(r.Acquired))
	fmt.Fprintf(w, "  Conflict:  %s\n", formatNumber(r.Conflict))
	fmt.Fprintf(w, "  Other:     %s\n", formatNumber(r.Other))
	fmt.Fprintln(w, "")

	if r.Winner != nil {
		fmt.Fprintf(w, "Winner:         User %d\n", *r.Winner)
	} else {
		fmt.Fprintln(w, "Winner:         No Winner")
	}
	if len(r.Acquirers) > 1 {
		fmt.Fprintf(w, "WARNING: %d actors acquired the same ticket: %s\n",
			len(r.Acquirers), joinActors(r.Acquirers))
	}

	if r.Latency != (core.Latency{}) {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Latency:")
		fmt.Fprintf(w, "  Min:    %s\n", FormatDuration(r.Latency.Min))
		fmt.Fprintf(w, "  Avg:    %s\n", FormatDuration(r.Latency.Avg))
		fmt.Fprintf(w, "  P50:    %s\n", FormatDuration(r.Latency.P50))
		fmt.Fprintf(w, "  P95:    %s\n", FormatDuration(r.Latency.P95))
		fmt.Fprintf(w, "  P99:    %s\n", FormatDuration(r.Latency.P99))
		fmt.Fprintf(w, "  Max:    %s\n", FormatDuration(r.Latency.Max))
	}

	if len(r.Failures) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Failures:")
		for _, f := range r.TopFailures(maxFailureLines) {
			fmt.Fprintf(w, "  %5dx %s\n", f.Count, f.Detail)
		}
		if extra := len(r.Failures) - maxFailureLines; extra > 0 {
			fmt.Fprintf(w, "  ... and %d more distinct failures\n", extra)
		}
	}

	if checks != nil && len(checks.Results) > 0 {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, "Expectations:")
		for _, result := range checks.Results {
			symbol := "✓"
			if !result.Passed {
				symbol = "✗"
			}
			fmt.Fprintf(w, "  %s %s %s (actual: %s)\n",
				symbol, result.Name, result.Expected, result.Actual)
		}
	}
}

// jsonReport keeps the field names of the browser client's LoadTestResult
// so existing dashboards can read the output unchanged.
type jsonReport struct {
	TicketID      int64                `json:"ticketId"`
	TotalRequests int                  `json:"totalRequests"`
	SuccessCount  int                  `json:"successCount"`
	ConflictCount int                  `json:"conflictCount"`
	OtherErrors   int                  `json:"otherErrors"`
	Duration      int64                `json:"duration"`
	WinnerUserID  *int64               `json:"winnerUserId,omitempty"`
	Acquirers     []int64              `json:"acquirers"`
	Throughput    float64              `json:"throughput"`
	Latency       jsonLatency          `json:"latency"`
	Failures      []core.FailureDetail `json:"failures"`
	Expectations  *CheckResults        `json:"expectations,omitempty"`
}

type jsonLatency struct {
	Min string `json:"min"`
	Max string `json:"max"`
	Avg string `json:"avg"`
	P50 string `json:"p50"`
	P90 string `json:"p90"`
	P95 string `json:"p95"`
	P99 string `json:"p99"`
}

// FormatJSON writes the run report as indented JSON. Duration is in
// milliseconds.
func FormatJSON(w io.Writer, r *core.RunReport, checks *CheckResults) error {
	out := jsonReport{
		TicketID:      int64(r.Target),
		TotalRequests: r.Total,
		SuccessCount:  r.Acquired,
		ConflictCount: r.Conflict,
		OtherErrors:   r.Other,
		Duration:      r.Elapsed.Milliseconds(),
		Acquirers:     make([]int64, 0, len(r.Acquirers)),
		Throughput:    r.Throughput(),
		Latency: jsonLatency{
			Min: FormatDuration(r.Latency.Min),
			Max: FormatDuration(r.Latency.Max),
			Avg: FormatDuration(r.Latency.Avg),
			P50: FormatDuration(r.Latency.P50),
			P90: FormatDuration(r.Latency.P90),
			P95: FormatDuration(r.Latency.P95),
			P99: FormatDuration(r.Latency.P99),
		},
		Failures:     r.TopFailures(0),
		Expectations: checks,
	}
	if r.Winner != nil {
		winner := int64(*r.Winner)
		out.WinnerUserID = &winner
	}
	for _, a := range r.Acquirers {
		out.Acquirers = append(out.Acquirers, int64(a))
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// FormatDuration formats a duration for display.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return d.Round(time.Second).String()
	}
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	return fmt.Sprintf("%d,%03d", n/1000, n%1000)
}

func joinActors(actors []core.ActorID) string {
	parts := make([]string, len(actors))
	for i, a := range actors {
		parts[i] = fmt.Sprintf("%d", a)
	}
	return strings.Join(parts, ", ")
}
