package collector

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"flashtix/internal/core"
)

// Expectations defines pass/fail criteria for a run. A correct backend
// under contention yields exactly one acquired booking, so the usual
// configuration is `acquired: 1` plus a tolerance for transport errors.
type Expectations struct {
	Acquired     *int           `yaml:"acquired,omitempty"`
	MaxOtherRate string         `yaml:"max_other_rate,omitempty"`
	MaxDuration  time.Duration  `yaml:"max_duration,omitempty"`
	Latency      *LatencyLimits `yaml:"latency,omitempty"`
}

// LatencyLimits bounds attempt latency. Zero values are not checked.
type LatencyLimits struct {
	Avg time.Duration `yaml:"avg"`
	P50 time.Duration `yaml:"p50"`
	P90 time.Duration `yaml:"p90"`
	P95 time.Duration `yaml:"p95"`
	P99 time.Duration `yaml:"p99"`
}

// CheckResult is the outcome of a single expectation.
type CheckResult struct {
	Name     string `json:"name"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
}

// CheckResults holds every evaluated expectation.
type CheckResults struct {
	Passed  bool          `json:"passed"`
	Results []CheckResult `json:"results"`
}

// Validate reports malformed expectations before a run starts.
func (e *Expectations) Validate() error {
	if e == nil {
		return nil
	}
	if e.Acquired != nil && *e.Acquired < 0 {
		return fmt.Errorf("expect.acquired must be >= 0, got %d", *e.Acquired)
	}
	if e.MaxOtherRate != "" {
		rate, err := parsePercentage(e.MaxOtherRate)
		if err != nil {
			return fmt.Errorf("expect.max_other_rate: %w", err)
		}
		if rate < 0 || rate > 100 {
			return fmt.Errorf("expect.max_other_rate must be within 0%%-100%%, got %s", e.MaxOtherRate)
		}
	}
	if e.MaxDuration < 0 {
		return fmt.Errorf("expect.max_duration must be >= 0, got %v", e.MaxDuration)
	}
	return nil
}

// Check evaluates the expectations against a finalized report.
func (e *Expectations) Check(r *core.RunReport) *CheckResults {
	results := &CheckResults{Passed: true, Results: make([]CheckResult, 0)}
	if e == nil {
		return results
	}

	if e.Acquired != nil {
		results.add(CheckResult{
			Name:     "acquired",
			Passed:   r.Acquired == *e.Acquired,
			Expected: fmt.Sprintf("== %d", *e.Acquired),
			Actual:   strconv.Itoa(r.Acquired),
		})
	}

	if e.MaxOtherRate != "" {
		if limit, err := parsePercentage(e.MaxOtherRate); err == nil {
			actual := otherRate(r)
			results.add(CheckResult{
				Name:     "other_rate",
				Passed:   actual <= limit,
				Expected: "<= " + e.MaxOtherRate,
				Actual:   fmt.Sprintf("%.2f%%", actual),
			})
		}
	}

	if e.MaxDuration > 0 {
		results.add(CheckResult{
			Name:     "duration",
			Passed:   r.Elapsed <= e.MaxDuration,
			Expected: "<= " + FormatDuration(e.MaxDuration),
			Actual:   FormatDuration(r.Elapsed),
		})
	}

	if e.Latency != nil {
		results.checkLatency(e.Latency, r.Latency)
	}

	return results
}

func (c *CheckResults) checkLatency(limits *LatencyLimits, actual core.Latency) {
	checks := []struct {
		name   string
		limit  time.Duration
		actual time.Duration
	}{
		{"latency.avg", limits.Avg, actual.Avg},
		{"latency.p50", limits.P50, actual.P50},
		{"latency.p90", limits.P90, actual.P90},
		{"latency.p95", limits.P95, actual.P95},
		{"latency.p99", limits.P99, actual.P99},
	}

	for _, check := range checks {
		if check.limit == 0 {
			continue
		}
		c.add(CheckResult{
			Name:     check.name,
			Passed:   check.actual < check.limit,
			Expected: "< " + FormatDuration(check.limit),
			Actual:   FormatDuration(check.actual),
		})
	}
}

func (c *CheckResults) add(result CheckResult) {
	if !result.Passed {
		c.Passed = false
	}
	c.Results = append(c.Results, result)
}

// Failed returns only the failed checks.
func (c *CheckResults) Failed() []CheckResult {
	failed := make([]CheckResult, 0)
	for _, result := range c.Results {
		if !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

func otherRate(r *core.RunReport) float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Other) / float64(r.Total) * 100
}

func parsePercentage(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, fmt.Errorf("invalid percentage format: %s", s)
	}
	return strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64)
}
