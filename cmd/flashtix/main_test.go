package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"flashtix/internal/core"
	"flashtix/testserver"
)

func startBackend(t *testing.T, opts testserver.Options) string {
	t.Helper()
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	ts := httptest.NewServer(testserver.New(opts).Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func bookURL(base string) string {
	return base + "/api/tickets/book?ticketId=${ticket}&userId=${actor}"
}

func TestRun_TextReportAgainstCorrectBackend(t *testing.T) {
	base := startBackend(t, testserver.Options{Delay: time.Millisecond})

	var stdout, stderr core.MockWriter
	code := run(context.Background(), []string{
		"--url", bookURL(base),
		"--seed", "--seed-url", base + "/api/tickets/seed",
		"--actors", "50",
		"--expect-one",
	}, &stdout, &stderr)

	if code != ExitSuccess {
		t.Fatalf("expected exit %d, got %d\nstderr: %s", ExitSuccess, code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"Total Requests: 50", "Acquired:  1", "Conflict:  49", "✓ acquired == 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in report, got:\n%s", want, out)
		}
	}
	if !strings.Contains(stderr.String(), "Seed: Created 100 Seats!") {
		t.Errorf("expected seed reply on stderr, got %q", stderr.String())
	}
	if !strings.Contains(stderr.String(), "Flashtix starting: 50 actors racing for ticket 1") {
		t.Errorf("expected start banner on stderr, got %q", stderr.String())
	}
}

func TestRun_JSONReport(t *testing.T) {
	base := startBackend(t, testserver.Options{})

	var stdout, stderr core.MockWriter
	code := run(context.Background(), []string{
		"--url", bookURL(base),
		"--seed", "--seed-url", base + "/api/tickets/seed",
		"-n", "10", "-t", "3", "-o", "json", "-q",
	}, &stdout, &stderr)

	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d\nstderr: %s", code, stderr.String())
	}

	var report map[string]any
	if err := json.Unmarshal([]byte(stdout.String()), &report); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout.String())
	}
	if report["ticketId"] != float64(3) || report["totalRequests"] != float64(10) || report["successCount"] != float64(1) {
		t.Errorf("unexpected report %v", report)
	}
	if stderr.String() != "" {
		t.Errorf("expected no stderr output in quiet mode, got %q", stderr.String())
	}
}

func TestRun_ExpectationFailure(t *testing.T) {
	base := startBackend(t, testserver.Options{Delay: 50 * time.Millisecond, Unsafe: true})

	var stdout, stderr core.MockWriter
	code := run(context.Background(), []string{
		"--url", bookURL(base),
		"--seed", "--seed-url", base + "/api/tickets/seed",
		"--actors", "20", "--expect-one", "--quiet",
	}, &stdout, &stderr)

	if code != ExitExpectationFailed {
		t.Fatalf("expected exit %d, got %d\nstdout: %s", ExitExpectationFailed, code, stdout.String())
	}
	if !strings.Contains(stdout.String(), "WARNING") {
		t.Errorf("expected multi-winner warning, got:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Expectation check failed!") {
		t.Errorf("expected failure notice on stderr, got %q", stderr.String())
	}
}

func TestRun_ConfigFile(t *testing.T) {
	base := startBackend(t, testserver.Options{Seats: 5})

	content := `
booking:
  url: "` + bookURL(base) + `"
  seed_url: "` + base + `/api/tickets/seed"
  timeout: 2s
run:
  ticket: 5
  actors: 7
  base_actor: 2000
expect:
  acquired: 1
  max_other_rate: "0%"
`
	path := filepath.Join(t.TempDir(), "flashtix.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	var stdout, stderr core.MockWriter
	code := run(context.Background(), []string{"--config", path, "--seed", "-q", "-o", "json"}, &stdout, &stderr)
	if code != ExitSuccess {
		t.Fatalf("expected exit 0, got %d\nstderr: %s\nstdout: %s", code, stderr.String(), stdout.String())
	}

	var report struct {
		TicketID      int64 `json:"ticketId"`
		TotalRequests int   `json:"totalRequests"`
		WinnerUserID  int64 `json:"winnerUserId"`
	}
	if err := json.Unmarshal([]byte(stdout.String()), &report); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if report.TicketID != 5 || report.TotalRequests != 7 {
		t.Errorf("expected config values to be used, got %+v", report)
	}
	if report.WinnerUserID < 2000 || report.WinnerUserID > 2006 {
		t.Errorf("expected winner from base actor 2000, got %d", report.WinnerUserID)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad output", []string{"--output", "xml"}, "--output must be"},
		{"too many actors", []string{"--actors", "1001", "--url", "http://127.0.0.1:1/book?u=${actor}"}, "invalid argument"},
		{"zero actors", []string{"--actors", "0", "--url", "http://127.0.0.1:1/book?u=${actor}"}, "invalid argument"},
		{"url without actor", []string{"--url", "http://127.0.0.1:1/book"}, "${actor}"},
		{"missing config", []string{"--config", "/nonexistent/flashtix.yaml"}, "reading config file"},
		{"seed without url", []string{"--seed"}, "no seed_url configured"},
		{"unknown flag", []string{"--bogus"}, "unknown flag: --bogus"},
		{"non-numeric actors", []string{"--actors", "many"}, "invalid argument \"many\""},
		{"zero base actor", []string{"--base-actor", "0", "--url", "http://127.0.0.1:1/book?u=${actor}"}, "run.base_actor must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr core.MockWriter
			code := run(context.Background(), tt.args, &stdout, &stderr)
			if code != ExitError {
				t.Errorf("expected exit %d, got %d", ExitError, code)
			}
			if !strings.Contains(stderr.String(), tt.wantErr) {
				t.Errorf("expected %q on stderr, got %q", tt.wantErr, stderr.String())
			}
			if stdout.String() != "" {
				t.Errorf("expected no report, got %q", stdout.String())
			}
		})
	}
}

func TestRun_Help(t *testing.T) {
	var stdout, stderr core.MockWriter
	if code := run(context.Background(), []string{"--help"}, &stdout, &stderr); code != ExitSuccess {
		t.Errorf("expected exit 0 for --help, got %d", code)
	}
	if !strings.Contains(stderr.String(), "--actors") {
		t.Errorf("expected usage on stderr, got %q", stderr.String())
	}
}

func TestRun_InterruptedRunStillReports(t *testing.T) {
	base := startBackend(t, testserver.Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr core.MockWriter
	code := run(ctx, []string{"--url", bookURL(base), "--actors", "5"}, &stdout, &stderr)

	if code != ExitSuccess {
		t.Errorf("expected exit 0 for interrupted run, got %d", code)
	}
	if !strings.Contains(stdout.String(), "Other:     5") {
		t.Errorf("expected all attempts recorded as failures, got:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "Run interrupted") {
		t.Errorf("expected interruption notice, got %q", stderr.String())
	}
}
