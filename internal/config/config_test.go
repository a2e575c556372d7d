package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if cfg.Run.BaseActor != 1000 {
		t.Errorf("expected base actor 1000, got %d", cfg.Run.BaseActor)
	}
	if len(cfg.Booking.ConflictStatuses) != 1 || cfg.Booking.ConflictStatuses[0] != 409 {
		t.Errorf("expected conflict statuses [409], got %v", cfg.Booking.ConflictStatuses)
	}
}

func TestDefault_ReturnsFreshMaps(t *testing.T) {
	a := Default()
	a.Booking.Headers["X-Test"] = "1"

	b := Default()
	if _, ok := b.Booking.Headers["X-Test"]; ok {
		t.Error("expected Default to return independent header maps")
	}
}

func TestLoadConfig_OverlaysDefaults(t *testing.T) {
	content := `
booking:
  url: "http://tickets.internal/api/tickets/book?ticketId=${ticket}&userId=${actor}"
  headers:
    Authorization: "Bearer ${env:TICKETS_TOKEN}"
run:
  ticket: 42
  actors: 500
`
	cfg := loadConfigFromString(t, content)

	if cfg.Booking.Method != "POST" {
		t.Errorf("expected default method POST, got %q", cfg.Booking.Method)
	}
	if cfg.Booking.Timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %v", cfg.Booking.Timeout)
	}
	if cfg.Booking.OwnerPath != "$.userId" {
		t.Errorf("expected default owner path, got %q", cfg.Booking.OwnerPath)
	}
	if cfg.Booking.Headers["Authorization"] != "Bearer ${env:TICKETS_TOKEN}" {
		t.Errorf("expected Authorization header, got %v", cfg.Booking.Headers)
	}
	if cfg.Run.Ticket != 42 || cfg.Run.Actors != 500 {
		t.Errorf("expected ticket 42 and 500 actors, got %+v", cfg.Run)
	}
	if cfg.Run.BaseActor != 1000 {
		t.Errorf("expected default base actor, got %d", cfg.Run.BaseActor)
	}
	if cfg.Expect != nil {
		t.Error("expected no expectations")
	}
}

func TestLoadConfig_FullFile(t *testing.T) {
	content := `
booking:
  method: put
  url: "http://localhost:9090/book/${ticket}"
  seed_url: "http://localhost:9090/seed"
  headers:
    Content-Type: application/json
  body: '{"userId": ${actor}}'
  timeout: 2s
  conflict_statuses: [409, 423]
  owner_path: "$.data.userId"
  message_path: "$.error"
  rps: 200
  burst: 20
run:
  ticket: 7
  actors: 1000
  base_actor: 5000
expect:
  acquired: 1
  max_other_rate: "5%"
  max_duration: 30s
  latency:
    p95: 500ms
    p99: 1s
`
	cfg := loadConfigFromString(t, content)

	b := cfg.Booking
	if b.Method != "PUT" {
		t.Errorf("expected method normalized to PUT, got %q", b.Method)
	}
	if b.SeedURL != "http://localhost:9090/seed" {
		t.Errorf("unexpected seed url %q", b.SeedURL)
	}
	if b.Timeout != 2*time.Second {
		t.Errorf("expected timeout 2s, got %v", b.Timeout)
	}
	if len(b.ConflictStatuses) != 2 || b.ConflictStatuses[1] != 423 {
		t.Errorf("expected conflict statuses [409 423], got %v", b.ConflictStatuses)
	}
	if b.OwnerPath != "$.data.userId" || b.MessagePath != "$.error" {
		t.Errorf("unexpected paths: owner=%q message=%q", b.OwnerPath, b.MessagePath)
	}
	if b.RPS != 200 || b.Burst != 20 {
		t.Errorf("expected rps 200 burst 20, got %d/%d", b.RPS, b.Burst)
	}
	if cfg.Run.BaseActor != 5000 {
		t.Errorf("expected base actor 5000, got %d", cfg.Run.BaseActor)
	}

	if cfg.Expect == nil {
		t.Fatal("expected expectations to be set")
	}
	if cfg.Expect.Acquired == nil || *cfg.Expect.Acquired != 1 {
		t.Errorf("expected acquired 1, got %v", cfg.Expect.Acquired)
	}
	if cfg.Expect.MaxDuration != 30*time.Second {
		t.Errorf("expected max duration 30s, got %v", cfg.Expect.MaxDuration)
	}
	if cfg.Expect.Latency == nil || cfg.Expect.Latency.P99 != time.Second {
		t.Errorf("expected p99 limit 1s, got %+v", cfg.Expect.Latency)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing actor placeholder",
			content: "booking:\n  url: \"http://localhost/book?ticketId=${ticket}\"\n",
			wantErr: "${actor}",
		},
		{
			name:    "zero timeout",
			content: "booking:\n  timeout: 0s\n",
			wantErr: "booking.timeout",
		},
		{
			name:    "bad conflict status",
			content: "booking:\n  conflict_statuses: [40]\n",
			wantErr: "invalid HTTP status 40",
		},
		{
			name:    "negative rps",
			content: "booking:\n  rps: -1\n",
			wantErr: "booking.rps",
		},
		{
			name:    "bad expectation",
			content: "expect:\n  max_other_rate: \"five\"\n",
			wantErr: "max_other_rate",
		},
		{
			name:    "empty method",
			content: "booking:\n  method: \"  \"\n",
			wantErr: "booking.method",
		},
		{
			name:    "zero base actor",
			content: "run:\n  base_actor: 0\n",
			wantErr: "run.base_actor",
		},
		{
			name:    "negative base actor",
			content: "run:\n  base_actor: -5\n",
			wantErr: "run.base_actor",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(createTempFile(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfig_ReportsAllProblems(t *testing.T) {
	content := "booking:\n  url: \"http://localhost/book\"\n  timeout: -1s\n"
	_, err := LoadConfig(createTempFile(t, content))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "${actor}") || !strings.Contains(err.Error(), "booking.timeout") {
		t.Errorf("expected both problems reported, got %v", err)
	}
}

func TestLoadConfig_ActorInBodyIsEnough(t *testing.T) {
	content := `
booking:
  url: "http://localhost/book"
  body: '{"userId": ${actor}}'
`
	cfg := loadConfigFromString(t, content)
	if cfg.Booking.Body == "" {
		t.Error("expected body to be set")
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("expected reading error, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	content := `
booking:
  url: "Invalid
  headers: [[[invalid
`
	_, err := LoadConfig(createTempFile(t, content))
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("expected parsing error, got %v", err)
	}
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	cfg, err := LoadConfig(createTempFile(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Booking.URL != DefaultURL {
		t.Errorf("expected default URL, got %q", cfg.Booking.URL)
	}
}

// Helper functions

func loadConfigFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := LoadConfig(createTempFile(t, content))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func createTempFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	return tmpFile
}
