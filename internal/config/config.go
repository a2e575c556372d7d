// Package config handles YAML configuration parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"flashtix/internal/collector"
	"flashtix/internal/template"

	"gopkg.in/yaml.v3"
)

// Defaults match the ticket backend this tool was written against.
const (
	DefaultMethod      = "POST"
	DefaultURL         = "http://localhost:8080/api/tickets/book?ticketId=${ticket}&userId=${actor}"
	DefaultTimeout     = 10 * time.Second
	DefaultOwnerPath   = "$.userId"
	DefaultMessagePath = "$.message"
	DefaultTicket      = 1
	DefaultActors      = 10
	DefaultBaseActor   = 1000
)

// Config is the root configuration structure.
type Config struct {
	Booking BookingConfig           `yaml:"booking"`
	Run     RunConfig               `yaml:"run"`
	Expect  *collector.Expectations `yaml:"expect,omitempty"`
}

// BookingConfig describes how a single booking attempt is sent and how its
// response is classified.
type BookingConfig struct {
	Method  string            `yaml:"method"`
	URL     string            `yaml:"url"`
	SeedURL string            `yaml:"seed_url,omitempty"`
	Headers map[string]string `yaml:"headers"`
	Body    string            `yaml:"body"`
	Timeout time.Duration     `yaml:"timeout"`

	// ConflictStatuses are the HTTP statuses that mean "someone else has it".
	ConflictStatuses []int `yaml:"conflict_statuses"`
	// OwnerPath locates the owning user id in a success body. Empty skips
	// the ownership check.
	OwnerPath   string `yaml:"owner_path"`
	MessagePath string `yaml:"message_path"`

	RPS   int `yaml:"rps"` // 0 = unthrottled
	Burst int `yaml:"burst"`
}

// RunConfig selects the contested ticket and the size of the crowd.
type RunConfig struct {
	Ticket    int64 `yaml:"ticket"`
	Actors    int   `yaml:"actors"`
	BaseActor int64 `yaml:"base_actor"`
}

// Request returns the booking request template.
func (b BookingConfig) Request() template.Request {
	return template.Request{
		Method:  b.Method,
		URL:     b.URL,
		Headers: b.Headers,
		Body:    b.Body,
	}
}

// Default returns a runnable configuration targeting a local backend.
func Default() *Config {
	return &Config{
		Booking: BookingConfig{
			Method:           DefaultMethod,
			URL:              DefaultURL,
			Headers:          map[string]string{},
			Timeout:          DefaultTimeout,
			ConflictStatuses: []int{409},
			OwnerPath:        DefaultOwnerPath,
			MessagePath:      DefaultMessagePath,
		},
		Run: RunConfig{
			Ticket:    DefaultTicket,
			Actors:    DefaultActors,
			BaseActor: DefaultBaseActor,
		},
	}
}

// LoadConfig reads a YAML configuration file, overlays it on Default and
// validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes the method and checks every field a run depends on.
// Run sizes are checked by the simulator, which owns those limits.
func (c *Config) Validate() error {
	var errs []error

	b := &c.Booking
	b.Method = strings.ToUpper(strings.TrimSpace(b.Method))
	if b.Method == "" {
		errs = append(errs, errors.New("booking.method is required"))
	}
	if b.URL == "" {
		errs = append(errs, errors.New("booking.url is required"))
	} else if !b.Request().References("actor") {
		errs = append(errs, errors.New("booking request must reference ${actor} in url, headers or body"))
	}
	if b.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("booking.timeout must be positive, got %v", b.Timeout))
	}
	for _, status := range b.ConflictStatuses {
		if status < 100 || status > 599 {
			errs = append(errs, fmt.Errorf("booking.conflict_statuses: invalid HTTP status %d", status))
		}
	}
	if b.RPS < 0 {
		errs = append(errs, fmt.Errorf("booking.rps must be >= 0, got %d", b.RPS))
	}
	if b.Burst < 0 {
		errs = append(errs, fmt.Errorf("booking.burst must be >= 0, got %d", b.Burst))
	}

	if c.Run.BaseActor <= 0 {
		errs = append(errs, fmt.Errorf("run.base_actor must be positive, got %d", c.Run.BaseActor))
	}

	if err := c.Expect.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
