// Package booking sends booking attempts to a ticket backend over HTTP and
// folds every response or failure into a core.Outcome.
package booking

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"flashtix/internal/config"
	"flashtix/internal/core"
	"flashtix/internal/ratelimit"
	"flashtix/internal/template"

	"github.com/google/uuid"
)

const (
	// maxResponseBodySize limits the response body read for classification.
	maxResponseBodySize = 64 * 1024
	// maxIdleConnsPerHost keeps a full crowd of actors on warm connections.
	maxIdleConnsPerHost = 1000

	headerRequestID = "X-Request-ID"
)

// ErrNoSeedURL is returned by Seed when no seed endpoint is configured.
var ErrNoSeedURL = errors.New("no seed_url configured")

// Options carries the optional collaborators of a Client.
type Options struct {
	// HTTPClient overrides the default pooled client; its own Timeout
	// applies.
	HTTPClient *http.Client
	Debug      *DebugLogger
	Limiter    *ratelimit.Limiter
}

// Client is a core.Booker talking to an HTTP ticket backend. Safe for
// concurrent use.
type Client struct {
	request    template.Request
	seedURL    string
	classifier Classifier
	client     *http.Client
	debug      *DebugLogger
	limiter    *ratelimit.Limiter
}

var _ core.Booker = (*Client)(nil)

// NewClient builds a client from a validated booking configuration.
func NewClient(cfg config.BookingConfig, opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = newHTTPClient(cfg.Timeout)
	}
	return &Client{
		request: cfg.Request(),
		seedURL: cfg.SeedURL,
		classifier: Classifier{
			ConflictStatuses: cfg.ConflictStatuses,
			OwnerPath:        cfg.OwnerPath,
			MessagePath:      cfg.MessagePath,
		},
		client:  client,
		debug:   opts.Debug,
		limiter: opts.Limiter,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = maxIdleConnsPerHost
	transport.MaxIdleConnsPerHost = maxIdleConnsPerHost
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Book performs one booking attempt of target by actor. It never returns
// an error: transport failures, timeouts and unexpected responses are all
// reported as OtherFailure outcomes.
func (c *Client) Book(ctx context.Context, target core.Target, actor core.ActorID) core.Outcome {
	out := core.Outcome{Kind: core.OtherFailure, Actor: actor}

	if target <= 0 || actor <= 0 {
		out.Detail = "invalid identifier"
		return out
	}

	if err := c.limiter.Wait(ctx); err != nil {
		out.Detail = describeError(err)
		return out
	}

	rendered, err := c.request.Render(core.AttemptVariables(target, actor))
	if err != nil {
		out.Detail = "render request: " + err.Error()
		return out
	}

	var body io.Reader
	if rendered.Body != "" {
		body = strings.NewReader(rendered.Body)
	}
	req, err := http.NewRequestWithContext(ctx, rendered.Method, rendered.URL, body)
	if err != nil {
		out.Detail = "build request: " + err.Error()
		return out
	}
	for k, v := range rendered.Headers {
		req.Header.Set(k, v)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerRequestID, requestID)

	c.debug.LogAttempt(requestID, actor, req, rendered.Body)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		out.Latency = time.Since(start)
		out.Detail = describeError(err)
		c.debug.LogError(requestID, actor, out.Detail, out.Latency)
		return out
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	_, _ = io.Copy(io.Discard, resp.Body) // drain so the connection is reused
	out.Latency = time.Since(start)
	out.StatusCode = resp.StatusCode
	if err != nil {
		out.Detail = "reading response: " + describeError(err)
		c.debug.LogError(requestID, actor, out.Detail, out.Latency)
		return out
	}

	out.Kind, out.Detail = c.classifier.Classify(resp.StatusCode, respBody, actor)
	c.debug.LogOutcome(requestID, resp, respBody, out)
	return out
}

// Seed asks the backend to create its seat inventory and returns the
// backend's reply, e.g. "Created 100 Seats!".
func (c *Client) Seed(ctx context.Context) (string, error) {
	if c.seedURL == "" {
		return "", ErrNoSeedURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.seedURL, nil)
	if err != nil {
		return "", fmt.Errorf("seed: %w", err)
	}
	req.Header.Set(headerRequestID, uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("seed: %s", describeError(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return "", fmt.Errorf("seed: reading response: %w", err)
	}
	reply := strings.TrimSpace(string(body))
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("seed: %s: %s", resp.Status, reply)
	}
	return reply, nil
}

// describeError turns a transport error into a stable diagnostic. The
// *url.Error wrapper carries the per-actor URL, so it is stripped to keep
// identical failures grouped in the report.
func describeError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout: deadline exceeded"
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "timeout: " + urlErr.Err.Error()
		}
		return urlErr.Err.Error()
	}
	return err.Error()
}
