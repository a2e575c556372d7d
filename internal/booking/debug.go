package booking

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"flashtix/internal/core"
)

const maxBodyLogSize = 1024

// DebugLogger prints each attempt's request and response as one block.
// A nil *DebugLogger discards everything.
type DebugLogger struct {
	out io.Writer
	mu  sync.Mutex
}

func NewDebugLogger(out io.Writer) *DebugLogger {
	return &DebugLogger{out: out}
}

func (d *DebugLogger) LogAttempt(requestID string, actor core.ActorID, req *http.Request, body string) {
	if d == nil {
		return
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "\n[User %d] >>> BOOK %s\n", actor, requestID)
	fmt.Fprintf(&buf, "  %s %s\n", req.Method, req.URL.String())
	writeHeaders(&buf, req.Header)
	if body != "" {
		fmt.Fprintf(&buf, "  Body: %s\n", truncateBody([]byte(body)))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.out, buf.String())
}

func (d *DebugLogger) LogOutcome(requestID string, resp *http.Response, body []byte, out core.Outcome) {
	if d == nil {
		return
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[User %d] <<< %s %s (%s)\n", out.Actor, strings.ToUpper(out.Kind.String()),
		requestID, out.Latency.Round(time.Millisecond))
	fmt.Fprintf(&buf, "  Status: %s\n", resp.Status)
	if out.Detail != "" {
		fmt.Fprintf(&buf, "  Detail: %s\n", out.Detail)
	}
	if len(body) > 0 {
		fmt.Fprintf(&buf, "  Body: %s\n", truncateBody(body))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprint(d.out, buf.String())
}

func (d *DebugLogger) LogError(requestID string, actor core.ActorID, detail string, latency time.Duration) {
	if d == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, "[User %d] !!! ERROR %s (%s)\n  %s\n",
		actor, requestID, latency.Round(time.Millisecond), detail)
}

func writeHeaders(buf *bytes.Buffer, h http.Header) {
	if len(h) == 0 {
		return
	}
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	buf.WriteString("  Headers:\n")
	for _, name := range names {
		fmt.Fprintf(buf, "    %s: %s\n", name, strings.Join(h[name], ", "))
	}
}

func truncateBody(body []byte) string {
	if len(body) <= maxBodyLogSize {
		return string(body)
	}
	return string(body[:maxBodyLogSize]) + fmt.Sprintf("... (truncated, %d bytes total)", len(body))
}
