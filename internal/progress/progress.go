// Package progress draws a single-line terminal progress bar fed by the
// simulator's onProgress callback.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const barWidth = 30

// Bar renders run progress as a percentage line on a terminal. Safe for
// concurrent use.
type Bar struct {
	total     int
	quiet     bool
	output    io.Writer
	startTime time.Time

	mu      sync.Mutex
	percent int // last drawn whole percent, -1 before the first draw
	stopped bool
}

// NewBar returns a bar for a run of total attempts. A quiet bar prints
// nothing.
func NewBar(total int, quiet bool) *Bar {
	return &Bar{
		total:     total,
		quiet:     quiet,
		output:    os.Stderr,
		startTime: time.Now(),
		percent:   -1,
	}
}

// SetOutput redirects the bar, e.g. to a buffer in tests.
func (b *Bar) SetOutput(w io.Writer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.output = w
}

// Update redraws the bar for fraction in [0, 1]. The line is only
// rewritten when the whole percentage changes.
func (b *Bar) Update(fraction float64) {
	if b.quiet {
		return
	}
	fraction = min(max(fraction, 0), 1)
	percent := int(fraction * 100)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped || percent == b.percent {
		return
	}
	b.percent = percent

	filled := int(fraction * barWidth)
	done := int(fraction*float64(b.total) + 0.5)
	elapsed := time.Since(b.startTime).Round(time.Millisecond)
	fmt.Fprintf(b.output, "\r\033[K[%s%s] %3d%% %d/%d %s",
		strings.Repeat("=", filled), strings.Repeat(" ", barWidth-filled),
		percent, done, b.total, elapsed)
}

// Stop clears the bar line. Later updates are ignored.
func (b *Bar) Stop() {
	if b.quiet {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	if b.percent >= 0 {
		fmt.Fprint(b.output, "\r\033[K")
	}
}

// Printf prints a status line above the bar.
func (b *Bar) Printf(format string, args ...any) {
	if b.quiet {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	fmt.Fprintf(b.output, "\r\033[K"+format+"\n", args...)
}
