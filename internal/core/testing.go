package core

import (
	"strings"
	"sync"
)

// MockWriter is a thread-safe io.Writer that captures output in tests.
type MockWriter struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (w *MockWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *MockWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

// Count returns how many times substr occurs in the captured output.
func (w *MockWriter) Count(substr string) int {
	return strings.Count(w.String(), substr)
}
