// Package ratelimit paces booking attempts when an operator asks for it.
// A run is unthrottled by default so that contention on the target is
// maximal; pacing exists for backends that cannot absorb a full burst.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket shared by all attempts of a run. A nil
// *Limiter is valid and never waits.
type Limiter struct {
	limiter *rate.Limiter
}

// New returns a limiter admitting rps attempts per second with the given
// burst. It returns nil (no limiting) when rps <= 0. A burst <= 0 defaults
// to rps.
func New(rps, burst int) *Limiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = rps
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until an attempt may start or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// RPS returns the configured rate, 0 for a nil limiter.
func (l *Limiter) RPS() float64 {
	if l == nil {
		return 0
	}
	return float64(l.limiter.Limit())
}
