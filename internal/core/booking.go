// Package core defines the domain types shared by the booking client,
// the load simulator and the report collector.
package core

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidArgument is returned when a run is requested with parameters
// outside the accepted range. No booking attempt is issued in that case.
var ErrInvalidArgument = errors.New("invalid argument")

// Target identifies the contended resource (seat/ticket id).
type Target int64

// ActorID identifies one synthetic user attempting to book the target.
type ActorID int64

// OutcomeKind classifies a single booking attempt.
type OutcomeKind int

const (
	// OtherFailure is any failure not caused by contention: transport
	// errors, timeouts, unexpected statuses, malformed bodies.
	OtherFailure OutcomeKind = iota
	// Acquired means the actor became the owner of the target.
	Acquired
	// Conflict means the target was already held or claimed by someone else.
	Conflict
)

func (k OutcomeKind) String() string {
	switch k {
	case Acquired:
		return "acquired"
	case Conflict:
		return "conflict"
	default:
		return "other"
	}
}

// Outcome is the classified result of one booking attempt.
type Outcome struct {
	Kind       OutcomeKind
	Actor      ActorID
	Detail     string // diagnostic for Conflict and OtherFailure
	StatusCode int    // 0 when no response was received
	Latency    time.Duration
}

// Booker performs a single booking attempt. Implementations must never
// return a raw transport error; every failure is folded into the Outcome.
type Booker interface {
	Book(ctx context.Context, target Target, actor ActorID) Outcome
}

// BookerFunc adapts a function to the Booker interface.
type BookerFunc func(ctx context.Context, target Target, actor ActorID) Outcome

func (f BookerFunc) Book(ctx context.Context, target Target, actor ActorID) Outcome {
	return f(ctx, target, actor)
}
