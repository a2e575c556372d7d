// Package simulator runs a booking race: a crowd of synthetic users tries
// to book the same ticket at the same moment and the outcomes are folded
// into a single report.
package simulator

import (
	"context"
	"fmt"

	"flashtix/internal/collector"
	"flashtix/internal/core"

	"golang.org/x/sync/errgroup"
)

const (
	MinActors = 1
	MaxActors = 1000

	// DefaultBaseActor is the id of the first synthetic user. Actor i is
	// DefaultBaseActor+i.
	DefaultBaseActor core.ActorID = 1000
)

// Simulator launches one booking attempt per actor against a Booker.
type Simulator struct {
	Booker core.Booker
	// BaseActor is the first actor id. The unset zero value means
	// DefaultBaseActor; callers taking ids from users validate them first.
	BaseActor core.ActorID
	// Clock measures the run; nil means the wall clock.
	Clock core.Clock
}

// New returns a Simulator with default actor ids and the wall clock.
func New(booker core.Booker) *Simulator {
	return &Simulator{Booker: booker}
}

// Run issues actorCount concurrent booking attempts of target and returns
// the aggregated report once every attempt has finished.
//
// onProgress, when non-nil, is called once per finished attempt with the
// completed fraction; the calls are serialized and strictly increasing,
// ending at 1.0. Invalid arguments are rejected with core.ErrInvalidArgument
// before any attempt is made.
//
// Cancelling ctx does not abort the run: attempts observe the cancelled
// context, fail as OtherFailure, and the report still accounts for every
// actor.
func (s *Simulator) Run(ctx context.Context, target core.Target, actorCount int, onProgress func(float64)) (*core.RunReport, error) {
	if actorCount < MinActors || actorCount > MaxActors {
		return nil, fmt.Errorf("%w: actor count must be within [%d, %d], got %d",
			core.ErrInvalidArgument, MinActors, MaxActors, actorCount)
	}
	if target <= 0 {
		return nil, fmt.Errorf("%w: target must be positive, got %d", core.ErrInvalidArgument, target)
	}
	base := s.baseActor()
	if base <= 0 {
		return nil, fmt.Errorf("%w: base actor must be positive, got %d", core.ErrInvalidArgument, base)
	}
	if s.Booker == nil {
		return nil, fmt.Errorf("%w: no booker configured", core.ErrInvalidArgument)
	}

	clock := s.clock()
	acc := collector.NewAccumulator(target, actorCount, onProgress)
	start := clock.Now()

	var g errgroup.Group
	for i := 0; i < actorCount; i++ {
		actor := base + core.ActorID(i)
		g.Go(func() error {
			acc.Record(s.attempt(ctx, target, actor))
			return nil
		})
	}
	// Attempts never return errors; Wait is only a barrier.
	_ = g.Wait()

	return acc.Finalize(clock.Since(start)), nil
}

// attempt runs one booking and guarantees an outcome attributed to actor,
// even if the Booker panics.
func (s *Simulator) attempt(ctx context.Context, target core.Target, actor core.ActorID) (out core.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = core.Outcome{
				Kind:   core.OtherFailure,
				Actor:  actor,
				Detail: fmt.Sprintf("panic: %v", r),
			}
		}
	}()

	out = s.Booker.Book(ctx, target, actor)
	out.Actor = actor
	return out
}

func (s *Simulator) baseActor() core.ActorID {
	if s.BaseActor == 0 {
		return DefaultBaseActor
	}
	return s.BaseActor
}

func (s *Simulator) clock() core.Clock {
	if s.Clock == nil {
		return core.RealClock{}
	}
	return s.Clock
}
