package delivery

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/yanizio/serenity/internal/contact"
)

// ErrSimulatedFailure is returned by Simulated for the configured share of
// calls.
var ErrSimulatedFailure = errors.New("simulated delivery failure")

// Simulated waits a random delay in [MinDelay, MaxDelay] and then succeeds,
// unless the FailureRate roll says otherwise.
type Simulated struct {
	MinDelay    time.Duration
	MaxDelay    time.Duration
	FailureRate float64

	// roll returns a float in [0,1).  Nil means math/rand.
	roll func() float64
}

func (s *Simulated) Name() string { return "simulate" }

// Deliver implements contact.Transport.
func (s *Simulated) Deliver(ctx context.Context, _ contact.Submission) error {
	roll := s.roll
	if roll == nil {
		roll = rand.Float64
	}

	d := s.MinDelay
	if span := s.MaxDelay - s.MinDelay; span > 0 {
		d += time.Duration(roll() * float64(span))
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	if s.FailureRate > 0 && roll() < s.FailureRate {
		return ErrSimulatedFailure
	}
	return nil
}
