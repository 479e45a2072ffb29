package api

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate is a bounded-concurrency admission gate. Two run-global gates
// exist per purge run, one for listing fan-out and one for deletion
// fan-out, so aggregate backend load stays under a configured ceiling
// no matter how many resource kinds are in flight.
type Gate struct {
	sem *semaphore.Weighted
}

// NewGate creates a gate admitting at most n concurrent operations.
func NewGate(n int) *Gate {
	if n < 1 {
		n = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(n))}
}

// Do runs fn once a slot is available. Acquisition respects ctx, but a
// running fn is never interrupted by the gate.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	return fn()
}
