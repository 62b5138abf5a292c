package tasks

import (
	"context"
	"fmt"
	"sync"

	"git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"
)

// guard serializes runs of one task. Requests arriving during a run are
// folded into exactly one follow-up run whose result they all receive.
type guard struct {
	mu      sync.Mutex
	running bool
	waiters []chan error
}

// run executes fn unless a run is in progress, in which case it waits for the
// follow-up run. coalesced reports whether the caller waited. If fn panics the
// guard is released and pending waiters receive an internal error before the
// panic continues.
func (g *guard) run(ctx context.Context, fn func(context.Context) error) (coalesced bool, err error) {
	g.mu.Lock()
	if g.running {
		ch := make(chan error, 1)
		g.waiters = append(g.waiters, ch)
		g.mu.Unlock()
		select {
		case err := <-ch:
			return true, err
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
	g.running = true
	g.mu.Unlock()

	var handoff []chan error
	defer func() {
		if r := recover(); r != nil {
			g.release(handoff, errors.InternalError("task panicked").
				WithContext("panic", fmt.Sprint(r)).Build())
			panic(r)
		}
	}()

	err = fn(ctx)
	for {
		g.mu.Lock()
		handoff = g.waiters
		g.waiters = nil
		if len(handoff) == 0 {
			g.running = false
			g.mu.Unlock()
			return false, err
		}
		g.mu.Unlock()

		followUp := fn(ctx)
		for _, w := range handoff {
			w <- followUp
		}
		handoff = nil
	}
}

// release clears the running flag and fails every waiter, including the ones
// that were about to be served by an interrupted follow-up run.
func (g *guard) release(handoff []chan error, err error) {
	g.mu.Lock()
	handoff = append(handoff, g.waiters...)
	g.waiters = nil
	g.running = false
	g.mu.Unlock()
	for _, w := range handoff {
		w <- err
	}
}

// busy reports whether a run is in progress.
func (g *guard) busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}
