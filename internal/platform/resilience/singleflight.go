package resilience

import (
	"context"
	"sync"
)

// SingleFlight deduplicates concurrent calls for the same key. Callers that
// arrive while a call is running share its result.
type SingleFlight[T any] struct {
	mu    sync.Mutex
	calls map[string]*flightCall[T]
}

type flightCall[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (T, error, bool) {
	c, leader := g.join(key)
	if leader {
		g.run(key, c, fn)
	} else {
		<-c.done
	}
	return c.val, c.err, !leader
}

// DoContext is Do for callers that give up when ctx is done. The shared call
// keeps running for the callers still waiting on it.
func (g *SingleFlight[T]) DoContext(ctx context.Context, key string, fn func() (T, error)) (T, error, bool) {
	c, leader := g.join(key)
	if leader {
		go g.run(key, c, fn)
	}

	select {
	case <-c.done:
		return c.val, c.err, !leader
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err(), !leader
	}
}

func (g *SingleFlight[T]) join(key string) (*flightCall[T], bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.calls == nil {
		g.calls = make(map[string]*flightCall[T])
	}
	if c, ok := g.calls[key]; ok {
		return c, false
	}
	c := &flightCall[T]{done: make(chan struct{})}
	g.calls[key] = c
	return c, true
}

func (g *SingleFlight[T]) run(key string, c *flightCall[T], fn func() (T, error)) {
	defer func() {
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
		close(c.done)
	}()

	c.val, c.err = fn()
}
