package graph

import (
	"context"
	"sync"

	"github.com/chartflow/chartflow/log"
)

func quiet(opts ...Option) *Graph {
	return New(append([]Option{WithLogger(&log.NoOpLogger{})}, opts...)...)
}

// trail records calls made by flows and callbacks in order.
type trail struct {
	mu    sync.Mutex
	calls []string
}

func (t *trail) add(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, s)
}

func (t *trail) list() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.calls...)
}

func (t *trail) count(s string) int {
	n := 0
	for _, c := range t.list() {
		if c == s {
			n++
		}
	}
	return n
}

type recorder struct {
	mu     sync.Mutex
	events []FlowEvent
}

func (r *recorder) OnFlowEvent(_ context.Context, e FlowEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) find(typ EventType) []FlowEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FlowEvent
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// waiter collects the outcome of an update callback.
type waiter chan error

func newWaiter() waiter { return make(waiter, 1) }

func (w waiter) done(err error) { w <- err }
