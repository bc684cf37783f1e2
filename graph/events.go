package graph

import (
	"sync"
)

// EventHandler handles an event payload.
type EventHandler func(payload any)

// EventTarget is an external event source a graph can subscribe to.
// On returns a function removing the subscription.
type EventTarget interface {
	On(event string, handler EventHandler) (off func())
}

type subscription struct {
	id      uint64
	handler EventHandler
}

// Emitter is an in-process EventTarget. Handlers run synchronously in
// subscription order on the goroutine calling Emit.
type Emitter struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[string][]subscription
}

var _ EventTarget = (*Emitter)(nil)

// NewEmitter creates an emitter without subscribers
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]subscription)}
}

// On subscribes handler to event. Calling off more than once is harmless.
func (e *Emitter) On(event string, handler EventHandler) (off func()) {
	e.mu.Lock()
	e.nextID++
	id := e.nextID
	e.handlers[event] = append(e.handlers[event], subscription{id: id, handler: handler})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.remove(event, id) })
	}
}

func (e *Emitter) remove(event string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.handlers[event]
	for i, s := range subs {
		if s.id == id {
			e.handlers[event] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(e.handlers[event]) == 0 {
		delete(e.handlers, event)
	}
}

// Emit calls the handlers of event and returns how many ran.
func (e *Emitter) Emit(event string, payload any) int {
	e.mu.RLock()
	subs := make([]subscription, len(e.handlers[event]))
	copy(subs, e.handlers[event])
	e.mu.RUnlock()

	for _, s := range subs {
		s.handler(payload)
	}
	return len(subs)
}

// Count returns the number of handlers subscribed to event
func (e *Emitter) Count(event string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.handlers[event])
}
