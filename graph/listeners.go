package graph

import (
	"context"
	"time"

	"github.com/chartflow/chartflow/log"
)

// EventType represents the different events emitted while a graph updates
type EventType string

const (
	// EventCycleStart indicates an update cycle has started
	EventCycleStart EventType = "cycle_start"

	// EventCycleEnd indicates an update cycle has finished, successfully or not
	EventCycleEnd EventType = "cycle_end"

	// EventFlowStart indicates a flow callback is about to run
	EventFlowStart EventType = "flow_start"

	// EventFlowComplete indicates a flow has produced its outputs
	EventFlowComplete EventType = "flow_complete"

	// EventFlowError indicates a flow failed
	EventFlowError EventType = "flow_error"

	// EventFlowSkip indicates a flow was due but some input is not populated yet
	EventFlowSkip EventType = "flow_skip"

	// EventBarrierWait indicates a barrier flow suspended the cycle
	EventBarrierWait EventType = "barrier_wait"

	// EventBarrierResume indicates a suspended barrier flow completed
	EventBarrierResume EventType = "barrier_resume"
)

// FlowEvent describes one scheduler event.
type FlowEvent struct {
	// Type is the kind of event
	Type EventType

	// GraphID and GraphName identify the emitting graph
	GraphID   string
	GraphName string

	// Cycle is the number of the cycle, starting at 1
	Cycle int64

	// Flow is the textual spec of the flow (empty for cycle events)
	Flow string

	// Index is the position of the flow in the registry
	Index int

	// Inputs holds the flow inputs for EventFlowStart
	Inputs []any

	// Outputs holds the flow outputs for EventFlowComplete
	Outputs []any

	// Changed lists the changed property names for cycle events
	Changed []string

	// Err is set for EventFlowError and failed EventCycleEnd
	Err error

	// Duration is set for completion events
	Duration time.Duration

	// Timestamp when the event occurred
	Timestamp time.Time
}

// FlowListener receives scheduler events. Events are delivered synchronously on
// the goroutine driving the cycle.
type FlowListener interface {
	OnFlowEvent(ctx context.Context, event FlowEvent)
}

// FlowListenerFunc is a function adapter for FlowListener
type FlowListenerFunc func(ctx context.Context, event FlowEvent)

// OnFlowEvent implements the FlowListener interface
func (f FlowListenerFunc) OnFlowEvent(ctx context.Context, event FlowEvent) {
	f(ctx, event)
}

// AddListener adds a listener to the graph
func (g *Graph) AddListener(l FlowListener) *Graph {
	g.lmu.Lock()
	defer g.lmu.Unlock()

	g.listeners = append(g.listeners, l)
	return g
}

// RemoveListener removes a listener from the graph. Listeners are compared by
// identity, so pass the same pointer that was added.
func (g *Graph) RemoveListener(l FlowListener) {
	g.lmu.Lock()
	defer g.lmu.Unlock()

	for i, existing := range g.listeners {
		if existing == l {
			g.listeners = append(g.listeners[:i], g.listeners[i+1:]...)
			break
		}
	}
}

// notify delivers event to every listener. A panicking listener is logged and
// does not affect the cycle or other listeners.
func (g *Graph) notify(ctx context.Context, event FlowEvent) {
	g.lmu.RLock()
	listeners := make([]FlowListener, len(g.listeners))
	copy(listeners, g.listeners)
	g.lmu.RUnlock()

	if len(listeners) == 0 {
		return
	}

	event.GraphID = g.id
	event.GraphName = g.name
	event.Timestamp = time.Now()

	for _, l := range listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					g.logger.Warn("listener panicked on %s: %v", event.Type, r)
				}
			}()
			l.OnFlowEvent(ctx, event)
		}()
	}
}

// LoggingListener writes scheduler events to a logger
type LoggingListener struct {
	logger      log.Logger
	includeSkip bool
}

// NewLoggingListener creates a logging listener. A nil logger uses the package default.
func NewLoggingListener(logger log.Logger) *LoggingListener {
	if logger == nil {
		logger = log.GetDefaultLogger()
	}
	return &LoggingListener{logger: logger}
}

// WithSkips also logs dormant flows
func (l *LoggingListener) WithSkips() *LoggingListener {
	l.includeSkip = true
	return l
}

// OnFlowEvent implements the FlowListener interface
func (l *LoggingListener) OnFlowEvent(_ context.Context, e FlowEvent) {
	switch e.Type {
	case EventCycleStart:
		l.logger.Debug("%s: cycle %d started, changed %v", e.GraphName, e.Cycle, e.Changed)
	case EventCycleEnd:
		if e.Err != nil {
			l.logger.Error("%s: cycle %d failed after %v: %v", e.GraphName, e.Cycle, e.Duration, e.Err)
			return
		}
		l.logger.Info("%s: cycle %d finished in %v, changed %v", e.GraphName, e.Cycle, e.Duration, e.Changed)
	case EventFlowStart:
		l.logger.Debug("%s: flow %d (%s) started", e.GraphName, e.Index, e.Flow)
	case EventFlowComplete:
		l.logger.Debug("%s: flow %d (%s) completed in %v", e.GraphName, e.Index, e.Flow, e.Duration)
	case EventFlowError:
		l.logger.Error("%s: flow %d (%s) failed: %v", e.GraphName, e.Index, e.Flow, e.Err)
	case EventFlowSkip:
		if l.includeSkip {
			l.logger.Debug("%s: flow %d (%s) dormant", e.GraphName, e.Index, e.Flow)
		}
	case EventBarrierWait:
		l.logger.Debug("%s: waiting on flow %d (%s)", e.GraphName, e.Index, e.Flow)
	case EventBarrierResume:
		l.logger.Debug("%s: flow %d (%s) resumed", e.GraphName, e.Index, e.Flow)
	}
}
