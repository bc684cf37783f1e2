package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TraceEvent represents different types of spans in graph execution
type TraceEvent string

const (
	// TraceEventCycleStart indicates the start of an update cycle
	TraceEventCycleStart TraceEvent = "cycle_start"

	// TraceEventCycleEnd indicates the end of an update cycle
	TraceEventCycleEnd TraceEvent = "cycle_end"

	// TraceEventFlowStart indicates the start of a flow
	TraceEventFlowStart TraceEvent = "flow_start"

	// TraceEventFlowEnd indicates the end of a flow
	TraceEventFlowEnd TraceEvent = "flow_end"

	// TraceEventFlowError indicates an error occurred in a flow
	TraceEventFlowError TraceEvent = "flow_error"
)

// TraceSpan represents a span of execution with timing and metadata
type TraceSpan struct {
	// ID is a unique identifier for this span
	ID string

	// ParentID is the ID of the parent span (empty for cycle spans)
	ParentID string

	// Event indicates the type of event this span represents
	Event TraceEvent

	// GraphName is the name of the graph the span belongs to
	GraphName string

	// Cycle is the cycle number
	Cycle int64

	// Flow is the spec of the flow being executed (if applicable)
	Flow string

	// StartTime is when this span began
	StartTime time.Time

	// EndTime is when this span completed (zero for ongoing spans)
	EndTime time.Time

	// Duration is the total time taken (calculated when span ends)
	Duration time.Duration

	// Error contains any error that occurred during execution
	Error error

	// Metadata contains additional key-value pairs for observability
	Metadata map[string]any
}

// TraceHook defines the interface for trace event handlers
type TraceHook interface {
	// OnEvent is called when a span starts or ends
	OnEvent(ctx context.Context, span *TraceSpan)
}

// TraceHookFunc is a function adapter for TraceHook
type TraceHookFunc func(ctx context.Context, span *TraceSpan)

// OnEvent implements the TraceHook interface
func (f TraceHookFunc) OnEvent(ctx context.Context, span *TraceSpan) {
	f(ctx, span)
}

// Tracer collects cycle and flow spans. It is a FlowListener and can be shared
// by several graphs.
type Tracer struct {
	mu    sync.Mutex
	hooks []TraceHook
	spans map[string]*TraceSpan
	open  map[string]*TraceSpan
}

var _ FlowListener = (*Tracer)(nil)

// NewTracer creates a new tracer instance
func NewTracer() *Tracer {
	return &Tracer{
		hooks: make([]TraceHook, 0),
		spans: make(map[string]*TraceSpan),
		open:  make(map[string]*TraceSpan),
	}
}

// AddHook registers a new trace hook
func (t *Tracer) AddHook(hook TraceHook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, hook)
}

// StartSpan creates a new trace span
func (t *Tracer) StartSpan(ctx context.Context, event TraceEvent, graphName string, cycle int64, flow string) *TraceSpan {
	span := &TraceSpan{
		ID:        uuid.NewString(),
		Event:     event,
		GraphName: graphName,
		Cycle:     cycle,
		Flow:      flow,
		StartTime: time.Now(),
		Metadata:  make(map[string]any),
	}

	if parent := SpanFromContext(ctx); parent != nil {
		span.ParentID = parent.ID
	}

	t.mu.Lock()
	t.spans[span.ID] = span
	hooks := append([]TraceHook(nil), t.hooks...)
	t.mu.Unlock()

	for _, hook := range hooks {
		hook.OnEvent(ctx, span)
	}
	return span
}

// EndSpan completes a trace span
func (t *Tracer) EndSpan(ctx context.Context, span *TraceSpan, err error) {
	t.mu.Lock()
	span.EndTime = time.Now()
	span.Duration = span.EndTime.Sub(span.StartTime)
	span.Error = err

	switch span.Event {
	case TraceEventFlowStart:
		if err != nil {
			span.Event = TraceEventFlowError
		} else {
			span.Event = TraceEventFlowEnd
		}
	case TraceEventCycleStart:
		span.Event = TraceEventCycleEnd
	}
	hooks := append([]TraceHook(nil), t.hooks...)
	t.mu.Unlock()

	for _, hook := range hooks {
		hook.OnEvent(ctx, span)
	}
}

// OnFlowEvent opens and closes spans from scheduler events. Flow spans are
// children of their cycle span.
func (t *Tracer) OnFlowEvent(ctx context.Context, e FlowEvent) {
	cycleKey := fmt.Sprintf("%s/%d", e.GraphID, e.Cycle)
	flowKey := fmt.Sprintf("%s/%d", cycleKey, e.Index)

	switch e.Type {
	case EventCycleStart:
		span := t.StartSpan(ctx, TraceEventCycleStart, e.GraphName, e.Cycle, "")
		t.mu.Lock()
		span.Metadata["changed"] = e.Changed
		t.open[cycleKey] = span
		t.mu.Unlock()
	case EventFlowStart:
		if parent := t.lookup(cycleKey, false); parent != nil {
			ctx = ContextWithSpan(ctx, parent)
		}
		t.remember(flowKey, t.StartSpan(ctx, TraceEventFlowStart, e.GraphName, e.Cycle, e.Flow))
	case EventBarrierWait:
		if span := t.lookup(flowKey, false); span != nil {
			t.mu.Lock()
			span.Metadata["barrier"] = true
			t.mu.Unlock()
		}
	case EventFlowComplete, EventFlowError:
		if span := t.lookup(flowKey, true); span != nil {
			t.EndSpan(ctx, span, e.Err)
		}
	case EventCycleEnd:
		if span := t.lookup(cycleKey, true); span != nil {
			t.EndSpan(ctx, span, e.Err)
		}
	}
}

func (t *Tracer) remember(key string, span *TraceSpan) {
	t.mu.Lock()
	t.open[key] = span
	t.mu.Unlock()
}

func (t *Tracer) lookup(key string, remove bool) *TraceSpan {
	t.mu.Lock()
	defer t.mu.Unlock()

	span := t.open[key]
	if remove {
		delete(t.open, key)
	}
	return span
}

// GetSpans returns a copy of all collected spans
func (t *Tracer) GetSpans() map[string]*TraceSpan {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[string]*TraceSpan, len(t.spans))
	for k, v := range t.spans {
		out[k] = v
	}
	return out
}

// Clear removes all collected spans
func (t *Tracer) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.spans = make(map[string]*TraceSpan)
	t.open = make(map[string]*TraceSpan)
}

// Context keys for span storage
type contextKey string

const spanContextKey contextKey = "chartflow_span"

// ContextWithSpan returns a new context with the span stored
func ContextWithSpan(ctx context.Context, span *TraceSpan) context.Context {
	return context.WithValue(ctx, spanContextKey, span)
}

// SpanFromContext extracts a span from context
func SpanFromContext(ctx context.Context) *TraceSpan {
	if span, ok := ctx.Value(spanContextKey).(*TraceSpan); ok {
		return span
	}
	return nil
}
