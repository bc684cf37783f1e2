package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSpec is returned when a flow spec cannot be parsed or validated.
	ErrInvalidSpec = errors.New("invalid flow spec")

	// ErrNoSuchInput is returned when an update names a property that was never
	// declared with Inputs, Requires or Initial.
	ErrNoSuchInput = errors.New("no such input")

	// ErrMissingDependency is returned when a property is read before the graph
	// has produced a value for it.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrOutputArity is returned when a flow result carries a different number of
	// values than the flow declares outputs.
	ErrOutputArity = errors.New("output count mismatch")

	// ErrTypeMismatch is returned by Value when the stored value has another type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDestroyed is returned when updating a destroyed graph.
	ErrDestroyed = errors.New("graph destroyed")

	// ErrDropped is delivered to the callback of an update that was discarded
	// because the graph was cleaned before or while it ran.
	ErrDropped = errors.New("update dropped by clean")

	// ErrUnorderedInput is reported by CheckOrder for flow inputs that are neither
	// declared nor produced by an earlier flow.
	ErrUnorderedInput = errors.New("input not produced before use")
)

// FlowError wraps an error returned or a panic raised by a flow callback.
type FlowError struct {
	// Flow is the textual spec of the failing flow
	Flow string
	// Index is the position of the flow in the registry
	Index int
	// Err is the underlying error
	Err error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("flow %d (%s) failed: %v", e.Index, e.Flow, e.Err)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// PanicError is the error recorded when a flow callback panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
