// Package graph provides the dataflow engine behind chartflow models and views.
//
// A Graph holds named properties and an ordered list of flows. A flow reads some
// properties and writes others. Every change enters through Update, which stores
// the submitted values, then walks the flows once in registration order and runs
// each flow whose inputs changed in this cycle. Registration order is the only
// ordering the scheduler knows: a flow may read declared inputs and the outputs
// of flows registered before it.
//
// # Properties
//
// Inputs declares properties with defaults, Requires declares properties that
// must be supplied by an update, and Initial declares a property whose default is
// built once, on first use. Flow outputs become properties when a flow first
// produces them.
//
// # Flows
//
//	g := graph.New(graph.WithName("sum")).
//		Inputs(map[string]any{"a": 1, "b": 2}).
//		Flow(graph.MustSpec("c : a, b"), func(ctx context.Context, in graph.Args) (graph.Result, error) {
//			return graph.Emit(graph.Get[int](in, 0) + graph.Get[int](in, 1)), nil
//		})
//
//	err := g.Update(ctx, map[string]any{"a": 5}, nil) // c == 7
//
// A flow result says how its outputs take part in change detection: Emit marks
// an output changed when it differs from the stored value, Updated always marks
// it changed and Stable never does.
//
// # Barriers
//
// FlowAwait registers a flow that finishes when its Done continuation is called.
// Later flows wait for it, and so does every update submitted meanwhile. Done may
// be called from any goroutine; that goroutine then runs the rest of the cycle.
// A barrier that never completes stalls the graph; Updating and Pending expose
// that state.
//
// # Lifecycle
//
// ToggleChild opens and closes owned child graphs, ListenTo records external
// subscriptions, and Clean tears all of it down while keeping the declarations,
// so the graph can run again. Destroy makes the graph unusable.
//
// # Observability
//
// FlowListener receives cycle and flow events; LoggingListener, Tracer and
// SnapshotListener (installed by WithSnapshots) are the provided listeners.
// Exporter draws the flow registry as Mermaid, DOT or ASCII.
package graph
