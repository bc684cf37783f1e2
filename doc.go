// chartflow - reactive property graphs for interactive charts
//
// chartflow keeps the state of a chart as a graph of named properties. Flows
// derive properties from other properties, and every change runs the affected
// flows exactly once, in registration order, so that no flow ever sees a
// half-updated view. Flows that wait on I/O suspend the update until their
// result arrives.
//
// # Quick Start
//
// Install the package:
//
//	go get github.com/chartflow/chartflow
//
// Basic example:
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//
//		"github.com/chartflow/chartflow/graph"
//	)
//
//	func main() {
//		g := graph.New(graph.WithName("sum")).
//			Inputs(map[string]any{"a": 1, "b": 2}).
//			Flow(graph.MustSpec("c : a, b"), func(ctx context.Context, in graph.Args) (graph.Result, error) {
//				return graph.Emit(graph.Get[int](in, 0) + graph.Get[int](in, 1)), nil
//			})
//
//		if err := g.Update(context.Background(), map[string]any{"a": 5}, nil); err != nil {
//			panic(err)
//		}
//
//		c, _ := graph.Value[int](g, "c")
//		fmt.Println(c) // 7
//	}
//
// # Key Features
//
//   - Update cycles that run each affected flow once, in registration order
//   - Change detection per output: emit, updated or stable
//   - Await flows that suspend a cycle until an asynchronous result arrives
//   - Queued updates that never interleave with a running cycle
//   - Lazily built defaults, child graphs and external event subscriptions
//     torn down together by Clean
//   - Flow events, tracing spans and Mermaid, DOT or ASCII diagrams
//   - Snapshots of property values in memory, files, Redis, PostgreSQL or SQLite
//
// # Package Structure
//
// ### graph/
// The engine: properties, flows, update cycles, barriers, lifecycle,
// listeners, tracing, visualization and snapshots.
//
// ### chart/
// A chart model built on the engine: markdown subtitles and notes, variable
// data fetched through a DataSource, a timeline child with playback and a
// dismissible options menu.
//
// ### config/
// Chart definitions loaded from HCL files.
//
// ### store/
// The snapshot store interface and its memory, file, redis, postgres and
// sqlite backends.
//
// ### log/
// Leveled logging with a standard library backend and a golog backend.
//
// ### cmd/chartflow
// A command that resolves a chart from a definition file, prints its
// properties and saves a snapshot.
//
// # Configuration
//
// Graphs are configured with functional options:
//
//	g := graph.New(
//		graph.WithName("chart"),
//		graph.WithLogger(log.NewGolog(log.LogLevelDebug)),
//		graph.WithTracer(graph.NewTracer()),
//		graph.WithSnapshots(memory.NewMemorySnapshotStore()),
//	)
//
// # Examples
//
// See ./examples for snapshot persistence, timeline playback and logging.
package chartflow // import "github.com/chartflow/chartflow"
