// Package log provides the leveled logging interface shared by chartflow graphs.
//
// Graphs, debug flows and the graph.LoggingListener all write through a Logger:
//
//	logger := log.NewGolog(log.LogLevelDebug)
//	g := graph.New(graph.WithName("chart"), graph.WithLogger(logger))
//
// Two implementations ship with the package: DefaultLogger on top of the standard
// library's log package, and GologLogger wrapping github.com/kataras/golog, which is
// what the chartflow command uses. NoOpLogger discards everything.
//
// Levels are ordered Debug < Info < Warn < Error < None. ParseLevel converts the
// strings accepted on the command line, and LevelEnabled lets callers skip building
// expensive debug output:
//
//	if log.LevelEnabled(logger, log.LogLevelDebug) {
//		logger.Debug("snapshot: %+v", g.Snapshot())
//	}
//
// A package-level default logger is available through Debug, Info, Warn and Error for
// code that has no graph at hand.
package log
