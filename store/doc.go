// Package store persists graph snapshots.
//
// A Snapshot records the property values of one graph after an update cycle completed,
// together with the names that changed in that cycle. Graphs created with
// graph.WithSnapshots save one snapshot per completed cycle; (*graph.Graph).Restore submits a
// snapshot back as a single update.
//
// Backends live in sub-packages and all implement SnapshotStore:
//
//   - store/memory: process-local maps, the default for tests
//   - store/file: one JSON file per snapshot in a directory
//   - store/redis: a key per snapshot and a set index per graph (go-redis)
//   - store/postgres: a JSONB table through a pgx pool
//   - store/sqlite: a table in a SQLite database (go-sqlite3)
//
// List returns a graph's snapshots ordered by version. Load and Delete report a missing
// snapshot with an error wrapping ErrSnapshotNotFound.
//
// JSON-backed stores lose Go types (numbers come back as float64, slices as []any).
// Register the property types in a TypeRegistry to get them back:
//
//	types := store.NewTypeRegistry()
//	store.Register[[]int](types, "years")
//	values, err := types.DecodeValues(snapshot.Values)
package store
