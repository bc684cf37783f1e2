package store

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ErrSnapshotNotFound is returned by Load and Delete when no snapshot has the given ID.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted property state of one graph after a completed update cycle.
type Snapshot struct {
	ID        string         `json:"id"`
	GraphID   string         `json:"graph_id"`
	GraphName string         `json:"graph_name"`
	Cycle     int64          `json:"cycle"`
	Values    map[string]any `json:"values"`
	Changed   []string       `json:"changed"`
	Metadata  map[string]any `json:"metadata"`
	Timestamp time.Time      `json:"timestamp"`
	Version   int            `json:"version"`
}

// SnapshotStore persists snapshots. Implementations must be safe for concurrent use.
type SnapshotStore interface {
	// Save stores a snapshot, replacing any snapshot with the same ID
	Save(ctx context.Context, snapshot *Snapshot) error

	// Load retrieves a snapshot by ID
	Load(ctx context.Context, snapshotID string) (*Snapshot, error)

	// List returns the snapshots of a graph ordered by version
	List(ctx context.Context, graphID string) ([]*Snapshot, error)

	// Delete removes a snapshot
	Delete(ctx context.Context, snapshotID string) error

	// Clear removes every snapshot of a graph
	Clear(ctx context.Context, graphID string) error
}

// Latest returns the highest-version snapshot stored for graphID, or nil when none exists.
func Latest(ctx context.Context, s SnapshotStore, graphID string) (*Snapshot, error) {
	snapshots, err := s.List(ctx, graphID)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return snapshots[len(snapshots)-1], nil
}

// SortByVersion orders snapshots by version, then by timestamp.
func SortByVersion(snapshots []*Snapshot) {
	sort.SliceStable(snapshots, func(i, j int) bool {
		if snapshots[i].Version != snapshots[j].Version {
			return snapshots[i].Version < snapshots[j].Version
		}
		return snapshots[i].Timestamp.Before(snapshots[j].Timestamp)
	})
}
