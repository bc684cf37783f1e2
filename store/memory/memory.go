// Package memory provides a process-local SnapshotStore.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/chartflow/chartflow/store"
)

// MemorySnapshotStore keeps snapshots in maps guarded by a mutex
type MemorySnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string]*store.Snapshot
	byGraph   map[string]map[string]struct{}
}

var _ store.SnapshotStore = (*MemorySnapshotStore)(nil)

// NewMemorySnapshotStore creates an empty in-memory store
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{
		snapshots: make(map[string]*store.Snapshot),
		byGraph:   make(map[string]map[string]struct{}),
	}
}

// Save stores a copy of the snapshot
func (m *MemorySnapshotStore) Save(_ context.Context, snapshot *store.Snapshot) error {
	if snapshot == nil || snapshot.ID == "" {
		return fmt.Errorf("snapshot id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.snapshots[snapshot.ID]; ok && prev.GraphID != snapshot.GraphID {
		delete(m.byGraph[prev.GraphID], snapshot.ID)
	}

	m.snapshots[snapshot.ID] = clone(snapshot)
	ids, ok := m.byGraph[snapshot.GraphID]
	if !ok {
		ids = make(map[string]struct{})
		m.byGraph[snapshot.GraphID] = ids
	}
	ids[snapshot.ID] = struct{}{}
	return nil
}

// Load returns a copy of the snapshot with the given ID
func (m *MemorySnapshotStore) Load(_ context.Context, snapshotID string) (*store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.snapshots[snapshotID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", store.ErrSnapshotNotFound, snapshotID)
	}
	return clone(s), nil
}

// List returns the snapshots of a graph ordered by version
func (m *MemorySnapshotStore) List(_ context.Context, graphID string) ([]*store.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*store.Snapshot, 0, len(m.byGraph[graphID]))
	for id := range m.byGraph[graphID] {
		result = append(result, clone(m.snapshots[id]))
	}
	store.SortByVersion(result)
	return result, nil
}

// Delete removes a snapshot
func (m *MemorySnapshotStore) Delete(_ context.Context, snapshotID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.snapshots[snapshotID]
	if !ok {
		return fmt.Errorf("%w: %s", store.ErrSnapshotNotFound, snapshotID)
	}
	delete(m.snapshots, snapshotID)
	delete(m.byGraph[s.GraphID], snapshotID)
	return nil
}

// Clear removes all snapshots of a graph
func (m *MemorySnapshotStore) Clear(_ context.Context, graphID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id := range m.byGraph[graphID] {
		delete(m.snapshots, id)
	}
	delete(m.byGraph, graphID)
	return nil
}

// Len reports how many snapshots are stored
func (m *MemorySnapshotStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.snapshots)
}

// clone copies the snapshot header and its top-level maps; values themselves are shared.
func clone(s *store.Snapshot) *store.Snapshot {
	c := *s
	c.Values = maps.Clone(s.Values)
	c.Metadata = maps.Clone(s.Metadata)
	c.Changed = append([]string(nil), s.Changed...)
	return &c
}
