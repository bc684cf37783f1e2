// Package file provides a SnapshotStore that writes one JSON file per snapshot.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chartflow/chartflow/store"
)

const extension = ".json"

// FileSnapshotStore stores snapshots as <dir>/<id>.json
type FileSnapshotStore struct {
	dir string
	mu  sync.RWMutex
}

var _ store.SnapshotStore = (*FileSnapshotStore)(nil)

// NewFileSnapshotStore creates the directory if needed and returns a store rooted at it
func NewFileSnapshotStore(dir string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileSnapshotStore{dir: dir}, nil
}

// Dir returns the directory snapshots are written to
func (s *FileSnapshotStore) Dir() string {
	return s.dir
}

func (s *FileSnapshotStore) path(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid snapshot id %q", id)
	}
	return filepath.Join(s.dir, id+extension), nil
}

// Save writes the snapshot atomically through a temporary file
func (s *FileSnapshotStore) Save(_ context.Context, snapshot *store.Snapshot) error {
	p, err := s.path(snapshot.ID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// Load reads a snapshot by ID
func (s *FileSnapshotStore) Load(_ context.Context, snapshotID string) (*store.Snapshot, error) {
	p, err := s.path(snapshotID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return readSnapshot(p, snapshotID)
}

func readSnapshot(p, id string) (*store.Snapshot, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrSnapshotNotFound, id)
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snapshot store.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot %s: %w", id, err)
	}
	return &snapshot, nil
}

// List scans the directory for snapshots of graphID
func (s *FileSnapshotStore) List(_ context.Context, graphID string) ([]*store.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	result := make([]*store.Snapshot, 0)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, extension) {
			continue
		}
		id := strings.TrimSuffix(name, extension)
		snapshot, err := readSnapshot(filepath.Join(s.dir, name), id)
		if err != nil {
			return nil, err
		}
		if snapshot.GraphID == graphID {
			result = append(result, snapshot)
		}
	}

	store.SortByVersion(result)
	return result, nil
}

// Delete removes a snapshot file
func (s *FileSnapshotStore) Delete(_ context.Context, snapshotID string) error {
	p, err := s.path(snapshotID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", store.ErrSnapshotNotFound, snapshotID)
		}
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Clear removes every snapshot file belonging to graphID
func (s *FileSnapshotStore) Clear(ctx context.Context, graphID string) error {
	snapshots, err := s.List(ctx, graphID)
	if err != nil {
		return err
	}
	for _, snapshot := range snapshots {
		if err := s.Delete(ctx, snapshot.ID); err != nil && !errors.Is(err, store.ErrSnapshotNotFound) {
			return err
		}
	}
	return nil
}
