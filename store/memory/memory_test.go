package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chartflow/chartflow/store"
)

func TestMemorySnapshotStore_New(t *testing.T) {
	t.Parallel()

	ms := NewMemorySnapshotStore()
	if ms == nil {
		t.Fatal("Store should not be nil")
	}

	var _ store.SnapshotStore = ms
}

func TestMemorySnapshotStore_BasicOperations(t *testing.T) {
	t.Parallel()

	t.Run("save and load", func(t *testing.T) {
		t.Parallel()

		ms := NewMemorySnapshotStore()
		ctx := context.Background()

		snap := &store.Snapshot{
			ID:        "snap-1",
			GraphID:   "chart-42",
			GraphName: "life-expectancy",
			Cycle:     3,
			Values:    map[string]any{"title": "Life expectancy", "minTime": 1950},
			Changed:   []string{"title"},
			Timestamp: time.Now(),
			Version:   1,
		}

		if err := ms.Save(ctx, snap); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}

		loaded, err := ms.Load(ctx, snap.ID)
		if err != nil {
			t.Fatalf("Failed to load: %v", err)
		}
		if loaded.GraphName != snap.GraphName {
			t.Errorf("GraphName mismatch: got %s, want %s", loaded.GraphName, snap.GraphName)
		}
		if loaded.Values["minTime"] != 1950 {
			t.Errorf("Values not preserved: %v", loaded.Values)
		}
		if loaded.Cycle != 3 || loaded.Version != 1 {
			t.Errorf("Cycle/Version mismatch: %d/%d", loaded.Cycle, loaded.Version)
		}
	})

	t.Run("loaded copy is isolated", func(t *testing.T) {
		t.Parallel()

		ms := NewMemorySnapshotStore()
		ctx := context.Background()
		_ = ms.Save(ctx, &store.Snapshot{ID: "s", GraphID: "g", Values: map[string]any{"a": 1}})

		loaded, _ := ms.Load(ctx, "s")
		loaded.Values["a"] = 2

		again, _ := ms.Load(ctx, "s")
		if again.Values["a"] != 1 {
			t.Error("Mutating a loaded snapshot must not affect the store")
		}
	})

	t.Run("load missing returns error", func(t *testing.T) {
		t.Parallel()

		ms := NewMemorySnapshotStore()
		_, err := ms.Load(context.Background(), "missing")
		if !errors.Is(err, store.ErrSnapshotNotFound) {
			t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
		}
	})

	t.Run("save requires id", func(t *testing.T) {
		t.Parallel()

		ms := NewMemorySnapshotStore()
		if err := ms.Save(context.Background(), &store.Snapshot{}); err == nil {
			t.Error("Expected error for snapshot without id")
		}
	})
}

func TestMemorySnapshotStore_ListDeleteClear(t *testing.T) {
	t.Parallel()

	ms := NewMemorySnapshotStore()
	ctx := context.Background()

	for i := 3; i >= 1; i-- {
		_ = ms.Save(ctx, &store.Snapshot{ID: fmt.Sprintf("a-%d", i), GraphID: "a", Version: i})
	}
	_ = ms.Save(ctx, &store.Snapshot{ID: "b-1", GraphID: "b", Version: 1})

	list, err := ms.List(ctx, "a")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(list))
	}
	for i, s := range list {
		if s.Version != i+1 {
			t.Errorf("Expected version %d at %d, got %d", i+1, i, s.Version)
		}
	}

	if err := ms.Delete(ctx, "a-2"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := ms.Delete(ctx, "a-2"); !errors.Is(err, store.ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound on second delete, got %v", err)
	}

	if err := ms.Clear(ctx, "a"); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}
	list, _ = ms.List(ctx, "a")
	if len(list) != 0 {
		t.Errorf("Expected empty list after clear, got %d", len(list))
	}
	if ms.Len() != 1 {
		t.Errorf("Clear must only remove the graph's snapshots, %d left", ms.Len())
	}
}

func TestMemorySnapshotStore_Concurrent(t *testing.T) {
	t.Parallel()

	ms := NewMemorySnapshotStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = ms.Save(ctx, &store.Snapshot{ID: fmt.Sprintf("s-%d", i), GraphID: "g", Version: i})
			_, _ = ms.List(ctx, "g")
		}(i)
	}
	wg.Wait()

	list, _ := ms.List(ctx, "g")
	if len(list) != 50 {
		t.Errorf("Expected 50 snapshots, got %d", len(list))
	}
}
