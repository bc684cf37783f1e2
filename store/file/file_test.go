package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chartflow/chartflow/store"
)

func TestFileSnapshotStore_New(t *testing.T) {
	t.Parallel()

	t.Run("creates directory if missing", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "snapshots")

		fs, err := NewFileSnapshotStore(dir)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if fs.Dir() != dir {
			t.Errorf("Dir mismatch: got %s, want %s", fs.Dir(), dir)
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Error("Directory should have been created")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		t.Parallel()

		if _, err := NewFileSnapshotStore(t.TempDir()); err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
	})
}

func TestFileSnapshotStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	fs, err := NewFileSnapshotStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	snap := &store.Snapshot{
		ID:        "chart-1-v1",
		GraphID:   "chart-1",
		GraphName: "co2",
		Cycle:     1,
		Values:    map[string]any{"title": "CO2 emissions", "years": []int{2000, 2010}},
		Changed:   []string{"title", "years"},
		Metadata:  map[string]any{"source": "test"},
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
		Version:   1,
	}
	if err := fs.Save(ctx, snap); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := fs.Load(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded.Values["title"] != "CO2 emissions" {
		t.Errorf("title mismatch: %v", loaded.Values["title"])
	}
	years, ok := loaded.Values["years"].([]any)
	if !ok || len(years) != 2 || years[0] != float64(2000) {
		t.Errorf("years decoded unexpectedly: %#v", loaded.Values["years"])
	}
	if !loaded.Timestamp.Equal(snap.Timestamp) {
		t.Errorf("timestamp mismatch: %v vs %v", loaded.Timestamp, snap.Timestamp)
	}

	if _, err := fs.Load(ctx, "nope"); !errors.Is(err, store.ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestFileSnapshotStore_RejectsPathIDs(t *testing.T) {
	t.Parallel()

	fs, _ := NewFileSnapshotStore(t.TempDir())
	err := fs.Save(context.Background(), &store.Snapshot{ID: "../escape", GraphID: "g"})
	if err == nil {
		t.Error("Expected error for id containing a path separator")
	}
}

func TestFileSnapshotStore_ListDeleteClear(t *testing.T) {
	t.Parallel()

	fs, _ := NewFileSnapshotStore(t.TempDir())
	ctx := context.Background()

	for _, v := range []int{2, 1, 3} {
		snap := &store.Snapshot{ID: fmt.Sprintf("a-%d", v), GraphID: "a", Version: v, Timestamp: time.Now()}
		if err := fs.Save(ctx, snap); err != nil {
			t.Fatalf("Failed to save: %v", err)
		}
	}
	_ = fs.Save(ctx, &store.Snapshot{ID: "b-1", GraphID: "b", Version: 1})

	list, err := fs.List(ctx, "a")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("Expected 3 snapshots, got %d", len(list))
	}
	if list[0].Version != 1 || list[2].Version != 3 {
		t.Error("Results should be sorted by version ascending")
	}

	if err := fs.Delete(ctx, "a-1"); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := fs.Delete(ctx, "a-1"); !errors.Is(err, store.ErrSnapshotNotFound) {
		t.Errorf("Expected ErrSnapshotNotFound, got %v", err)
	}

	if err := fs.Clear(ctx, "a"); err != nil {
		t.Fatalf("Failed to clear: %v", err)
	}
	list, _ = fs.List(ctx, "a")
	if len(list) != 0 {
		t.Errorf("Expected 0 snapshots after clear, got %d", len(list))
	}
	other, _ := fs.List(ctx, "b")
	if len(other) != 1 {
		t.Errorf("Clear must keep other graphs, got %d", len(other))
	}
}

func TestFileSnapshotStore_Concurrent(t *testing.T) {
	t.Parallel()

	fs, _ := NewFileSnapshotStore(t.TempDir())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = fs.Save(ctx, &store.Snapshot{ID: fmt.Sprintf("s-%d", i), GraphID: "g", Version: i})
		}(i)
	}
	wg.Wait()

	list, err := fs.List(ctx, "g")
	if err != nil {
		t.Fatalf("Failed to list: %v", err)
	}
	if len(list) != 20 {
		t.Errorf("Expected 20 snapshots, got %d", len(list))
	}
}
