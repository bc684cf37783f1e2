package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartflow/chartflow/store"
)

func newTestStore(t *testing.T) (*RedisSnapshotStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	s := NewRedisSnapshotStore(RedisOptions{Addr: mr.Addr()})
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisSnapshotStore(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	snap := &store.Snapshot{
		ID:        "snap-1",
		GraphID:   "chart-7",
		GraphName: "gdp",
		Cycle:     2,
		Values:    map[string]any{"title": "GDP per capita"},
		Changed:   []string{"title"},
		Timestamp: time.Now(),
		Version:   1,
	}

	require.NoError(t, s.Save(ctx, snap))

	loaded, err := s.Load(ctx, "snap-1")
	require.NoError(t, err)
	assert.Equal(t, snap.GraphID, loaded.GraphID)
	assert.Equal(t, "GDP per capita", loaded.Values["title"])
	assert.Equal(t, []string{"title"}, loaded.Changed)

	list, err := s.List(ctx, "chart-7")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, s.Delete(ctx, "snap-1"))
	_, err = s.Load(ctx, "snap-1")
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)

	list, err = s.List(ctx, "chart-7")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRedisSnapshotStore_ListOrderAndClear(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	for _, v := range []int{3, 1, 2} {
		require.NoError(t, s.Save(ctx, &store.Snapshot{ID: "s" + string(rune('0'+v)), GraphID: "g", Version: v}))
	}

	list, err := s.List(ctx, "g")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, 1, list[0].Version)
	assert.Equal(t, 3, list[2].Version)

	// an expired snapshot key is skipped rather than failing the listing
	mr.Del("chartflow:snapshot:s2")
	list, err = s.List(ctx, "g")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, s.Clear(ctx, "g"))
	list, err = s.List(ctx, "g")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.False(t, mr.Exists("chartflow:graph:g:snapshots"))
}

func TestRedisSnapshotStore_TTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s := NewRedisSnapshotStore(RedisOptions{Addr: mr.Addr(), Prefix: "test:", TTL: time.Minute})
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, &store.Snapshot{ID: "x", GraphID: "g", Version: 1}))

	assert.Equal(t, time.Minute, mr.TTL("test:snapshot:x"))

	mr.FastForward(2 * time.Minute)
	_, err = s.Load(ctx, "x")
	assert.ErrorIs(t, err, store.ErrSnapshotNotFound)
}
