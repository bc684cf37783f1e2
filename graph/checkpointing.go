package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chartflow/chartflow/store"
)

// WithSnapshots saves a snapshot to s after every cycle that completes without
// error.
func WithSnapshots(s store.SnapshotStore) Option {
	return func(g *Graph) {
		g.listeners = append(g.listeners, &SnapshotListener{graph: g, store: s})
	}
}

// SnapshotListener saves a snapshot of its graph whenever a cycle succeeds
type SnapshotListener struct {
	graph *Graph
	store store.SnapshotStore
	mu    sync.Mutex
}

// OnFlowEvent implements the FlowListener interface
func (sl *SnapshotListener) OnFlowEvent(ctx context.Context, e FlowEvent) {
	if e.Type != EventCycleEnd || e.Err != nil {
		return
	}

	sl.mu.Lock()
	defer sl.mu.Unlock()

	snap := sl.graph.snapshot(e.Cycle, e.Changed)
	if err := SaveSnapshot(ctx, sl.store, snap); err != nil {
		sl.graph.logger.Warn("%s: failed to save snapshot of cycle %d: %v", sl.graph.name, e.Cycle, err)
	}
}

// SaveSnapshot assigns snap the next version for its graph and saves it.
func SaveSnapshot(ctx context.Context, s store.SnapshotStore, snap *store.Snapshot) error {
	latest, err := store.Latest(ctx, s, snap.GraphID)
	if err != nil {
		return fmt.Errorf("failed to read latest snapshot: %w", err)
	}
	snap.Version = 1
	if latest != nil {
		snap.Version = latest.Version + 1
	}
	return s.Save(ctx, snap)
}

// TakeSnapshot captures the current property values. Values that cannot be
// encoded as JSON are left out and listed under the "omitted" metadata key.
func (g *Graph) TakeSnapshot() *store.Snapshot {
	return g.snapshot(g.Cycles(), nil)
}

func (g *Graph) snapshot(cycle int64, changed []string) *store.Snapshot {
	values, omitted := encodeValues(g.Snapshot())

	metadata := map[string]any{
		"graph_name": g.name,
	}
	if len(omitted) > 0 {
		metadata["omitted"] = omitted
	}

	return &store.Snapshot{
		ID:        uuid.NewString(),
		GraphID:   g.id,
		GraphName: g.name,
		Cycle:     cycle,
		Values:    values,
		Changed:   changed,
		Metadata:  metadata,
		Timestamp: time.Now(),
	}
}

// encodeValues converts values to their JSON form so every store backend
// returns the same shapes.
func encodeValues(values map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(values))
	var omitted []string
	for name, v := range values {
		data, err := json.Marshal(v)
		if err != nil {
			omitted = append(omitted, name)
			continue
		}
		var decoded any
		if err := json.Unmarshal(data, &decoded); err != nil {
			omitted = append(omitted, name)
			continue
		}
		out[name] = decoded
	}
	sort.Strings(omitted)
	return out, omitted
}

// MarshalJSON encodes the current property values, so a graph held as a value
// of another graph is serialized with it.
func (g *Graph) MarshalJSON() ([]byte, error) {
	values, _ := encodeValues(g.Snapshot())
	return json.Marshal(values)
}

// Restore submits the snapshot values of declared inputs as one update.
// Values of properties built with Initial are kept. When types is not nil it
// converts the decoded JSON values back into registered Go types.
func (g *Graph) Restore(ctx context.Context, snap *store.Snapshot, types *store.TypeRegistry, done func(error)) error {
	g.mu.Lock()
	inputs := make(map[string]any)
	for name, v := range snap.Values {
		if g.isInput(name) && !g.initial[name] {
			inputs[name] = v
		}
	}
	g.mu.Unlock()

	if types != nil {
		decoded, err := types.DecodeValues(inputs)
		if err != nil {
			return reject(fmt.Errorf("failed to restore snapshot %s: %w", snap.ID, err), done)
		}
		inputs = decoded
	}
	return g.Update(ctx, inputs, done)
}
