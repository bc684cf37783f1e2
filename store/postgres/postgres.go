// Package postgres provides a SnapshotStore backed by PostgreSQL through pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chartflow/chartflow/store"
)

// DBPool is the subset of *pgxpool.Pool the store needs; pgxmock satisfies it in tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresSnapshotStore implements store.SnapshotStore using PostgreSQL
type PostgresSnapshotStore struct {
	pool      DBPool
	tableName string
}

var _ store.SnapshotStore = (*PostgresSnapshotStore)(nil)

// PostgresOptions configuration for Postgres connection
type PostgresOptions struct {
	ConnString string
	TableName  string // Default "snapshots"
}

// NewPostgresSnapshotStore opens a pool and returns a store using it
func NewPostgresSnapshotStore(ctx context.Context, opts PostgresOptions) (*PostgresSnapshotStore, error) {
	pool, err := pgxpool.New(ctx, opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return NewPostgresSnapshotStoreWithPool(pool, opts.TableName), nil
}

// NewPostgresSnapshotStoreWithPool creates a store over an existing pool
func NewPostgresSnapshotStoreWithPool(pool DBPool, tableName string) *PostgresSnapshotStore {
	if tableName == "" {
		tableName = "snapshots"
	}
	return &PostgresSnapshotStore{
		pool:      pool,
		tableName: tableName,
	}
}

// InitSchema creates the table and index if they don't exist
func (s *PostgresSnapshotStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			graph_id TEXT NOT NULL,
			graph_name TEXT NOT NULL,
			cycle BIGINT NOT NULL,
			snapshot_values JSONB NOT NULL,
			changed JSONB NOT NULL,
			metadata JSONB,
			timestamp TIMESTAMPTZ NOT NULL,
			version INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_graph_id ON %s (graph_id);
	`, s.tableName, s.tableName, s.tableName)

	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool
func (s *PostgresSnapshotStore) Close() {
	s.pool.Close()
}

// Save upserts a snapshot
func (s *PostgresSnapshotStore) Save(ctx context.Context, snapshot *store.Snapshot) error {
	valuesJSON, changedJSON, metadataJSON, err := encode(snapshot)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, graph_id, graph_name, cycle, snapshot_values, changed, metadata, timestamp, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			graph_id = EXCLUDED.graph_id,
			graph_name = EXCLUDED.graph_name,
			cycle = EXCLUDED.cycle,
			snapshot_values = EXCLUDED.snapshot_values,
			changed = EXCLUDED.changed,
			metadata = EXCLUDED.metadata,
			timestamp = EXCLUDED.timestamp,
			version = EXCLUDED.version
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		snapshot.ID,
		snapshot.GraphID,
		snapshot.GraphName,
		snapshot.Cycle,
		valuesJSON,
		changedJSON,
		metadataJSON,
		snapshot.Timestamp,
		snapshot.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Load retrieves a snapshot by ID
func (s *PostgresSnapshotStore) Load(ctx context.Context, snapshotID string) (*store.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, graph_id, graph_name, cycle, snapshot_values, changed, metadata, timestamp, version
		FROM %s
		WHERE id = $1
	`, s.tableName)

	snapshot, err := scanSnapshot(s.pool.QueryRow(ctx, query, snapshotID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrSnapshotNotFound, snapshotID)
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return snapshot, nil
}

// List returns all snapshots of a graph ordered by version
func (s *PostgresSnapshotStore) List(ctx context.Context, graphID string) ([]*store.Snapshot, error) {
	query := fmt.Sprintf(`
		SELECT id, graph_id, graph_name, cycle, snapshot_values, changed, metadata, timestamp, version
		FROM %s
		WHERE graph_id = $1
		ORDER BY version ASC, timestamp ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, graphID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]*store.Snapshot, 0)
	for rows.Next() {
		snapshot, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}

// Delete removes a snapshot
func (s *PostgresSnapshotStore) Delete(ctx context.Context, snapshotID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = $1", s.tableName)
	tag, err := s.pool.Exec(ctx, query, snapshotID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrSnapshotNotFound, snapshotID)
	}
	return nil
}

// Clear removes all snapshots of a graph
func (s *PostgresSnapshotStore) Clear(ctx context.Context, graphID string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE graph_id = $1", s.tableName)
	if _, err := s.pool.Exec(ctx, query, graphID); err != nil {
		return fmt.Errorf("failed to clear snapshots: %w", err)
	}
	return nil
}

func encode(snapshot *store.Snapshot) (values, changed, metadata []byte, err error) {
	if values, err = json.Marshal(snapshot.Values); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal values: %w", err)
	}
	if changed, err = json.Marshal(snapshot.Changed); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal changed: %w", err)
	}
	if metadata, err = json.Marshal(snapshot.Metadata); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return values, changed, metadata, nil
}

func scanSnapshot(row pgx.Row) (*store.Snapshot, error) {
	var snapshot store.Snapshot
	var valuesJSON, changedJSON, metadataJSON []byte

	err := row.Scan(
		&snapshot.ID,
		&snapshot.GraphID,
		&snapshot.GraphName,
		&snapshot.Cycle,
		&valuesJSON,
		&changedJSON,
		&metadataJSON,
		&snapshot.Timestamp,
		&snapshot.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(valuesJSON, &snapshot.Values); err != nil {
		return nil, fmt.Errorf("failed to unmarshal values: %w", err)
	}
	if len(changedJSON) > 0 {
		if err := json.Unmarshal(changedJSON, &snapshot.Changed); err != nil {
			return nil, fmt.Errorf("failed to unmarshal changed: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &snapshot.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	return &snapshot, nil
}
