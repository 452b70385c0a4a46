// Package postgres provides a Postgres-backed data store that mirrors the
// in-memory semantics, snapshotting the full state to JSONB buckets after
// every successful ingest and hydrating from them on open.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"simcore/internal/infra/persistence/memory"
	"simcore/pkg/model"
)

// Compile-time contract assertion.
var _ model.DataStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// Default DSN keeps parity with OpenDataStore defaults while allowing overrides via env.
	defaultDSN = "postgres://localhost/simcore?sslmode=disable"

	bucketRecords       = "records"
	bucketRelationships = "relationships"
)

// Store persists state to Postgres while reusing the in-memory
// implementation for ingestion and queries.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens a Postgres-backed store using the provided DSN (falls
// back to defaultDSN), ensures the snapshot table exists, and hydrates
// the embedded in-memory store from any existing snapshot.
func NewStore(dsn string, opts ...memory.Option) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	db, err := sql.Open(defaultDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS state (
		bucket  TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("ensure state table: %w", err)
	}
	mem := memory.NewStore(opts...)
	s := &Store{Store: mem, db: db}
	if err := s.hydrate(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// IngestDocument applies the ingest in memory, then snapshots the state
// to Postgres.
func (s *Store) IngestDocument(ctx context.Context, doc *model.Document) (map[string]string, error) {
	assigned, err := s.Store.IngestDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return assigned, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, err := s.ExportState()
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	buckets := map[string]any{
		bucketRecords:       snap.Records,
		bucketRelationships: snap.Relationships,
	}
	for bucket, payload := range buckets {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("serialize bucket %q: %w", bucket, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO state (bucket, payload) VALUES ($1, $2)
			ON CONFLICT (bucket) DO UPDATE SET payload = EXCLUDED.payload`, bucket, string(raw)); err != nil {
			return fmt.Errorf("upsert bucket %q: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *Store) hydrate(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM state`)
	if err != nil {
		return fmt.Errorf("select state: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var snap memory.Snapshot
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan state: %w", err)
		}
		switch bucket {
		case bucketRecords:
			if err := json.Unmarshal(payload, &snap.Records); err != nil {
				return fmt.Errorf("decode bucket %q: %w", bucket, err)
			}
		case bucketRelationships:
			if err := json.Unmarshal(payload, &snap.Relationships); err != nil {
				return fmt.Errorf("decode bucket %q: %w", bucket, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate state: %w", err)
	}
	return s.ImportState(snap)
}
