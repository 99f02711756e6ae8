package consumer

import (
	"context"
	"database/sql"
	"fmt"
)

// Document statuses recorded in the documents table.
const (
	StatusIndexed = "INDEXED"
	StatusRemoved = "REMOVED"
	StatusFailed  = "FAILED"
)

// StatusStore records the outcome of document events.
type StatusStore interface {
	SetStatus(ctx context.Context, docRef string, status string, shardID int, tokens int) error
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertStatus = `
INSERT INTO documents (id, status, shard_id, tokens, indexed_at)
VALUES ($1, $2, $3, $4, NOW())
ON CONFLICT (id) DO UPDATE
SET status = EXCLUDED.status, shard_id = EXCLUDED.shard_id,
    tokens = EXCLUDED.tokens, indexed_at = EXCLUDED.indexed_at`

// PGStatusStore upserts document status rows into Postgres.
type PGStatusStore struct {
	db Execer
}

func NewPGStatusStore(db Execer) *PGStatusStore {
	return &PGStatusStore{db: db}
}

func (s *PGStatusStore) SetStatus(ctx context.Context, docRef string, status string, shardID int, tokens int) error {
	if _, err := s.db.ExecContext(ctx, upsertStatus, docRef, status, shardID, tokens); err != nil {
		return fmt.Errorf("upserting status of %s: %w", docRef, err)
	}
	return nil
}
