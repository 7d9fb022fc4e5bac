// Package store is the Postgres persistence layer. All writes that must be
// visible to the worker go through transactions that also append an outbox
// row; the relay picks those up over logical replication.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrLastPage rejects page deletions that would leave a document empty.
	ErrLastPage = errors.New("document must keep at least one page")

	// ErrBadReorder rejects reorders that are not a full permutation of the
	// document's page positions.
	ErrBadReorder = errors.New("reorder must assign every page a unique position")

	// ErrPagesSpanDocuments rejects bulk page operations that mix documents.
	ErrPagesSpanDocuments = errors.New("pages belong to more than one document")
)

type Store struct {
	pool *pgxpool.Pool
}

func Connect(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
