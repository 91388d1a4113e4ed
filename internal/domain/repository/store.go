package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories bundles the per-table repositories bound to one Querier.
type Repositories struct {
	Contests    ContestRepository
	Tasks       TaskRepository
	Users       UserRepository
	Renames     RenameRepository
	Submissions SubmissionRepository
}

// Store hands out repositories, either bound to a single transaction or to
// the pool for standalone reads.
type Store interface {
	// InTx runs fn inside one transaction. A non-nil error from fn, or a
	// failed commit, rolls everything back.
	InTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Repositories() Repositories
}

type pgStore struct {
	db *sql.DB
}

func NewPgStore(db *sql.DB) Store {
	return &pgStore{db: db}
}

func newPgRepositories(q Querier) Repositories {
	return Repositories{
		Contests:    &pgContestRepository{q: q},
		Tasks:       &pgTaskRepository{q: q},
		Users:       &pgUserRepository{q: q},
		Renames:     &pgRenameRepository{q: q},
		Submissions: &pgSubmissionRepository{q: q},
	}
}

func (s *pgStore) Repositories() Repositories {
	return newPgRepositories(s.db)
}

func (s *pgStore) InTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, newPgRepositories(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
