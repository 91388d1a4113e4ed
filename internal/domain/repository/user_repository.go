package repository

import (
	"context"
	"judge_mirror/internal/common"
)

type UserRepository interface {
	// UpsertUser records a handle as observed and reports whether it is new.
	UpsertUser(ctx context.Context, userID string) (bool, error)
}

type pgUserRepository struct {
	q Querier
}

func (r *pgUserRepository) UpsertUser(ctx context.Context, userID string) (bool, error) {
	query := `INSERT INTO users (user_id) VALUES ($1)
	          ON CONFLICT (user_id) DO NOTHING`
	res, err := r.q.ExecContext(ctx, query, userID)
	if err != nil {
		return false, common.ClassifyPgError("pgUserRepository.UpsertUser", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, common.ClassifyPgError("pgUserRepository.UpsertUser", err)
	}
	return n == 1, nil
}
