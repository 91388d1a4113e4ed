package repository

import (
	"context"
	"database/sql"
	"errors"
	"judge_mirror/internal/common"
	"judge_mirror/internal/domain/model"
)

type RenameRepository interface {
	// FindByFrom and FindByTo return common.ErrNotFound when no edge uses the handle.
	FindByFrom(ctx context.Context, from string) (*model.Rename, error)
	FindByTo(ctx context.Context, to string) (*model.Rename, error)
	Insert(ctx context.Context, from, to string) error
}

type pgRenameRepository struct {
	q Querier
}

func (r *pgRenameRepository) FindByFrom(ctx context.Context, from string) (*model.Rename, error) {
	return r.findOne(ctx, `SELECT user_id_from, user_id_to, created_at FROM renamed WHERE user_id_from = $1`, from)
}

func (r *pgRenameRepository) FindByTo(ctx context.Context, to string) (*model.Rename, error) {
	return r.findOne(ctx, `SELECT user_id_from, user_id_to, created_at FROM renamed WHERE user_id_to = $1`, to)
}

func (r *pgRenameRepository) findOne(ctx context.Context, query, arg string) (*model.Rename, error) {
	rn := &model.Rename{}
	err := r.q.QueryRowContext(ctx, query, arg).Scan(&rn.From, &rn.To, &rn.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, common.ClassifyPgError("pgRenameRepository.find", err)
	}
	return rn, nil
}

func (r *pgRenameRepository) Insert(ctx context.Context, from, to string) error {
	query := `INSERT INTO renamed (user_id_from, user_id_to) VALUES ($1, $2)`
	if _, err := r.q.ExecContext(ctx, query, from, to); err != nil {
		return common.ClassifyPgError("pgRenameRepository.Insert", err)
	}
	return nil
}
