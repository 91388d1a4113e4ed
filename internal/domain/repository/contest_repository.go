package repository

import (
	"context"
	"fmt"
	"judge_mirror/internal/common"
	"judge_mirror/internal/domain/model"
)

type ContestRepository interface {
	// UpsertContest inserts the contest or refreshes its mutable fields.
	// It reports whether a new row was created.
	UpsertContest(ctx context.Context, c *model.Contest) (bool, error)
	ListRecentContests(ctx context.Context, limit int) ([]model.Contest, error)
}

type pgContestRepository struct {
	q Querier
}

func (r *pgContestRepository) UpsertContest(ctx context.Context, c *model.Contest) (bool, error) {
	query := `INSERT INTO contests (contest_id, contest_name, rated_range, start_at, end_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (contest_id) DO UPDATE SET
	              contest_name = COALESCE(NULLIF(EXCLUDED.contest_name, ''), contests.contest_name),
	              rated_range  = COALESCE(NULLIF(EXCLUDED.rated_range, ''), contests.rated_range),
	              start_at     = EXCLUDED.start_at,
	              end_at       = EXCLUDED.end_at,
	              updated_at   = CURRENT_TIMESTAMP
	          RETURNING (xmax = 0)`
	var inserted bool
	err := r.q.QueryRowContext(ctx, query, c.ID, c.Name, c.RatedRange, c.StartAt, c.EndAt).Scan(&inserted)
	if err != nil {
		return false, common.ClassifyPgError("pgContestRepository.UpsertContest", err)
	}
	return inserted, nil
}

func (r *pgContestRepository) ListRecentContests(ctx context.Context, limit int) ([]model.Contest, error) {
	query := `SELECT contest_id, contest_name, rated_range, start_at, end_at, created_at, updated_at
	          FROM contests
	          ORDER BY start_at DESC
	          LIMIT $1`
	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListRecentContests: %w", err)
	}
	defer rows.Close()

	var contests []model.Contest
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(&c.ID, &c.Name, &c.RatedRange, &c.StartAt, &c.EndAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("pgContestRepository.ListRecentContests scan: %w", err)
		}
		contests = append(contests, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.ListRecentContests rows: %w", err)
	}
	return contests, nil
}
