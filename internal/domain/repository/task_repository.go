package repository

import (
	"context"
	"judge_mirror/internal/common"
	"judge_mirror/internal/domain/model"
)

type TaskRepository interface {
	UpsertTask(ctx context.Context, t *model.Task) (bool, error)
	UpsertContestTask(ctx context.Context, ct *model.ContestTask) (bool, error)
	ContestTaskExists(ctx context.Context, contestID, taskID string) (bool, error)
}

type pgTaskRepository struct {
	q Querier
}

func (r *pgTaskRepository) UpsertTask(ctx context.Context, t *model.Task) (bool, error) {
	query := `INSERT INTO tasks (task_id, task_name)
	          VALUES ($1, $2)
	          ON CONFLICT (task_id) DO UPDATE SET
	              task_name  = COALESCE(NULLIF(EXCLUDED.task_name, ''), tasks.task_name),
	              updated_at = CURRENT_TIMESTAMP
	          RETURNING (xmax = 0)`
	var inserted bool
	if err := r.q.QueryRowContext(ctx, query, t.ID, t.Name).Scan(&inserted); err != nil {
		return false, common.ClassifyPgError("pgTaskRepository.UpsertTask", err)
	}
	return inserted, nil
}

func (r *pgTaskRepository) UpsertContestTask(ctx context.Context, ct *model.ContestTask) (bool, error) {
	query := `INSERT INTO contests_tasks (contest_id, task_id, alphabet)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (contest_id, task_id) DO UPDATE SET
	              alphabet = COALESCE(NULLIF(EXCLUDED.alphabet, ''), contests_tasks.alphabet)
	          RETURNING (xmax = 0)`
	var inserted bool
	if err := r.q.QueryRowContext(ctx, query, ct.ContestID, ct.TaskID, ct.Alphabet).Scan(&inserted); err != nil {
		return false, common.ClassifyPgError("pgTaskRepository.UpsertContestTask", err)
	}
	return inserted, nil
}

func (r *pgTaskRepository) ContestTaskExists(ctx context.Context, contestID, taskID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM contests_tasks WHERE contest_id = $1 AND task_id = $2)`
	var exists bool
	if err := r.q.QueryRowContext(ctx, query, contestID, taskID).Scan(&exists); err != nil {
		return false, common.ClassifyPgError("pgTaskRepository.ContestTaskExists", err)
	}
	return exists, nil
}
