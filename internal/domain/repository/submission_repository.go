package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"judge_mirror/internal/common"
	"judge_mirror/internal/domain/model"
)

type SubmissionRepository interface {
	// FindUserID returns the handle a stored submission is attributed to,
	// or common.ErrNotFound.
	FindUserID(ctx context.Context, submissionID int64) (string, error)
	UpsertSubmission(ctx context.Context, s *model.Submission) (bool, error)
	// LatestSubmittedAt is the committed watermark: max(submitted_at).
	// ok is false on an empty table.
	LatestSubmittedAt(ctx context.Context) (t time.Time, ok bool, err error)
}

type pgSubmissionRepository struct {
	q Querier
}

func (r *pgSubmissionRepository) FindUserID(ctx context.Context, submissionID int64) (string, error) {
	var userID string
	err := r.q.QueryRowContext(ctx, `SELECT user_id FROM submissions WHERE submission_id = $1`, submissionID).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrNotFound
		}
		return "", common.ClassifyPgError("pgSubmissionRepository.FindUserID", err)
	}
	return userID, nil
}

func (r *pgSubmissionRepository) UpsertSubmission(ctx context.Context, s *model.Submission) (bool, error) {
	query := `INSERT INTO submissions (submission_id, contest_id, task_id, user_id, submitted_at,
	              language_name, score, code_size, status, execution_time, memory_consumed)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          ON CONFLICT (submission_id) DO UPDATE SET
	              contest_id      = EXCLUDED.contest_id,
	              task_id         = EXCLUDED.task_id,
	              user_id         = EXCLUDED.user_id,
	              submitted_at    = EXCLUDED.submitted_at,
	              language_name   = EXCLUDED.language_name,
	              score           = EXCLUDED.score,
	              code_size       = EXCLUDED.code_size,
	              status          = EXCLUDED.status,
	              execution_time  = EXCLUDED.execution_time,
	              memory_consumed = EXCLUDED.memory_consumed,
	              updated_at      = CURRENT_TIMESTAMP
	          RETURNING (xmax = 0)`
	var inserted bool
	err := r.q.QueryRowContext(ctx, query,
		s.ID, s.ContestID, s.TaskID, s.UserID, s.SubmittedAt,
		s.LanguageName, s.Score, s.CodeSize, s.Status, s.ExecutionTime, s.MemoryConsumed,
	).Scan(&inserted)
	if err != nil {
		return false, common.ClassifyPgError("pgSubmissionRepository.UpsertSubmission", err)
	}
	return inserted, nil
}

func (r *pgSubmissionRepository) LatestSubmittedAt(ctx context.Context) (time.Time, bool, error) {
	var latest sql.NullTime
	if err := r.q.QueryRowContext(ctx, `SELECT MAX(submitted_at) FROM submissions`).Scan(&latest); err != nil {
		return time.Time{}, false, common.ClassifyPgError("pgSubmissionRepository.LatestSubmittedAt", err)
	}
	if !latest.Valid {
		return time.Time{}, false, nil
	}
	return latest.Time.UTC(), true, nil
}
