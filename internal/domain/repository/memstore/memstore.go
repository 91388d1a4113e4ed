// Package memstore is an in-memory repository.Store for tests. It enforces
// the same keys and foreign keys as the PostgreSQL schema and gives InTx
// all-or-nothing semantics by working on a copy of the tables.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"judge_mirror/internal/common"
	"judge_mirror/internal/domain/model"
	"judge_mirror/internal/domain/repository"
)

type contestTaskKey struct {
	contestID string
	taskID    string
}

type tables struct {
	contests     map[string]model.Contest
	tasks        map[string]model.Task
	contestTasks map[contestTaskKey]model.ContestTask
	users        map[string]model.User
	renames      []model.Rename
	submissions  map[int64]model.Submission
}

func newTables() *tables {
	return &tables{
		contests:     map[string]model.Contest{},
		tasks:        map[string]model.Task{},
		contestTasks: map[contestTaskKey]model.ContestTask{},
		users:        map[string]model.User{},
		submissions:  map[int64]model.Submission{},
	}
}

func (t *tables) clone() *tables {
	c := newTables()
	for k, v := range t.contests {
		c.contests[k] = v
	}
	for k, v := range t.tasks {
		c.tasks[k] = v
	}
	for k, v := range t.contestTasks {
		c.contestTasks[k] = v
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	c.renames = append([]model.Rename(nil), t.renames...)
	for k, v := range t.submissions {
		c.submissions[k] = v
	}
	return c
}

type Store struct {
	mu  sync.Mutex
	t   *tables
	now func() time.Time

	// FailNextCommit, when set, is returned once by InTx after fn succeeds,
	// and the transaction is discarded.
	FailNextCommit error
	// Commits counts successful transactions.
	Commits int
}

func New() *Store {
	return &Store{t: newTables(), now: time.Now}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.t.clone()
	if err := fn(ctx, s.repos(work)); err != nil {
		return err
	}
	if err := s.FailNextCommit; err != nil {
		s.FailNextCommit = nil
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.t = work
	s.Commits++
	return nil
}

// Repositories reads and writes the committed tables directly.
func (s *Store) Repositories() repository.Repositories {
	return s.repos(s.t)
}

func (s *Store) repos(t *tables) repository.Repositories {
	return repository.Repositories{
		Contests:    &contestRepo{t: t, now: s.now},
		Tasks:       &taskRepo{t: t, now: s.now},
		Users:       &userRepo{t: t, now: s.now},
		Renames:     &renameRepo{t: t, now: s.now},
		Submissions: &submissionRepo{t: t, now: s.now},
	}
}

// Snapshot accessors for assertions.

func (s *Store) Contest(id string) (model.Contest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.t.contests[id]
	return c, ok
}

func (s *Store) Task(id string) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.t.tasks[id]
	return t, ok
}

func (s *Store) HasContestTask(contestID, taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.t.contestTasks[contestTaskKey{contestID, taskID}]
	return ok
}

func (s *Store) HasUser(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.t.users[id]
	return ok
}

func (s *Store) Submission(id int64) (model.Submission, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.t.submissions[id]
	return sub, ok
}

func (s *Store) Renames() []model.Rename {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Rename(nil), s.t.renames...)
}

// Counts returns row counts per table, keyed by table name.
func (s *Store) Counts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]int{
		"contests":       len(s.t.contests),
		"tasks":          len(s.t.tasks),
		"contests_tasks": len(s.t.contestTasks),
		"users":          len(s.t.users),
		"renamed":        len(s.t.renames),
		"submissions":    len(s.t.submissions),
	}
}

type contestRepo struct {
	t   *tables
	now func() time.Time
}

func (r *contestRepo) UpsertContest(_ context.Context, c *model.Contest) (bool, error) {
	now := r.now()
	existing, ok := r.t.contests[c.ID]
	if !ok {
		row := *c
		row.CreatedAt, row.UpdatedAt = now, now
		r.t.contests[c.ID] = row
		return true, nil
	}
	if c.Name != "" {
		existing.Name = c.Name
	}
	if c.RatedRange != "" {
		existing.RatedRange = c.RatedRange
	}
	existing.StartAt, existing.EndAt, existing.UpdatedAt = c.StartAt, c.EndAt, now
	r.t.contests[c.ID] = existing
	return false, nil
}

func (r *contestRepo) ListRecentContests(_ context.Context, limit int) ([]model.Contest, error) {
	out := make([]model.Contest, 0, len(r.t.contests))
	for _, c := range r.t.contests {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.After(out[j].StartAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type taskRepo struct {
	t   *tables
	now func() time.Time
}

func (r *taskRepo) UpsertTask(_ context.Context, t *model.Task) (bool, error) {
	now := r.now()
	existing, ok := r.t.tasks[t.ID]
	if !ok {
		row := *t
		row.CreatedAt, row.UpdatedAt = now, now
		r.t.tasks[t.ID] = row
		return true, nil
	}
	if t.Name != "" {
		existing.Name = t.Name
	}
	existing.UpdatedAt = now
	r.t.tasks[t.ID] = existing
	return false, nil
}

func (r *taskRepo) UpsertContestTask(_ context.Context, ct *model.ContestTask) (bool, error) {
	if _, ok := r.t.contests[ct.ContestID]; !ok {
		return false, fmt.Errorf("contests_tasks_contest_id_fkey: %w", common.ErrIntegrity)
	}
	if _, ok := r.t.tasks[ct.TaskID]; !ok {
		return false, fmt.Errorf("contests_tasks_task_id_fkey: %w", common.ErrIntegrity)
	}
	key := contestTaskKey{ct.ContestID, ct.TaskID}
	existing, ok := r.t.contestTasks[key]
	if !ok {
		r.t.contestTasks[key] = *ct
		return true, nil
	}
	if ct.Alphabet != "" {
		existing.Alphabet = ct.Alphabet
	}
	r.t.contestTasks[key] = existing
	return false, nil
}

func (r *taskRepo) ContestTaskExists(_ context.Context, contestID, taskID string) (bool, error) {
	_, ok := r.t.contestTasks[contestTaskKey{contestID, taskID}]
	return ok, nil
}

type userRepo struct {
	t   *tables
	now func() time.Time
}

func (r *userRepo) UpsertUser(_ context.Context, userID string) (bool, error) {
	if _, ok := r.t.users[userID]; ok {
		return false, nil
	}
	r.t.users[userID] = model.User{ID: userID, CreatedAt: r.now()}
	return true, nil
}

type renameRepo struct {
	t   *tables
	now func() time.Time
}

func (r *renameRepo) FindByFrom(_ context.Context, from string) (*model.Rename, error) {
	for _, rn := range r.t.renames {
		if rn.From == from {
			rn := rn
			return &rn, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *renameRepo) FindByTo(_ context.Context, to string) (*model.Rename, error) {
	for _, rn := range r.t.renames {
		if rn.To == to {
			rn := rn
			return &rn, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *renameRepo) Insert(_ context.Context, from, to string) error {
	if from == to {
		return fmt.Errorf("renamed_check: %w", common.ErrConflict)
	}
	for _, rn := range r.t.renames {
		if rn.From == from {
			return fmt.Errorf("renamed_user_id_from_key: %w", common.ErrConflict)
		}
		if rn.To == to {
			return fmt.Errorf("renamed_user_id_to_key: %w", common.ErrConflict)
		}
	}
	r.t.renames = append(r.t.renames, model.Rename{From: from, To: to, CreatedAt: r.now()})
	return nil
}

// InsertRaw adds an edge without any checks, for building malformed fixtures.
func (s *Store) InsertRaw(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t.renames = append(s.t.renames, model.Rename{From: from, To: to, CreatedAt: s.now()})
}

type submissionRepo struct {
	t   *tables
	now func() time.Time
}

func (r *submissionRepo) FindUserID(_ context.Context, submissionID int64) (string, error) {
	sub, ok := r.t.submissions[submissionID]
	if !ok {
		return "", common.ErrNotFound
	}
	return sub.UserID, nil
}

func (r *submissionRepo) UpsertSubmission(_ context.Context, s *model.Submission) (bool, error) {
	if _, ok := r.t.contestTasks[contestTaskKey{s.ContestID, s.TaskID}]; !ok {
		return false, fmt.Errorf("submissions_contest_id_task_id_fkey: %w", common.ErrIntegrity)
	}
	if _, ok := r.t.users[s.UserID]; !ok {
		return false, fmt.Errorf("submissions_user_id_fkey: %w", common.ErrIntegrity)
	}
	now := r.now()
	row := *s
	existing, ok := r.t.submissions[s.ID]
	if ok {
		row.CreatedAt = existing.CreatedAt
	} else {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	r.t.submissions[s.ID] = row
	return !ok, nil
}

func (r *submissionRepo) LatestSubmittedAt(_ context.Context) (time.Time, bool, error) {
	var latest time.Time
	found := false
	for _, sub := range r.t.submissions {
		if !found || sub.SubmittedAt.After(latest) {
			latest, found = sub.SubmittedAt, true
		}
	}
	return latest, found, nil
}
