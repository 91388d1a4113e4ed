package service

import (
	"context"
	"fmt"
	"time"

	"judge_mirror/internal/common"
	"judge_mirror/internal/domain/model"
	"judge_mirror/internal/domain/repository"
	"judge_mirror/internal/platform/metrics"

	"github.com/rs/zerolog"
)

type IngestService struct {
	store   repository.Store
	renames *RenameResolver
	log     zerolog.Logger
}

func NewIngestService(store repository.Store, renames *RenameResolver, log zerolog.Logger) *IngestService {
	return &IngestService{
		store:   store,
		renames: renames,
		log:     log,
	}
}

// Commit writes one page of normalized entities in a single transaction.
// Rows repeated within the page are written once; counts are per distinct
// row. Any error rolls the whole page back.
func (s *IngestService) Commit(ctx context.Context, page []model.Entities) (model.CommitResult, error) {
	var result model.CommitResult
	if len(page) == 0 {
		return result, nil
	}
	b := newPageBatch(page)

	err := s.store.InTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		result = model.CommitResult{}

		for i := range b.contests {
			inserted, err := repos.Contests.UpsertContest(ctx, &b.contests[i])
			if err != nil {
				return err
			}
			result.Contests.Add(inserted)
		}
		for i := range b.tasks {
			inserted, err := repos.Tasks.UpsertTask(ctx, &b.tasks[i])
			if err != nil {
				return err
			}
			result.Tasks.Add(inserted)
		}
		for i := range b.contestTasks {
			inserted, err := repos.Tasks.UpsertContestTask(ctx, &b.contestTasks[i])
			if err != nil {
				return err
			}
			result.ContestTasks.Add(inserted)
		}

		users := make(map[string]struct{})
		upsertUser := func(id string) error {
			if _, done := users[id]; done {
				return nil
			}
			users[id] = struct{}{}
			inserted, err := repos.Users.UpsertUser(ctx, id)
			if err != nil {
				return err
			}
			result.Users.Add(inserted)
			return nil
		}

		for i := range b.submissions {
			sub := &b.submissions[i]
			observed := sub.UserID

			recorded, err := s.renames.Observe(ctx, repos, sub)
			if err != nil {
				return fmt.Errorf("submission %d: %w", sub.ID, err)
			}
			if recorded {
				result.Renames++
			}

			if err := upsertUser(observed); err != nil {
				return err
			}
			if err := upsertUser(sub.UserID); err != nil {
				return err
			}

			ok, err := repos.Tasks.ContestTaskExists(ctx, sub.ContestID, sub.TaskID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("submission %d: contest task (%s, %s) missing: %w", sub.ID, sub.ContestID, sub.TaskID, common.ErrIntegrity)
			}

			inserted, err := repos.Submissions.UpsertSubmission(ctx, sub)
			if err != nil {
				return err
			}
			result.Submissions.Add(inserted)
		}
		return nil
	})
	if err != nil {
		return model.CommitResult{}, err
	}

	recordCommit(result)
	s.log.Debug().
		Int("contests", result.Contests.New+result.Contests.Updated).
		Int("submissions_new", result.Submissions.New).
		Int("submissions_updated", result.Submissions.Updated).
		Int("renames", result.Renames).
		Msg("page committed")
	return result, nil
}

// Watermark returns the latest committed submission time, or the zero time
// for an empty store.
func (s *IngestService) Watermark(ctx context.Context) (time.Time, error) {
	t, ok, err := s.store.Repositories().Submissions.LatestSubmittedAt(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load watermark: %w", err)
	}
	if !ok {
		return time.Time{}, nil
	}
	return t, nil
}

// ApplyRenameSeed records operator-supplied rename edges in one
// transaction. Edges already present are skipped. It returns the number of
// edges written.
func (s *IngestService) ApplyRenameSeed(ctx context.Context, seeds []model.Rename) (int, error) {
	written := 0
	err := s.store.InTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		written = 0
		for _, seed := range seeds {
			ok, err := s.renames.RecordRename(ctx, repos.Renames, seed.From, seed.To)
			if err != nil {
				return fmt.Errorf("rename seed: %w", err)
			}
			if ok {
				written++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.ScrapeRenames.Add(float64(written))
	return written, nil
}

func recordCommit(r model.CommitResult) {
	metrics.ScrapePages.Inc()
	metrics.RecordRows("contests", r.Contests.New, r.Contests.Updated)
	metrics.RecordRows("tasks", r.Tasks.New, r.Tasks.Updated)
	metrics.RecordRows("contests_tasks", r.ContestTasks.New, r.ContestTasks.Updated)
	metrics.RecordRows("users", r.Users.New, r.Users.Updated)
	metrics.RecordRows("submissions", r.Submissions.New, r.Submissions.Updated)
	metrics.ScrapeRenames.Add(float64(r.Renames))
}

// pageBatch holds the distinct rows of a page in first-seen order. A later
// occurrence of the same key replaces the earlier value.
type pageBatch struct {
	contests     []model.Contest
	tasks        []model.Task
	contestTasks []model.ContestTask
	submissions  []model.Submission
}

func newPageBatch(page []model.Entities) pageBatch {
	var b pageBatch
	contestIdx := make(map[string]int)
	taskIdx := make(map[string]int)
	contestTaskIdx := make(map[[2]string]int)
	submissionIdx := make(map[int64]int)

	for _, e := range page {
		if i, ok := contestIdx[e.Contest.ID]; ok {
			b.contests[i] = e.Contest
		} else {
			contestIdx[e.Contest.ID] = len(b.contests)
			b.contests = append(b.contests, e.Contest)
		}
		if i, ok := taskIdx[e.Task.ID]; ok {
			b.tasks[i] = e.Task
		} else {
			taskIdx[e.Task.ID] = len(b.tasks)
			b.tasks = append(b.tasks, e.Task)
		}
		key := [2]string{e.ContestTask.ContestID, e.ContestTask.TaskID}
		if i, ok := contestTaskIdx[key]; ok {
			b.contestTasks[i] = e.ContestTask
		} else {
			contestTaskIdx[key] = len(b.contestTasks)
			b.contestTasks = append(b.contestTasks, e.ContestTask)
		}
		if i, ok := submissionIdx[e.Submission.ID]; ok {
			b.submissions[i] = e.Submission
		} else {
			submissionIdx[e.Submission.ID] = len(b.submissions)
			b.submissions = append(b.submissions, e.Submission)
		}
	}
	return b
}
