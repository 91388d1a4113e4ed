package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"judge_mirror/internal/common"
	"judge_mirror/internal/domain/model"
	"judge_mirror/internal/domain/repository/memstore"
	"judge_mirror/internal/platform/judgeapi"

	"github.com/rs/zerolog"
)

func newTestIngest() (*IngestService, *memstore.Store) {
	store := memstore.New()
	return NewIngestService(store, NewRenameResolver(zerolog.Nop()), zerolog.Nop()), store
}

func entities(t *testing.T, recs ...judgeapi.Record) []model.Entities {
	t.Helper()
	out := make([]model.Entities, 0, len(recs))
	for _, rec := range recs {
		e, err := Normalize(rec)
		if err != nil {
			t.Fatalf("Normalize: %v", err)
		}
		out = append(out, e)
	}
	return out
}

func TestCommitScenarioIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestIngest()
	page := entities(t, sampleRecord())

	first, err := svc.Commit(ctx, page)
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if first.New() != 5 || first.Updated() != 0 {
		t.Errorf("first commit new=%d updated=%d, want 5/0", first.New(), first.Updated())
	}
	before := store.Counts()
	sub, _ := store.Submission(101)

	second, err := svc.Commit(ctx, page)
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if second.New() != 0 || second.Updated() != 5 {
		t.Errorf("second commit new=%d updated=%d, want 0/5", second.New(), second.Updated())
	}

	after := store.Counts()
	for table, n := range before {
		if after[table] != n {
			t.Errorf("%s rows %d -> %d", table, n, after[table])
		}
	}
	again, _ := store.Submission(101)
	if !again.CreatedAt.Equal(sub.CreatedAt) || again.Status != "AC" || again.UserID != "alice" {
		t.Errorf("submission changed: %+v", again)
	}
}

func TestCommitRejudgeOverwrites(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestIngest()
	if _, err := svc.Commit(ctx, entities(t, sampleRecord())); err != nil {
		t.Fatal(err)
	}

	rec := sampleRecord()
	rec.Result = ptr("WA")
	rec.Point = ptr(0.0)
	rec.ContestTitle = ""
	if _, err := svc.Commit(ctx, entities(t, rec)); err != nil {
		t.Fatal(err)
	}

	sub, _ := store.Submission(101)
	if sub.Status != "WA" || sub.Score != 0 {
		t.Errorf("submission = %+v, want rejudged WA", sub)
	}
	if c, _ := store.Contest("abc100"); c.Name != "Beginner Contest 100" {
		t.Errorf("contest name = %q, an empty title must not erase it", c.Name)
	}
}

func TestCommitDedupesWithinPage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestIngest()

	second := sampleRecord()
	second.ID = ptr(int64(102))
	second.ProblemID = ptr("abc100_b")
	second.ProblemIndex = "B"
	dup := sampleRecord()
	dup.Result = ptr("WA")

	res, err := svc.Commit(ctx, entities(t, sampleRecord(), second, dup))
	if err != nil {
		t.Fatal(err)
	}
	want := model.CommitResult{
		Contests:     model.RowCount{New: 1},
		Tasks:        model.RowCount{New: 2},
		ContestTasks: model.RowCount{New: 2},
		Users:        model.RowCount{New: 1},
		Submissions:  model.RowCount{New: 2},
	}
	if res != want {
		t.Errorf("result = %+v, want %+v", res, want)
	}
}

func TestCommitRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestIngest()
	store.FailNextCommit = errors.New("connection reset")

	if _, err := svc.Commit(ctx, entities(t, sampleRecord())); err == nil {
		t.Fatal("expected commit failure")
	}
	for table, n := range store.Counts() {
		if n != 0 {
			t.Errorf("%s has %d rows after rollback", table, n)
		}
	}
	if wm, _ := svc.Watermark(ctx); !wm.IsZero() {
		t.Errorf("watermark = %v after rollback", wm)
	}
}

func TestCommitRecordsRenameOnReattribution(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestIngest()
	if _, err := svc.Commit(ctx, entities(t, sampleRecord())); err != nil {
		t.Fatal(err)
	}

	renamed := sampleRecord()
	renamed.UserID = ptr("alice2")
	res, err := svc.Commit(ctx, entities(t, renamed))
	if err != nil {
		t.Fatal(err)
	}
	if res.Renames != 1 || res.Users.New != 1 {
		t.Errorf("result = %+v, want one rename and one new user", res)
	}
	if got := store.Renames(); len(got) != 1 || got[0].From != "alice" || got[0].To != "alice2" {
		t.Errorf("renames = %+v", got)
	}
	if sub, _ := store.Submission(101); sub.UserID != "alice2" {
		t.Errorf("submission user = %q, want alice2", sub.UserID)
	}

	// A lagging feed still reporting the old handle attributes to the new one.
	stale := sampleRecord()
	stale.ID = ptr(int64(103))
	res, err = svc.Commit(ctx, entities(t, stale))
	if err != nil {
		t.Fatal(err)
	}
	if res.Renames != 0 {
		t.Errorf("unexpected rename %+v", res)
	}
	if sub, _ := store.Submission(103); sub.UserID != "alice2" {
		t.Errorf("stale submission user = %q, want alice2", sub.UserID)
	}
	if !store.HasUser("alice") || !store.HasUser("alice2") {
		t.Error("both handles should be recorded as observed")
	}
}

func TestCommitConflictAbortsPage(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestIngest()
	if _, err := svc.ApplyRenameSeed(ctx, []model.Rename{{From: "carol", To: "alice2"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Commit(ctx, entities(t, sampleRecord())); err != nil {
		t.Fatal(err)
	}

	renamed := sampleRecord()
	renamed.UserID = ptr("alice2")
	other := sampleRecord()
	other.ID = ptr(int64(200))
	_, err := svc.Commit(ctx, entities(t, other, renamed))
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if _, ok := store.Submission(200); ok {
		t.Error("submission 200 visible after aborted page")
	}
}

func TestCommitReferentialOrdering(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestIngest()

	var recs []judgeapi.Record
	for i, task := range []string{"abc101_a", "abc101_b", "abc102_c"} {
		rec := sampleRecord()
		rec.ID = ptr(int64(300 + i))
		rec.ContestID = ptr(task[:6])
		rec.ProblemID = ptr(task)
		recs = append(recs, rec)
	}
	if _, err := svc.Commit(ctx, entities(t, recs...)); err != nil {
		t.Fatal(err)
	}
	for i := range recs {
		sub, ok := store.Submission(int64(300 + i))
		if !ok {
			t.Fatalf("submission %d missing", 300+i)
		}
		if !store.HasContestTask(sub.ContestID, sub.TaskID) {
			t.Errorf("submission %d visible without (%s, %s)", sub.ID, sub.ContestID, sub.TaskID)
		}
	}
}

func TestWatermarkTracksLatestSubmission(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestIngest()

	late := sampleRecord()
	late.ID = ptr(int64(110))
	late.EpochSecond = ptr(int64(1_600_000_900))
	if _, err := svc.Commit(ctx, entities(t, late, sampleRecord())); err != nil {
		t.Fatal(err)
	}
	wm, err := svc.Watermark(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if want := time.Unix(1_600_000_900, 0); !wm.Equal(want) {
		t.Errorf("watermark = %v, want %v", wm, want)
	}
}

func TestLoadRenameSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "renames.txt")
	content := "# handle changes\nalice alice2\n\n  bob   bobby  \n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	seeds, err := LoadRenameSeed(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(seeds) != 2 || seeds[0] != (model.Rename{From: "alice", To: "alice2"}) || seeds[1].To != "bobby" {
		t.Errorf("seeds = %+v", seeds)
	}

	bad := filepath.Join(t.TempDir(), "bad.txt")
	os.WriteFile(bad, []byte("alice\n"), 0o644)
	if _, err := LoadRenameSeed(bad); err == nil {
		t.Error("expected parse error for a single-column line")
	}
}

func TestApplyRenameSeed(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestIngest()
	seeds := []model.Rename{{From: "alice", To: "alice2"}, {From: "alice2", To: "alice3"}}

	n, err := svc.ApplyRenameSeed(ctx, seeds)
	if err != nil || n != 2 {
		t.Fatalf("ApplyRenameSeed = %d, %v", n, err)
	}
	if n, err = svc.ApplyRenameSeed(ctx, seeds); err != nil || n != 0 {
		t.Fatalf("reapply = %d, %v, want 0", n, err)
	}
	if _, err := svc.ApplyRenameSeed(ctx, []model.Rename{{From: "x", To: "y"}, {From: "alice3", To: "alice"}}); !errors.Is(err, common.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if len(store.Renames()) != 2 {
		t.Error("conflicting seed must roll back")
	}
}

func TestContestGuard(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestIngest()
	if _, err := svc.Commit(ctx, entities(t, sampleRecord())); err != nil {
		t.Fatal(err)
	}
	guard := NewContestGuard(store.Repositories().Contests)
	start := time.Unix(1_600_000_000, 0)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"day before", start.Add(-24 * time.Hour), false},
		{"half hour before start", start.Add(-30 * time.Minute), true},
		{"during", start.Add(time.Hour), true},
		{"just after end", start.Add(110 * time.Minute), true},
		{"long after", start.Add(5 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := guard.Running(ctx, tt.now)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("Running = %v, want %v", got, tt.want)
			}
		})
	}
}
