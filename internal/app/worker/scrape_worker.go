package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"judge_mirror/internal/app/service"
	"judge_mirror/internal/common"
	"judge_mirror/internal/domain/model"
	"judge_mirror/internal/platform/judgeapi"
	"judge_mirror/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type PageFetcher interface {
	FetchPage(ctx context.Context, req judgeapi.PageRequest) ([]judgeapi.Record, error)
}

type PageCommitter interface {
	Commit(ctx context.Context, page []model.Entities) (model.CommitResult, error)
	Watermark(ctx context.Context) (time.Time, error)
}

type ContestChecker interface {
	RunningContest(ctx context.Context, now time.Time) (*model.Contest, error)
}

type Options struct {
	MaxPages int            // 0 means unlimited
	Guard    ContestChecker // nil disables the running contest check
	Logger   zerolog.Logger
	Now      func() time.Time
}

// RunSummary describes one scrape run. It is also served by /status.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	State      State     `json:"state"`
	Pages      int       `json:"pages"`
	New        int       `json:"new"`
	Updated    int       `json:"updated"`
	Skipped    int       `json:"skipped"`
	Renames    int       `json:"renames"`
	Watermark  time.Time `json:"watermark"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Error      string    `json:"error,omitempty"`
}

// ScrapeWorker drives the fetch, normalize, commit loop until the feed is
// exhausted or an unrecovered error occurs. Pages are handled strictly one
// at a time.
type ScrapeWorker struct {
	fetcher  PageFetcher
	ingest   PageCommitter
	guard    ContestChecker
	maxPages int
	log      zerolog.Logger
	now      func() time.Time

	mu      sync.RWMutex
	summary RunSummary
	lastErr error
}

func NewScrapeWorker(fetcher PageFetcher, ingest PageCommitter, opts Options) *ScrapeWorker {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &ScrapeWorker{
		fetcher:  fetcher,
		ingest:   ingest,
		guard:    opts.Guard,
		maxPages: opts.MaxPages,
		log:      opts.Logger,
		now:      now,
		summary:  RunSummary{State: StateIdle},
	}
}

// Status returns a snapshot of the current or last run.
func (w *ScrapeWorker) Status() RunSummary {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.summary
}

// Err returns the error that failed the last run, or nil.
func (w *ScrapeWorker) Err() error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastErr
}

// Run performs one scrape. A FAILED run returns the error alongside the
// summary; the committed watermark is untouched by the failed page, so the
// next run resumes from it.
func (w *ScrapeWorker) Run(ctx context.Context) (RunSummary, error) {
	w.update(func(s *RunSummary) {
		*s = RunSummary{RunID: uuid.NewString(), State: StateIdle, StartedAt: w.now()}
		w.lastErr = nil
	})
	log := w.log.With().Str("run_id", w.Status().RunID).Logger()
	w.setState(log, StateIdle)

	watermark, err := w.ingest.Watermark(ctx)
	if err != nil {
		return w.fail(log, err)
	}
	w.update(func(s *RunSummary) { s.Watermark = watermark })
	metrics.RecordWatermark(watermark)
	log.Info().Time("watermark", watermark).Msg("scrape started")

	if w.guard != nil {
		contest, err := w.guard.RunningContest(ctx, w.now())
		if err != nil {
			return w.fail(log, err)
		}
		if contest != nil {
			log.Info().Str("contest_id", contest.ID).Msg("contest in progress, skipping scrape")
			return w.finish(log)
		}
	}

	cursor := NewCursor(watermark)
	for {
		if w.maxPages > 0 && w.Status().Pages >= w.maxPages {
			log.Info().Int("max_pages", w.maxPages).Msg("page limit reached")
			return w.finish(log)
		}

		w.setState(log, StateFetching)
		req := cursor.NextPage()
		records, err := w.fetcher.FetchPage(ctx, req)
		if err != nil {
			return w.fail(log, fmt.Errorf("fetch from %d: %w", req.FromEpochSecond, err))
		}
		fresh := cursor.Fresh(records)
		if len(fresh) == 0 && cursor.Saturated(records) {
			log.Warn().Int64("second", req.FromEpochSecond).Int("records", len(records)).
				Msg("page filled by one second, skipping past it")
			cursor.SkipSecond()
			continue
		}
		if len(fresh) == 0 {
			log.Info().Int64("from", req.FromEpochSecond).Int("records", len(records)).Msg("no new submissions")
			return w.finish(log)
		}

		w.setState(log, StateNormalizing)
		page, skipped := w.normalize(log, fresh)

		w.setState(log, StateCommitting)
		result, err := w.ingest.Commit(ctx, page)
		if err != nil {
			return w.fail(log, fmt.Errorf("commit page from %d: %w", req.FromEpochSecond, err))
		}

		committed := make([]model.Submission, len(page))
		for i := range page {
			committed[i] = page[i].Submission
		}
		watermark = cursor.Advance(committed, skipped)
		metrics.RecordWatermark(watermark)

		w.update(func(s *RunSummary) {
			s.Pages++
			s.New += result.New()
			s.Updated += result.Updated()
			s.Skipped += len(skipped)
			s.Renames += result.Renames
			s.Watermark = watermark
		})
		log.Info().
			Int("records", len(fresh)).
			Int("skipped", len(skipped)).
			Int("new", result.New()).
			Int("updated", result.Updated()).
			Time("watermark", watermark).
			Msg("page committed")
		w.setState(log, StateIdle)
	}
}

func (w *ScrapeWorker) normalize(log zerolog.Logger, records []judgeapi.Record) ([]model.Entities, []judgeapi.Record) {
	page := make([]model.Entities, 0, len(records))
	var skipped []judgeapi.Record
	for _, rec := range records {
		e, err := service.Normalize(rec)
		if err != nil {
			ev := log.Warn().Err(err).RawJSON("raw", rawOrNull(rec.Raw))
			var mre *common.MalformedRecordError
			if errors.As(err, &mre) {
				ev = ev.Int64("submission_id", mre.SubmissionID).Str("field", mre.Field)
			}
			ev.Msg("skipping malformed record")
			metrics.ScrapeRecordsSkipped.Inc()
			skipped = append(skipped, rec)
			continue
		}
		page = append(page, e)
	}
	return page, skipped
}

func rawOrNull(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}

func (w *ScrapeWorker) update(fn func(s *RunSummary)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(&w.summary)
}

func (w *ScrapeWorker) setState(log zerolog.Logger, state State) {
	w.update(func(s *RunSummary) { s.State = state })
	metrics.ScrapeState.Set(float64(state))
	log.Debug().Stringer("state", state).Msg("state transition")
}

func (w *ScrapeWorker) finish(log zerolog.Logger) (RunSummary, error) {
	w.update(func(s *RunSummary) { s.FinishedAt = w.now() })
	w.setState(log, StateDone)
	s := w.Status()
	log.Info().
		Int("pages", s.Pages).
		Int("new", s.New).
		Int("updated", s.Updated).
		Int("skipped", s.Skipped).
		Time("watermark", s.Watermark).
		Msg("scrape done")
	return s, nil
}

func (w *ScrapeWorker) fail(log zerolog.Logger, err error) (RunSummary, error) {
	w.update(func(s *RunSummary) {
		s.FinishedAt = w.now()
		s.Error = err.Error()
		w.lastErr = err
	})
	w.setState(log, StateFailed)
	log.Error().Err(err).Msg("scrape failed")
	return w.Status(), err
}
