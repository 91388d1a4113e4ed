package service

import (
	"context"
	"fmt"
	"time"

	"judge_mirror/internal/domain/model"
	"judge_mirror/internal/domain/repository"
)

const recentContestLimit = 10

// ContestGuard reports whether a recently started contest is live. The
// judge API lags badly around contests, so scraping then mostly returns
// pages that will be rejudged.
type ContestGuard struct {
	contests repository.ContestRepository
}

func NewContestGuard(contests repository.ContestRepository) *ContestGuard {
	return &ContestGuard{contests: contests}
}

func (g *ContestGuard) Running(ctx context.Context, now time.Time) (bool, error) {
	c, err := g.RunningContest(ctx, now)
	return c != nil, err
}

// RunningContest returns the first live contest among the recent ones.
func (g *ContestGuard) RunningContest(ctx context.Context, now time.Time) (*model.Contest, error) {
	recent, err := g.contests.ListRecentContests(ctx, recentContestLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent contests: %w", err)
	}
	for i := range recent {
		if recent[i].Running(now) {
			return &recent[i], nil
		}
	}
	return nil, nil
}
