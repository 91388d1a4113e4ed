package service

import (
	"context"
	"errors"
	"fmt"

	"judge_mirror/internal/common"
	"judge_mirror/internal/domain/model"
	"judge_mirror/internal/domain/repository"

	"github.com/rs/zerolog"
)

// RenameResolver maintains the renamed table.
//
// An edge is recorded when a submission already in the store comes back
// from the judge under a different handle: the stored handle (resolved to
// its newest known name) is renamed to the incoming one. Operators can also
// seed edges from an out-of-band list, see LoadRenameSeed.
type RenameResolver struct {
	log zerolog.Logger
}

func NewRenameResolver(log zerolog.Logger) *RenameResolver {
	return &RenameResolver{log: log}
}

// Resolve follows rename edges forward from id until none applies. A cycle
// stops resolution at the last handle before the repeat.
func (r *RenameResolver) Resolve(ctx context.Context, renames repository.RenameRepository, id string) (string, error) {
	visited := map[string]struct{}{id: {}}
	current := id
	for {
		edge, err := renames.FindByFrom(ctx, current)
		if errors.Is(err, common.ErrNotFound) {
			return current, nil
		}
		if err != nil {
			return "", fmt.Errorf("resolve %q: %w", id, err)
		}
		if _, seen := visited[edge.To]; seen {
			r.log.Error().Str("user_id", id).Str("at", current).Str("next", edge.To).Msg("rename cycle in store, stopping resolution")
			return current, nil
		}
		visited[edge.To] = struct{}{}
		current = edge.To
	}
}

// RecordRename inserts the edge from -> to. Inserting an existing edge is a
// no-op. It fails with common.ErrConflict when from equals to, when either
// handle already sits on that side of a different edge, or when the edge
// would close a cycle. It reports whether a row was written.
func (r *RenameResolver) RecordRename(ctx context.Context, renames repository.RenameRepository, from, to string) (bool, error) {
	if from == to {
		return false, fmt.Errorf("rename %q -> %q: self rename: %w", from, to, common.ErrConflict)
	}

	existing, err := renames.FindByFrom(ctx, from)
	switch {
	case err == nil && existing.To == to:
		return false, nil
	case err == nil:
		return false, fmt.Errorf("rename %q -> %q: %q already renamed to %q: %w", from, to, from, existing.To, common.ErrConflict)
	case !errors.Is(err, common.ErrNotFound):
		return false, err
	}

	existing, err = renames.FindByTo(ctx, to)
	switch {
	case err == nil:
		return false, fmt.Errorf("rename %q -> %q: %q already renamed from %q: %w", from, to, to, existing.From, common.ErrConflict)
	case !errors.Is(err, common.ErrNotFound):
		return false, err
	}

	head, err := r.Resolve(ctx, renames, to)
	if err != nil {
		return false, err
	}
	if head == from {
		return false, fmt.Errorf("rename %q -> %q: would close a cycle: %w", from, to, common.ErrConflict)
	}

	if err := renames.Insert(ctx, from, to); err != nil {
		return false, err
	}
	r.log.Info().Str("from", from).Str("to", to).Msg("recorded rename")
	return true, nil
}

// Observe attributes sub to the canonical handle and records a rename when
// the store already holds sub under a different one. It reports whether an
// edge was written.
func (r *RenameResolver) Observe(ctx context.Context, repos repository.Repositories, sub *model.Submission) (bool, error) {
	canonical, err := r.Resolve(ctx, repos.Renames, sub.UserID)
	if err != nil {
		return false, err
	}
	sub.UserID = canonical

	stored, err := repos.Submissions.FindUserID(ctx, sub.ID)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	storedCanonical, err := r.Resolve(ctx, repos.Renames, stored)
	if err != nil {
		return false, err
	}
	if storedCanonical == canonical {
		return false, nil
	}
	return r.RecordRename(ctx, repos.Renames, storedCanonical, canonical)
}
