package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"judge_mirror/internal/app/worker"
	"judge_mirror/internal/common"

	"github.com/go-chi/chi/v5"
)

type StatusSource interface {
	Status() worker.RunSummary
	// Err is the error that failed the last run, nil otherwise.
	Err() error
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

type StatusHandler struct {
	runs StatusSource
	db   Pinger
}

// NewStatusHandler serves run status. db may be nil, in which case /health
// only reports that the process is up.
func NewStatusHandler(runs StatusSource, db Pinger) *StatusHandler {
	return &StatusHandler{runs: runs, db: db}
}

func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.Get("/status", h.status)
}

func (h *StatusHandler) health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			err = fmt.Errorf("ping database: %v: %w", err, common.ErrTransient)
			common.RespondWithError(w, common.HTTPStatusFromError(err), "database unreachable")
			return
		}
	}
	w.Write([]byte("OK"))
}

// status answers 200 while a run is in progress or after it succeeded, and
// the status mapped from the failure otherwise.
func (h *StatusHandler) status(w http.ResponseWriter, r *http.Request) {
	common.RespondWithJSON(w, common.HTTPStatusFromError(h.runs.Err()), h.runs.Status())
}
