package api

import (
	"net/http"
	"time"

	"judge_mirror/internal/api/handler"
	"judge_mirror/internal/api/middleware"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

func NewRouter(runs handler.StatusSource, db handler.Pinger, log zerolog.Logger) http.Handler {
	log = log.With().Str("component", "http").Logger()
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(30 * time.Second))

	handler.NewStatusHandler(runs, db).RegisterRoutes(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
