package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"judge_mirror/internal/api"
	"judge_mirror/internal/app/service"
	"judge_mirror/internal/app/worker"
	"judge_mirror/internal/domain/repository"
	"judge_mirror/internal/platform/config"
	"judge_mirror/internal/platform/database"
	"judge_mirror/internal/platform/judgeapi"
	"judge_mirror/internal/platform/lock"
	"judge_mirror/internal/platform/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	initSchema := flag.Bool("init-schema", false, "apply the database schema before scraping")
	renameSeed := flag.String("rename-seed", "", "file of \"old new\" handle pairs to record as renames")
	ignoreContests := flag.Bool("ignore-running-contests", false, "scrape even while a contest is running")
	flag.Parse()

	// 1. Load configuration
	config.Load()
	cfg := config.AppConfig

	// 2. Logging
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.With().Str("component", "scraper").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Database
	db, err := database.Open(ctx, cfg.DBConnStr)
	if err != nil {
		log.Error().Err(err).Msg("database unavailable")
		return 1
	}
	defer db.Close()
	log.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("database connected")

	if *initSchema {
		if err := database.Migrate(ctx, db); err != nil {
			log.Error().Err(err).Msg("schema migration failed")
			return 1
		}
		log.Info().Msg("schema applied")
	}

	// 4. Run lock, when Redis is configured
	if cfg.RedisAddr != "" {
		rdb, err := lock.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Error().Err(err).Msg("redis unavailable")
			return 1
		}
		defer rdb.Close()

		runLock := lock.NewRedisLock(rdb, cfg.ScrapeLockKey, time.Duration(cfg.ScrapeLockTTLSecond)*time.Second,
			logging.With().Str("component", "lock").Logger())
		if err := runLock.Acquire(ctx); err != nil {
			log.Error().Err(err).Msg("another scrape is running")
			return 1
		}
		defer runLock.Release(context.Background())

		lockCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		go runLock.KeepAlive(lockCtx, func(error) { stop() })
		ctx = lockCtx
	}

	// 5. Services
	store := repository.NewPgStore(db)
	resolver := service.NewRenameResolver(logging.With().Str("component", "renames").Logger())
	ingest := service.NewIngestService(store, resolver, logging.With().Str("component", "ingest").Logger())

	if *renameSeed != "" {
		seeds, err := service.LoadRenameSeed(*renameSeed)
		if err != nil {
			log.Error().Err(err).Msg("cannot read rename seed")
			return 1
		}
		n, err := ingest.ApplyRenameSeed(ctx, seeds)
		if err != nil {
			log.Error().Err(err).Msg("cannot apply rename seed")
			return 1
		}
		log.Info().Int("seeds", len(seeds)).Int("recorded", n).Msg("rename seed applied")
	}

	client, err := judgeapi.NewClient(judgeapi.Options{
		BaseURL:     cfg.JudgeAPIBaseURL,
		PagePath:    cfg.JudgeAPIPagePath,
		UserAgent:   cfg.JudgeAPIUserAgent,
		Timeout:     cfg.JudgeAPITimeout,
		MinInterval: cfg.JudgeAPIMinInterval,
		MaxAttempts: cfg.JudgeAPIMaxAttempts,
		BaseBackoff: cfg.JudgeAPIBaseBackoff,
		MaxBackoff:  cfg.JudgeAPIMaxBackoff,
		Logger:      logging.With().Str("component", "judgeapi").Logger(),
	})
	if err != nil {
		log.Error().Err(err).Msg("invalid judge API configuration")
		return 1
	}

	opts := worker.Options{
		MaxPages: cfg.ScrapeMaxPages,
		Logger:   log,
	}
	if !*ignoreContests {
		opts.Guard = service.NewContestGuard(store.Repositories().Contests)
	}
	scraper := worker.NewScrapeWorker(client, ingest, opts)

	// 6. Metrics and status server
	if cfg.MetricsAddr != "" {
		server := &http.Server{
			Addr:         cfg.MetricsAddr,
			Handler:      api.NewRouter(scraper, db, logging.Logger()),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	// 7. Scrape
	summary, err := scraper.Run(ctx)
	if err != nil {
		log.Error().Err(err).Stringer("state", summary.State).Msg("scrape failed")
		return 1
	}
	log.Info().
		Int("pages", summary.Pages).
		Int("new", summary.New).
		Int("updated", summary.Updated).
		Int("skipped", summary.Skipped).
		Time("watermark", summary.Watermark).
		Msg("scrape finished")
	return 0
}
