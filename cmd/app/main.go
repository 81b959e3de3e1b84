package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"storybook-platform/internal/config"
	"storybook-platform/internal/domain/ports/adapter"
	aiAdapters "storybook-platform/internal/infra/adapters/ai"
	"storybook-platform/internal/infra/api"
	pg "storybook-platform/internal/infra/db/postgres"
	"storybook-platform/internal/infra/i18n"
	"storybook-platform/internal/infra/logging"
	"storybook-platform/internal/infra/metrics"
	"storybook-platform/internal/infra/moderation"
	red "storybook-platform/internal/infra/redis"
	"storybook-platform/internal/infra/sched"
	"storybook-platform/internal/infra/storage"
	"storybook-platform/internal/infra/telemetry"
	"storybook-platform/internal/infra/worker"
	"storybook-platform/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (synthetic defaults, pretty logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)
	logger.Info().
		Str("version", version).
		Str("database", logging.Redact(cfg.Database.URL, cfg.Runtime.Dev)).
		Str("redis", logging.Redact(cfg.Redis.URL, cfg.Runtime.Dev)).
		Bool("synthetic_ai", cfg.AI.Synthetic).
		Msg("starting")

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("app stopped with error")
	}
}

func run(cfg *config.Config, logger *zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	walletRepo := pg.NewWalletRepo(pool)
	ledgerRepo := pg.NewLedgerRepo(pool)
	storyRepo := pg.NewStoryRepoCacheDecorator(pg.NewStoryRepo(pool), redisClient, cfg.Redis.StatusTTL)
	pageRepo := pg.NewPageRepo(pool)
	usageRepo := pg.NewUsageRepo(pool)
	eventRepo := pg.NewEventRepo(pool)

	// ---- Adapters ----
	gens, err := aiAdapters.Build(ctx, cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("ai providers: %w", err)
	}
	moderator, err := moderation.NewKeywordModerator()
	if err != nil {
		return fmt.Errorf("moderation: %w", err)
	}
	persister, err := newPersister(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	sink := telemetry.NewEventSink(eventRepo, logger)

	// ---- Use cases ----
	pricing := cfg.Pricing
	walletUC := usecase.NewWalletUseCase(walletRepo, ledgerRepo, pg.NewAdvisoryLocker(), tm, pricing, cfg.Auth.AdminUserIDs, logger)
	gateUC := usecase.NewGateUseCase(walletUC, usageRepo, pricing, logger)
	generationUC := usecase.NewGenerationUseCase(storyRepo, pageRepo, tm, walletUC, gens.Text, gens.Image, persister, moderator, sink, pricing, cfg.Worker.ImageFanout, logger)

	jobs := worker.NewPool(cfg.Worker.Workers, cfg.Worker.QueueSize, logger)
	jobs.Start(context.Background())
	dispatcher := worker.NewStoryDispatcher(jobs, generationUC, cfg.Worker.JobTimeout, logger)

	storyUC := usecase.NewStoryUseCase(storyRepo, pageRepo, gateUC, walletUC, red.NewLocker(redisClient), dispatcher, moderator, sink, pricing, cfg.Redis.LockTTL, logger)
	narrationUC := usecase.NewNarrationUseCase(storyRepo, pageRepo, tm, gateUC, walletUC, gens.Audio, persister, sink, pricing, cfg.Worker.ImageFanout, logger)

	// ---- HTTP ----
	auth := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.AdminUserIDs)
	messages, err := i18n.NewCatalog(i18n.LocalesFS, "es", "en")
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}

	srv := api.NewServer(storyUC, narrationUC, gateUC, walletUC, auth, red.NewRateLimiter(redisClient), api.Options{
		CreatePerMinute: cfg.HTTP.CreatePerMinute,
		RequestTimeout:  cfg.HTTP.WriteTimeout,
		AssetsDir:       cfg.Storage.LocalDir,
		Messages:        messages,
		Checks: map[string]api.HealthCheck{
			"postgres": func(ctx context.Context) error { return pool.Ping(ctx) },
			"redis":    redisClient.Ping,
		},
	}, logger)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", server.Addr).Str("version", version).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return ignoreCancel(sched.NewRenewalWorker(cfg.Scheduler.RenewalInterval, walletUC, logger).Run(gctx))
	})
	g.Go(func() error {
		reaper := sched.NewStaleReaper(cfg.Scheduler.ReaperInterval, 2*cfg.Worker.JobTimeout, generationUC, logger)
		return ignoreCancel(reaper.Run(gctx))
	})
	g.Go(func() error {
		pg.ReportPoolStats(gctx, pool, 15*time.Second, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("http shutdown")
		}
		// running jobs get the rest of the budget, then are cancelled and refunded
		if err := jobs.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("story jobs cancelled at shutdown")
		}
		return nil
	})
	return g.Wait()
}

func ignoreCancel(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// newPersister orders stores object first, then local disk. With neither
// configured assets are inlined as data URLs.
func newPersister(cfg config.StorageConfig, logger *zerolog.Logger) (*storage.Persister, error) {
	var stores []adapter.AssetStore
	if cfg.ObjectStoreURL != "" {
		s, err := storage.NewObjectStore(cfg.ObjectStoreURL, cfg.ObjectStoreToken, cfg.PublicBaseURL, cfg.UploadRetries, cfg.RetryBackoff)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	if cfg.LocalDir != "" {
		s, err := storage.NewFileStore(cfg.LocalDir, cfg.LocalBaseURL)
		if err != nil {
			return nil, err
		}
		stores = append(stores, s)
	}
	if len(stores) == 0 {
		logger.Warn().Msg("no asset store configured, assets will be inlined")
	}
	return storage.NewPersister(cfg.DownloadTimeout, logger, stores...), nil
}
