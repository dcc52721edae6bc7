package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/pswdo-albay/aics/internal/app"
	"github.com/pswdo-albay/aics/internal/casework"
	"github.com/pswdo-albay/aics/internal/documents"
	"github.com/pswdo-albay/aics/internal/ledger"
	"github.com/pswdo-albay/aics/internal/observability"
	"github.com/pswdo-albay/aics/internal/platform/cache"
	"github.com/pswdo-albay/aics/internal/platform/db"
	"github.com/pswdo-albay/aics/internal/reports"
	"github.com/pswdo-albay/aics/internal/shared"
	"github.com/pswdo-albay/aics/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	var dbpool *pgxpool.Pool
	if cfg.AuditEnabled() {
		dbpool, err = db.Open(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer dbpool.Close()
		if err := db.EnsureAuditSchema(ctx, dbpool); err != nil {
			logger.Error("ensure audit schema", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Info("audit sink disabled, PG_DSN not set")
	}
	auditLogger := shared.NewAuditLogger(dbpool)

	var (
		redisClient      *redis.Client
		idempotencyStore *shared.IdempotencyStore
		notifier         *jobs.PostAuditNotifier
		jobHandler       *jobs.Handler
	)
	if cfg.RedisEnabled {
		redisClient, err = cache.New(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Error("connect redis", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		idempotencyStore = shared.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)

		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		queue := jobs.NewClient(redisOpts)
		defer func() {
			if err := queue.Close(); err != nil {
				logger.Warn("queue client close", slog.Any("error", err))
			}
		}()
		notifier = jobs.NewPostAuditNotifier(queue, logger)

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	} else {
		logger.Warn("redis disabled, idempotency keys and post-audit tasks are off")
	}

	metrics := observability.NewMetrics()

	ledgerOpts := []ledger.Option{
		ledger.WithLogger(logger),
		ledger.WithObserver(metrics),
	}
	if notifier != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithObserver(notifier))
	}
	engine, err := ledger.NewEngine(cfg.LedgerConfig(), ledgerOpts...)
	if err != nil {
		logger.Error("init ledger", slog.Any("error", err))
		os.Exit(1)
	}

	registry := documents.NewRegistry(nil)
	caseService := casework.NewService(
		casework.NewMemoryStore(),
		registry,
		engine,
		casework.WithLogger(logger),
		casework.WithAuditor(auditLogger),
		casework.WithTransitionRecorder(metrics),
		casework.WithControlNumbers(casework.NewControlNumbers(cfg.ControlSeqStart)),
	)
	reportService := reports.NewService(caseService, cfg.LedgerConfig(), nil)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		CaseHandler:   casework.NewHandler(logger, caseService, idempotencyStore),
		LedgerHandler: ledger.NewHandler(logger, engine),
		ReportHandler: reports.NewHandler(logger, reportService),
		JobHandler:    jobHandler,
		Metrics:       metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
