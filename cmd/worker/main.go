package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pswdo-albay/aics/internal/app"
	jobmetrics "github.com/pswdo-albay/aics/internal/jobs"
	"github.com/pswdo-albay/aics/internal/platform/db"
	"github.com/pswdo-albay/aics/internal/shared"
	"github.com/pswdo-albay/aics/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	var pool *pgxpool.Pool
	if cfg.AuditEnabled() {
		pool, err = db.Open(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			logger.Error("connect database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if err := db.EnsureAuditSchema(ctx, pool); err != nil {
			logger.Error("ensure audit schema", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.Warn("audit sink disabled, post-audit reviews are logged only")
	}

	postAudit := jobs.NewPostAuditJob(shared.NewAuditLogger(pool), logger, jobmetrics.NewMetrics(nil))

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLedgerPostAudit, Handler: postAudit.Handle},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
