package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aburayhan/cargo-erp/internal/app"
	jobmetrics "github.com/aburayhan/cargo-erp/internal/jobs"
	"github.com/aburayhan/cargo-erp/jobs"
	"github.com/aburayhan/cargo-erp/report"
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

	registry := prometheus.NewRegistry()
	state, err := app.OpenState(ctx, cfg, logger, registry)
	if err != nil {
		logger.Error("open state", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := state.Close(); err != nil {
			logger.Warn("state close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(registry)

	pdfJob := &jobs.BatchPDFJob{
		Loader:   state.Gateway,
		Settings: state.Settings,
		Renderer: report.NewClient(cfg.GotenbergURL),
		Dir:      cfg.ReportStorageDir,
		Logger:   logger,
		Metrics:  metrics,
	}
	backupJob := &jobs.LedgerBackupJob{
		Backup:  state.Gateway,
		Logger:  logger,
		Metrics: metrics,
	}

	backupCron := cfg.BackupCron
	if backupCron == "" {
		backupCron = jobs.DefaultBackupCron
	}
	var cron []jobs.CronRegistration
	if backupCron != "off" {
		cron = append(cron, jobs.CronRegistration{
			Spec:    backupCron,
			Task:    jobs.NewLedgerBackupTask(),
			Options: []asynq.Option{asynq.MaxRetry(3)},
		})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskBatchPDF, Handler: pdfJob.Handle},
			{Type: jobs.TaskLedgerBackup, Handler: backupJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if cfg.WorkerMetricsAddr != "" {
		metricsServer := &http.Server{
			Addr:              cfg.WorkerMetricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server", slog.Any("error", err))
			}
		}()
		defer func() { _ = metricsServer.Close() }()
	}

	logger.Info("worker started", slog.String("backup_cron", backupCron))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
