package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/aburayhan/cargo-erp/cmd/cargo/cli"
	"github.com/aburayhan/cargo-erp/internal/app"
	"github.com/aburayhan/cargo-erp/internal/dashboard"
	dashboardhttp "github.com/aburayhan/cargo-erp/internal/dashboard/http"
	"github.com/aburayhan/cargo-erp/internal/events"
	"github.com/aburayhan/cargo-erp/internal/ledger"
	ledgerhttp "github.com/aburayhan/cargo-erp/internal/ledger/http"
	"github.com/aburayhan/cargo-erp/internal/observability"
	"github.com/aburayhan/cargo-erp/internal/persist"
	"github.com/aburayhan/cargo-erp/internal/platform/cache"
	"github.com/aburayhan/cargo-erp/internal/reporting"
	reportinghttp "github.com/aburayhan/cargo-erp/internal/reporting/http"
	settingshttp "github.com/aburayhan/cargo-erp/internal/settings/http"
	"github.com/aburayhan/cargo-erp/jobs"
	"github.com/aburayhan/cargo-erp/report"
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

	if len(os.Args) > 1 {
		os.Exit(runCommand(ctx, cfg, logger, os.Args[1], os.Args[2:]))
	}

	if err := serve(ctx, stop, cfg, logger); err != nil {
		logger.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// runCommand dispatches the operator subcommands.
func runCommand(ctx context.Context, cfg *app.Config, logger *slog.Logger, name string, args []string) int {
	switch name {
	case "audit":
		state, err := app.OpenState(ctx, cfg, logger, nil)
		if err != nil {
			logger.Error("open state", slog.Any("error", err))
			return 1
		}
		defer func() { _ = state.Close() }()
		fs := flag.NewFlagSet("audit", flag.ContinueOnError)
		jsonOut := fs.Bool("json", false, "print findings as JSON")
		if err := fs.Parse(args); err != nil {
			return 2
		}
		return cli.AuditCommand(ctx, state.Gateway, cli.AuditOptions{JSONOutput: *jsonOut})
	case "jobs":
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		defer func() { _ = jobsCLI.Close() }()
		return jobsCLI.Run(ctx, args, os.Stdout, os.Stderr)
	default:
		logger.Error("unknown command", slog.String("command", name))
		return 2
	}
}

func serve(ctx context.Context, stop context.CancelFunc, cfg *app.Config, logger *slog.Logger) error {
	metrics := observability.NewMetrics()

	state, err := app.OpenState(ctx, cfg, logger, metrics.Registerer())
	if err != nil {
		return err
	}
	defer func() {
		if err := state.Close(); err != nil {
			logger.Warn("state close", slog.Any("error", err))
		}
	}()

	shipments, status := state.Gateway.Load(ctx)
	logger.Info("ledger loaded", slog.Int("shipments", len(shipments)), slog.String("status", string(status)))

	syncer := persist.NewSyncer(state.Gateway, persist.SyncerConfig{
		Delay:   cfg.SyncDelay,
		Initial: status,
		Logger:  logger,
		Metrics: state.Metrics,
	})

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := kafkaPublisher.Close(); err != nil {
				logger.Warn("kafka close", slog.Any("error", err))
			}
		}()
		publisher = kafkaPublisher
	}

	ledgerService := ledger.NewService(shipments, ledger.ServiceConfig{
		Notifier:  syncer,
		Publisher: publisher,
		Logger:    logger,
	})

	metrics.WatchLedger(ledgerService, syncer)

	redisClient, err := cache.New(ctx, cfg.RedisAddr, 2*time.Second)
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	dashboardService := dashboard.NewService(ledgerService, dashboard.NewCache(redisClient, cfg.CacheTTL), logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportingService := reporting.NewService(ledgerService, state.Settings, reportClient)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		Health:           state.Gateway,
		Sync:             syncer,
		LedgerHandler:    ledgerhttp.NewHandler(logger, ledgerService),
		SettingsHandler:  settingshttp.NewHandler(logger, state.Settings),
		ReportingHandler: reportinghttp.NewHandler(logger, reportingService, jobClient, syncer),
		DashboardHandler: dashboardhttp.NewHandler(logger, dashboardService),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	// last mutation must reach the stores before the process exits
	final := syncer.Flush(shutdownCtx)
	logger.Info("ledger flushed", slog.String("status", string(final)))
	return nil
}
