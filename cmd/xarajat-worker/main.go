package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"xarajat/internal/amqp"
	"xarajat/internal/config"
	"xarajat/internal/gateway"
	applog "xarajat/internal/log"
	gmirror "xarajat/internal/mirror/google"
	"xarajat/internal/report"
	"xarajat/internal/storage"
	"xarajat/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentWorker
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

	logger.Info("starting xarajat-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", applog.FieldError, err, "timezone", cfg.Timezone)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, loc)
	if err != nil {
		logger.Error("failed to open ledger store", applog.FieldError, err, applog.FieldPath, cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	sender := gateway.NewClient(cfg.GatewayURL, cfg.GatewayToken)
	reports := report.NewService(repo, logger.WithComponent(applog.ComponentReport).Slog())
	reportWorker := worker.NewReportWorker(reports, sender, logger.WithComponent(applog.ComponentReport).Slog())

	// The mirror is optional; without a spreadsheet id the worker only
	// serves reports.
	var mirrorWorker *worker.MirrorWorker
	if cfg.MirrorSpreadsheetID != "" {
		mirrorClient, err := gmirror.NewFromEnv(context.Background(), cfg.MirrorSpreadsheetID, cfg.MirrorSheetName)
		if err != nil {
			logger.Error("failed to initialize spreadsheet mirror", applog.FieldError, err)
			os.Exit(1)
		}
		mirrorWorker = worker.NewMirrorWorker(repo, mirrorClient, logger.WithComponent(applog.ComponentMirror).Slog())
		logger.Info("spreadsheet mirror initialized", "spreadsheet_id", cfg.MirrorSpreadsheetID)
	} else {
		logger.Info("spreadsheet mirror disabled")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	router := worker.NewRouter(reportWorker, mirrorWorker, logger.Slog())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.Consume(gctx, router.Handle)
	})

	if mirrorWorker != nil {
		// Catch up on anything saved while the queue was unreachable.
		if err := mirrorWorker.Sweep(ctx, cfg.MirrorBatchSize); err != nil {
			logger.Error("startup mirror sweep failed", applog.FieldError, err)
		}

		g.Go(func() error {
			ticker := time.NewTicker(cfg.MirrorInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := mirrorWorker.Sweep(gctx, cfg.MirrorBatchSize); err != nil {
						logger.Error("periodic mirror sweep failed", applog.FieldError, err)
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("worker stopped gracefully")
}
