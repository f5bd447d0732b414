package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"xarajat/internal/amqp"
	"xarajat/internal/bot"
	"xarajat/internal/config"
	"xarajat/internal/gateway"
	apphttp "xarajat/internal/http"
	applog "xarajat/internal/log"
	"xarajat/internal/report"
	"xarajat/internal/storage"
)

func main() {
	// .env is for local development; in containers the environment is
	// set directly.
	_ = godotenv.Load()

	logCfg := applog.DefaultConfig()
	logCfg.Component = applog.ComponentApp
	logger := applog.New(logCfg)
	applog.SetDefault(logger)

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

	// AMQP is optional; without it reports build inline and the mirror
	// relies on the worker's pending sweep.
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, reports will build inline", applog.FieldError, err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	}

	sender := gateway.NewClient(cfg.GatewayURL, cfg.GatewayToken)
	reports := report.NewService(repo, logger.WithComponent(applog.ComponentReport).Slog())

	botOpts := bot.Options{
		Store:          repo,
		Reports:        reports,
		Sender:         sender,
		AllowedUserIDs: cfg.AllowedUserIDs,
		AdminUserIDs:   cfg.AdminUserIDs,
		Location:       loc,
		Logger:         logger.WithComponent(applog.ComponentBot).Slog(),
	}
	if amqpClient != nil {
		botOpts.Jobs = amqpClient
		if cfg.MirrorSpreadsheetID != "" {
			botOpts.Mirror = amqpClient
		}
	}
	dispatcher := bot.NewDispatcher(botOpts)

	srv := apphttp.NewServer(":"+cfg.Port, dispatcher, cfg.GatewayToken)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown error", applog.FieldError, err)
		}
		cancel()
	}()

	logger.Info("starting xarajat", "port", cfg.Port, "timezone", cfg.Timezone)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("server stopped gracefully")
}
