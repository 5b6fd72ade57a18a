package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"budget/internal/amqp"
	"budget/internal/cli"
	applog "budget/internal/log"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Configuration error", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting budget-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.DataBackend != "sqlite" {
		// A memory store here would be a different, empty ledger.
		logger.Error("The worker reads the shared database and needs DATA_BACKEND=sqlite", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	res, err := cli.OpenStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	processor := services.NewBackupProcessor(res.Store, services.BackupConfig{
		Dir:  cfg.BackupDir,
		Keep: cfg.BackupKeep,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := processor.Stop(ctx); err != nil {
			logger.Error("Backup processor stop error", "error", err)
		}
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	})

	// Startup backup so a fresh worker always leaves at least one file.
	if path, err := processor.Backup(ctx); err != nil {
		logger.Error("Startup backup failed", "error", err)
	} else {
		logger.Info("Startup backup written", "path", path)
	}

	if err := processor.Start(context.WithoutCancel(ctx)); err != nil {
		logger.Error("Failed to start backup processor", "error", err)
		os.Exit(1)
	}

	go func() {
		err := amqpClient.ConsumeChanges(ctx, processor.HandleChange)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	logger.Info("Worker running", "queue", cfg.AMQPQueue, "backup_dir", cfg.BackupDir, "keep", cfg.BackupKeep)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
