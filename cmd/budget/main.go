package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"budget/internal/amqp"
	"budget/internal/cache"
	"budget/internal/cli"
	"budget/internal/events"
	apphttp "budget/internal/http"
	applog "budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Configuration error", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp)
	loc, _ := cfg.Location() // checked by Validate

	res, err := cli.OpenStore(context.Background(), logger, cfg)
	if err != nil {
		logger.Error("Failed to open store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	bus := events.NewBus(0)
	agg := services.NewAggregator(res.Store, bus, services.AggregatorConfig{
		Location:      loc,
		TopCategories: cfg.TopCategories,
		CacheSize:     cfg.CacheSize,
		CacheTTL:      cfg.CacheTTL,
	})

	cacheManager := cache.NewManager()
	for _, c := range agg.Caches() {
		cacheManager.Register(c)
	}
	cacheManager.StartCleanup(cfg.CacheTTL)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:     services.NewLedger(res.Store, bus),
		Transfers:  services.NewTransfers(res.Store, bus),
		Aggregator: agg,
		Store:      res.Store,
		Bus:        bus,
	}, apphttp.Options{
		CurrencyDecimals: int32(cfg.CurrencyDecimals),
		RateLimit:        ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute},
		BlockSuspicious:  cfg.BlockSuspicious,
	})
	if err != nil {
		logger.Error("Failed to configure server", "error", err)
		os.Exit(1)
	}

	// Changes leave the process through AMQP when a broker is configured;
	// otherwise backups are written in-process.
	var (
		amqpClient *amqp.Client
		backups    *services.BackupProcessor
	)
	relayCtx, stopRelay := context.WithCancel(context.Background())
	changes, unsubscribe := bus.Subscribe()
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		go amqpClient.Relay(relayCtx, changes)
		logger.Info("Relaying changes to AMQP", "exchange", cfg.AMQPExchange)
	} else {
		backups = services.NewBackupProcessor(res.Store, services.BackupConfig{
			Dir:  cfg.BackupDir,
			Keep: cfg.BackupKeep,
		})
		if err := backups.Start(relayCtx); err != nil {
			logger.Error("Failed to start backup processor", "error", err)
			os.Exit(1)
		}
		go func() {
			for change := range changes {
				if err := backups.HandleChange(relayCtx, amqp.NewChangeMessage(change)); err != nil {
					logger.Warn("Backup failed", "error", err, "version", change.Version)
				}
			}
		}()
		logger.Info("AMQP disabled, writing backups in-process", "dir", cfg.BackupDir)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		unsubscribe()
		if backups != nil {
			if err := backups.Stop(ctx); err != nil {
				logger.Error("Backup processor stop error", "error", err)
			}
		}
		stopRelay()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", "error", err)
			}
		}
		agg.Close()
		cacheManager.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Store close error", "error", err)
		}
	})

	logger.Info("Starting budget server", "port", cfg.Port, "backend", cfg.DataBackend, "timezone", loc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
