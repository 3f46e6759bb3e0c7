package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensedash/internal/amqp"
	"expensedash/internal/backend"
	"expensedash/internal/cli"
	"expensedash/internal/log"
	"expensedash/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	if err := cfg.ValidateWorker(); err != nil {
		boot.Error("Worker configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

	logger.Info("Starting expensedash-worker",
		log.FieldOperation, log.OpStartup,
		"sync_interval", cfg.SyncInterval.String(),
		"mirror", cfg.MirrorBackend)

	repo, _ := cli.InitSQLite(logger, cfg.DBPath)
	defer repo.Close()

	mirrorCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", log.FieldError, err)
		os.Exit(1)
	}
	mirror, err := backend.NewFactory(logger).CreateMirror(context.Background(), mirrorCfg)
	if err != nil {
		logger.Error("Failed to initialize sheet mirror", log.FieldError, err, "backend", mirrorCfg.Type.String())
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	mw := worker.NewMirrorWorker(repo, mirror, cfg.AdminUsername, logger)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, nil)

	// Catch up on anything changed while the worker was down.
	if err := mw.Resync(ctx); err != nil {
		logger.Warn("Startup resync failed, relying on periodic resync", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeExpenseEvents(gctx, mw.HandleEvent)
	})
	g.Go(func() error {
		return mw.RunPeriodic(gctx, cfg.SyncInterval)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
