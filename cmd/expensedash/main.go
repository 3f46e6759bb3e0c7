package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"expensedash/internal/amqp"
	"expensedash/internal/auth"
	"expensedash/internal/cache"
	"expensedash/internal/cli"
	"expensedash/internal/core"
	apphttp "expensedash/internal/http"
	"expensedash/internal/log"
	"expensedash/internal/services"
	"expensedash/internal/session"
)

const (
	maxSessions      = 10000
	maxSummaries     = 1000
	summaryTTL       = 10 * time.Minute
	cacheSweepPeriod = time.Minute
	shutdownTimeout  = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()

	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentApp)

	logger.Info("Starting expensedash server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"db_path", cfg.DBPath,
		"amqp", cfg.AMQPEnabled())

	repo, created := cli.InitSQLite(logger, cfg.DBPath)
	defer repo.Close()

	creds := auth.NewCredentialStore(repo, auth.Config{
		AdminUsername: cfg.AdminUsername,
		Logger:        logger,
	})

	if created {
		if _, err := cli.SeedAccounts(context.Background(), logger, creds, cfg); err != nil {
			logger.Error("Failed to seed accounts", log.FieldError, err)
			os.Exit(1)
		}
	}

	summaries, err := cache.NewTinyLFU[core.Summary](maxSummaries, summaryTTL)
	if err != nil {
		logger.Error("Failed to create summary cache", log.FieldError, err)
		os.Exit(1)
	}
	defer summaries.Close()

	// A nil *amqp.Client must not end up inside the interface.
	var publisher services.EventPublisher
	var amqpClient *amqp.Client
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, expense events disabled", log.FieldError, err)
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	expenses := services.NewExpenseService(repo, publisher, summaries, logger)

	caches := cache.NewManager(logger)
	sessionStates := cache.NewIdleCache[session.State](maxSessions, cfg.SessionTTL)
	caches.Register(sessionStates)

	secret := cfg.JWTSecret
	if secret == "" {
		secret, err = session.NewToken()
		if err != nil {
			logger.Error("Failed to generate token secret", log.FieldError, err)
			os.Exit(1)
		}
		logger.Warn("JWT_SECRET not set, API tokens will not survive a restart")
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Credentials:        creds,
		Tokens:             auth.NewTokenIssuer(secret, cfg.SessionTTL),
		Expenses:           expenses,
		Sessions:           session.NewStore(sessionStates),
		DB:                 repo,
		Logger:             logger,
		Caches:             caches,
		SessionTTL:         cfg.SessionTTL,
		SecureCookie:       cfg.SecureCookie,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	caches.StartCleanup(cacheSweepPeriod)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
	})

	logger.Info("HTTP server listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
