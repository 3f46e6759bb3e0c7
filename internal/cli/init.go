// Package cli provides the initialization shared by cmd/expensedash,
// cmd/expensedash-worker and cmd/expensectl.
package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"expensedash/internal/auth"
	"expensedash/internal/config"
	"expensedash/internal/log"
	"expensedash/internal/storage"
)

// SetupLogger builds the process logger for level and makes it the slog
// default.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Configuration load failed", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitSQLite opens the repository at dbPath. created reports whether the
// database file did not exist beforehand.
func InitSQLite(logger *log.Logger, dbPath string) (repo *storage.SQLiteRepository, created bool) {
	_, statErr := os.Stat(dbPath)
	created = errors.Is(statErr, fs.ErrNotExist)

	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", dbPath)
		os.Exit(1)
	}
	return repo, created
}

// SeedAccounts creates the configured admin and demo accounts, skipping
// any that already exist. It returns the usernames it created.
func SeedAccounts(ctx context.Context, logger *log.Logger, creds *auth.CredentialStore, cfg *config.Config) ([]string, error) {
	accounts := []auth.Account{{Username: cfg.AdminUsername, Password: cfg.AdminPassword}}
	if cfg.DemoUsername != "" {
		accounts = append(accounts, auth.Account{Username: cfg.DemoUsername, Password: cfg.DemoPassword})
	}

	created, err := creds.Seed(ctx, accounts)
	if err != nil {
		return nil, err
	}
	logger.InfoContext(ctx, "Seed accounts checked",
		log.FieldOperation, log.OpSeed,
		"created", created)
	return created, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
