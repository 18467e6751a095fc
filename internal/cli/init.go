// Package cli provides the initialization steps shared by the finances
// commands: environment, config, logging, storage and signal handling.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"finances/internal/config"
	"finances/internal/log"
	"finances/internal/storage"
)

// LoadAndValidateConfig loads .env (if present) and the environment, then
// validates the result.
func LoadAndValidateConfig(envFiles ...string) (*config.Config, error) {
	config.LoadEnvFile(envFiles...)
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger installs the configured logger, writing to w, as the slog
// default.
func SetupLogger(cfg *config.Config, w io.Writer) (*log.Logger, error) {
	logger, err := log.SetupTo(w, cfg.LogLevel, cfg.LogFormat, log.ComponentApp)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	return logger, nil
}

// InitSQLite opens the database, bringing the schema up to date, with the
// configured category delete policy.
func InitSQLite(ctx context.Context, logger *log.Logger, cfg *config.Config) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, storage.WithDeletePolicy(cfg.DeletePolicy()))
	if err != nil {
		fields := log.NewFields().WithError(err).WithErrorType(log.ErrorTypeDatabase).WithOperation(log.OpStartup)
		logger.ErrorContext(ctx, "Failed to initialize SQLite repository", append(fields.ToSlice(), "path", cfg.SQLiteDBPath)...)
		return nil, err
	}
	logger.InfoContext(ctx, "SQLite repository ready",
		"path", cfg.SQLiteDBPath,
		"delete_policy", repo.DeletePolicy())
	return repo, nil
}

// SeedCategories inserts the configured starter categories into an empty
// database. Without a seed file it does nothing.
func SeedCategories(ctx context.Context, logger *log.Logger, repo *storage.SQLiteRepository, path string) error {
	if path == "" {
		logger.DebugContext(ctx, "No seed categories file configured")
		return nil
	}
	seed, err := storage.LoadSeed(path)
	if err != nil {
		return err
	}
	n, err := repo.SeedCategories(ctx, seed)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "Category seeding finished",
		log.FieldOperation, log.OpSeed,
		"file", path,
		"inserted", n)
	return nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. The
// returned stop function releases the signal handler.
func GracefulShutdown(parent context.Context, logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
