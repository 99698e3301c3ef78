// Package cli holds the start-up steps shared by the cricketpay binaries.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"cricketpay/internal/backend"
	"cricketpay/internal/cache"
	"cricketpay/internal/config"
	"cricketpay/internal/log"
	"cricketpay/internal/store"
)

// snapshotCacheSize bounds the ledgers a long-running process keeps in memory.
const snapshotCacheSize = 64

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// makes it the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	c := log.DefaultConfig()
	c.Component = component
	if cfg != nil {
		c.Level = log.ParseLevel(cfg.LogLevel)
		c.Format = cfg.LogFormat
	}
	logger := log.New(c)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// Backends are the local store and optional remote a process runs with.
type Backends struct {
	Repository backend.Repository
	// Remote is nil when REMOTE_BACKEND is none.
	Remote  store.Remote
	cleanup []backend.CleanupFunc
}

// Close releases the backends in reverse order of creation.
func (b *Backends) Close() error {
	var errs []error
	for i := len(b.cleanup) - 1; i >= 0; i-- {
		if err := b.cleanup[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// OpenBackends creates the repository and, when withRemote is set, the
// remote configured in cfg.
func OpenBackends(ctx context.Context, logger *log.Logger, cfg *config.Config, withRemote bool) (*Backends, error) {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)

	repo, err := factory.CreateRepository(ctx, bc)
	if err != nil {
		return nil, err
	}
	b := &Backends{Repository: repo.Repository}
	if repo.Cleanup != nil {
		b.cleanup = append(b.cleanup, repo.Cleanup)
	}
	if !withRemote {
		return b, nil
	}

	remote, err := factory.CreateRemote(ctx, bc)
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	b.Remote = remote.Remote
	if remote.Cleanup != nil {
		b.cleanup = append(b.cleanup, remote.Cleanup)
	}
	return b, nil
}

// NewSnapshotCache returns the ledger snapshot cache and starts its expiry
// sweep until ctx ends. It returns nil, and the service reads through to the
// repository, when ttl is zero.
func NewSnapshotCache(ctx context.Context, ttl time.Duration) cache.Cache[store.Snapshot] {
	if ttl <= 0 {
		return nil
	}
	c := cache.NewLRUCache[store.Snapshot](snapshotCacheSize, ttl)
	m := cache.NewManager(c)
	go m.Run(ctx, ttl/2)
	return c
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. cleanup
// runs first, bounded by timeout.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}
