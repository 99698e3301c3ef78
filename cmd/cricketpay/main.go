package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"time"

	"cricketpay/internal/amqp"
	"cricketpay/internal/cli"
	"cricketpay/internal/config"
	"cricketpay/internal/core"
	apphttp "cricketpay/internal/http"
	"cricketpay/internal/log"
	"cricketpay/internal/metrics"
	"cricketpay/internal/middleware/ratelimit"
	"cricketpay/internal/services"
	"cricketpay/internal/store"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	bootstrap := cli.SetupLogger(nil, log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	ctx := context.Background()
	backends, err := cli.OpenBackends(ctx, logger, cfg, false)
	if err != nil {
		logger.Error("Failed to initialize ledger store", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	// A broker outage must not stop the API; the worker's sweep catches up.
	var publisher services.Publisher
	var broker *amqp.Client
	if cfg.AMQPURL != "" {
		broker, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, sync notifications disabled", log.FieldError, err)
		} else {
			publisher = broker
		}
	}

	m := metrics.New()
	cacheCtx, stopCache := context.WithCancel(ctx)
	defer stopCache()
	// ledger.Close releases the repository and the broker.
	ledger := services.NewLedgerService(backends.Repository, publisher, cli.NewSnapshotCache(cacheCtx, cfg.SnapshotCacheTTL), m)

	if err := ensureLedger(ctx, logger, ledger, cfg); err != nil {
		logger.Error("Failed to initialize ledger", log.FieldError, err, log.FieldLedgerKey, cfg.LedgerKey)
		os.Exit(1)
	}

	srv := apphttp.NewServer(apphttp.ServerOptions{
		Addr:    net.JoinHostPort("", cfg.Port),
		Ledger:  ledger,
		Logger:  logger,
		Metrics: m,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		Ready: func(ctx context.Context) error {
			if p, ok := backends.Repository.(pinger); ok {
				if err := p.Ping(ctx); err != nil {
					return err
				}
			}
			if broker != nil {
				return broker.Ping()
			}
			return nil
		},
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if err := ledger.Close(); err != nil {
			logger.Error("Ledger shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting cricketpay server", "port", cfg.Port, "backend", cfg.DataBackend, log.FieldLedgerKey, cfg.LedgerKey)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-shutdownCtx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}

// ensureLedger creates the configured ledger on first start, seeded from
// ROSTER_FILE when one is set.
func ensureLedger(ctx context.Context, logger *log.Logger, ledger *services.LedgerService, cfg *config.Config) error {
	_, err := ledger.Snapshot(ctx, cfg.LedgerKey)
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	var roster []core.Player
	if cfg.RosterFile != "" {
		if roster, err = store.ReadRoster(cfg.RosterFile); err != nil {
			return err
		}
	}
	anchor := core.UpcomingSaturday(time.Now().In(cfg.Location()))
	_, err = ledger.Init(ctx, cfg.LedgerKey, anchor, roster)
	if errors.Is(err, services.ErrLedgerExists) {
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("Ledger created", log.FieldLedgerKey, cfg.LedgerKey, log.FieldAnchorDate, anchor.String(), "players", len(roster))
	return nil
}
