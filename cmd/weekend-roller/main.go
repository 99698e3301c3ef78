package main

import (
	"context"
	"os"
	"time"

	"cricketpay/internal/amqp"
	"cricketpay/internal/cli"
	"cricketpay/internal/log"
	"cricketpay/internal/metrics"
	"cricketpay/internal/scheduler"
	"cricketpay/internal/services"
)

func main() {
	cli.LoadEnvFile()
	bootstrap := cli.SetupLogger(nil, log.ComponentScheduler)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg, log.ComponentScheduler)

	if !cfg.RollEnabled {
		logger.Info("Weekend rollover disabled (ROLL_ENABLED=false)")
		return
	}

	backends, err := cli.OpenBackends(context.Background(), logger, cfg, false)
	if err != nil {
		logger.Error("Failed to initialize ledger store", log.FieldError, err)
		os.Exit(1)
	}

	var publisher services.Publisher
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, rolled ledgers sync on the next sweep", log.FieldError, err)
		} else {
			publisher = client
		}
	}

	loc := cfg.Location()
	m := metrics.New()
	ledger := services.NewLedgerService(backends.Repository, publisher, nil, m)
	roller := services.NewRollProcessor(ledger, services.WeekendOverPolicy{Location: loc}, backends.Repository)

	sched, err := scheduler.NewScheduler(roller, loc)
	if err != nil {
		logger.Error("Failed to create scheduler", log.FieldError, err)
		os.Exit(1)
	}

	metricsSrv := cli.ServeMetrics(logger, cfg.MetricsPort, m)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		metricsSrv.Shutdown(shutdownCtx)
		if err := sched.Stop(); err != nil {
			logger.Error("Scheduler shutdown error", log.FieldError, err)
		}
		if err := ledger.Close(); err != nil {
			logger.Error("Ledger shutdown error", log.FieldError, err)
		}
	})

	// Catch up on a rollover missed while the roller was down.
	if n, err := sched.RunNow(ctx); err != nil {
		logger.Error("Startup rollover failed", log.FieldError, err)
	} else {
		logger.Info("Startup rollover check complete", "rolled", n)
	}

	if err := sched.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Weekend roller running", "timezone", loc.String())

	<-ctx.Done()
	<-done
}
