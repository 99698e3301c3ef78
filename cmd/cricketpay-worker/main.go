package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"cricketpay/internal/amqp"
	"cricketpay/internal/cli"
	"cricketpay/internal/log"
	"cricketpay/internal/metrics"
	"cricketpay/internal/services"
	"cricketpay/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	bootstrap := cli.SetupLogger(nil, log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting cricketpay-worker", "remote", cfg.RemoteBackend)

	if !cfg.RemoteEnabled() {
		logger.Info("No remote configured, nothing to sync")
		return
	}

	backends, err := cli.OpenBackends(context.Background(), logger, cfg, true)
	if err != nil {
		logger.Error("Failed to initialize backends", log.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := backends.Close(); err != nil {
			logger.Error("Failed to close backends", log.FieldError, err)
		}
	}()

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	m := metrics.New()
	syncWorker := worker.NewSyncWorker(backends.Repository, backends.Repository, backends.Remote, m, cfg.SyncBatchSize)
	sweeper := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{PollInterval: cfg.SyncInterval})
	metricsSrv := cli.ServeMetrics(logger, cfg.MetricsPort, m)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, metricsSrv.Shutdown)

	// Catch up on anything missed while the worker was down.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeSnapshotSync(gctx, syncWorker.HandleSyncMessage)
	})
	if err := sweeper.Start(gctx); err != nil {
		logger.Error("Failed to start sync processor", log.FieldError, err)
		os.Exit(1)
	}
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return sweeper.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	<-done
	logger.Info("Worker shutdown complete")
}
