package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pipeline-workers/cleaning"
	common "pipeline-workers/config"
	"pipeline-workers/logging"
	"pipeline-workers/repositories"
	"pipeline-workers/schedule"
	"pipeline-workers/workers/clean/config"
	"pipeline-workers/workers/clean/services"
)

func main() {
	common.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(services.ServiceName, cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	kv, err := repositories.NewKV(ctx, cfg.Registry)
	if err != nil {
		logger.Fatalw("failed to connect status registry", "backend", cfg.Registry.Backend, "error", err)
	}
	ledger, err := repositories.OpenLedger(cfg.Ledger, logger)
	if err != nil {
		logger.Fatalw("failed to open processing ledger", "error", err)
	}
	artifacts := repositories.NewArtifactStore(cfg.Artifact.SharedDataPath)
	if err := artifacts.Ensure(); err != nil {
		logger.Fatalw("shared data path is not usable", "path", cfg.Artifact.SharedDataPath, "error", err)
	}

	cleanService := services.NewCleanService(
		services.WithArtifactStore(artifacts),
		services.WithRegistry(repositories.NewStatusRegistry(kv)),
		services.WithLedger(ledger),
		services.WithPipeline(cleaning.NewPipeline(cfg.MissingDropThreshold)),
		services.WithLogger(logger),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Infow("received signal, finishing current tick", "signal", sig.String())
		cancel()
	}()

	logger.Infow("clean worker started", "interval", cfg.Interval, "shared_data_path", cfg.Artifact.SharedDataPath)
	schedule.New(cfg.Interval, cfg.Jitter, logger).Run(ctx, func(ctx context.Context) error {
		_, err := cleanService.RunTick(ctx)
		return err
	})
	logger.Infow("shutdown complete")
}
