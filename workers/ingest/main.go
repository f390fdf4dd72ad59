package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	common "pipeline-workers/config"
	"pipeline-workers/logging"
	"pipeline-workers/repositories"
	"pipeline-workers/schedule"
	"pipeline-workers/workers/ingest/config"
	"pipeline-workers/workers/ingest/services"
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
	store, err := repositories.NewObjectStore(ctx, cfg.ObjectStoreBackend, repositories.S3Config{
		Endpoint:  cfg.Endpoint,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
		UseSSL:    cfg.UseSSL,
		MaxSize:   cfg.MaxFileSize,
	})
	if err != nil {
		logger.Fatalw("failed to create object store", "backend", cfg.ObjectStoreBackend, "error", err)
	}
	ledger, err := repositories.OpenLedger(cfg.Ledger, logger)
	if err != nil {
		logger.Fatalw("failed to open processing ledger", "error", err)
	}
	artifacts := repositories.NewArtifactStore(cfg.Artifact.SharedDataPath)
	if err := artifacts.Ensure(); err != nil {
		logger.Fatalw("shared data path is not usable", "path", cfg.Artifact.SharedDataPath, "error", err)
	}

	ingestService := services.NewIngestService(
		services.WithObjectStore(store),
		services.WithRegistry(repositories.NewStatusRegistry(kv)),
		services.WithArtifactStore(artifacts),
		services.WithLedger(ledger),
		services.WithLogger(logger),
		services.WithExtensions(cfg.Extensions),
	)

	// Graceful Shutdown handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Infow("received signal, finishing current tick", "signal", sig.String())
		cancel()
	}()

	logger.Infow("ingest worker started",
		"bucket", cfg.Bucket,
		"backend", store.Backend(),
		"interval", cfg.Interval,
		"shared_data_path", cfg.Artifact.SharedDataPath,
	)
	scheduler := schedule.New(cfg.Interval, cfg.Jitter, logger)
	scheduler.Run(ctx, func(ctx context.Context) error {
		_, err := ingestService.RunTick(ctx)
		return err
	})
	logger.Infow("shutdown complete")
}
