package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	common "pipeline-workers/config"
	"pipeline-workers/logging"
	"pipeline-workers/repositories"
	"pipeline-workers/workers/dashboard/api"
	"pipeline-workers/workers/dashboard/config"
	"pipeline-workers/workers/dashboard/services"
	"pipeline-workers/workers/dashboard/tui"
)

const serviceName = "dashboard"

func main() {
	common.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(serviceName, cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	if cfg.Mode == config.ModeTUI && cfg.Log.File == "" {
		logger = logging.Nop()
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
	loader, err := services.NewDataLoader(artifacts, cfg.CacheSize, logger)
	if err != nil {
		logger.Fatalw("failed to build data loader", "error", err)
	}
	health := services.NewHealthReader(repositories.NewStatusRegistry(kv), ledger, logger)
	dashboard := services.NewDashboardService(
		services.WithLoader(loader),
		services.WithHealth(health),
		services.WithLogger(logger),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Infow("received signal, shutting down", "signal", sig.String())
		cancel()
	}()

	switch cfg.Mode {
	case config.ModeHTTP:
		err = serveHTTP(ctx, cfg, loader, health, logger)
	default:
		err = runTUI(ctx, cfg, dashboard, logger)
	}
	if err != nil {
		logger.Fatalw("dashboard stopped", "error", err)
	}
	logger.Infow("shutdown complete")
}

func serveHTTP(ctx context.Context, cfg *config.Config, loader *services.DataLoader, health *services.HealthReader, logger *zap.SugaredLogger) error {
	e := api.NewServer(loader, health, time.Now, logger)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Warnw("http shutdown failed", "error", err)
		}
	}()
	logger.Infow("dashboard api listening", "addr", cfg.HTTPAddr, "shared_data_path", cfg.Artifact.SharedDataPath)
	if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server")
	}
	return nil
}

func runTUI(ctx context.Context, cfg *config.Config, dashboard *services.DashboardService, logger *zap.SugaredLogger) error {
	opts := []tui.Option{tui.WithContext(ctx), tui.WithRefreshInterval(cfg.Refresh)}
	if cfg.Watch {
		w, err := tui.NewWatcher(cfg.Artifact.SharedDataPath, logger)
		if err != nil {
			logger.Warnw("artifact watcher disabled", "error", err)
		} else {
			go w.Run(ctx)
			opts = append(opts, tui.WithChanges(w.Changes()))
		}
	}
	_, err := tea.NewProgram(tui.New(dashboard, opts...), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return errors.Wrap(err, "terminal ui")
}
