package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"remitroute/internal/infra/config"
	"remitroute/internal/infra/logger"
	"remitroute/internal/infra/tracer"
)

// runDaemon wires the full graph and keeps the maintenance scheduler and
// payment runtimes alive until SIGINT or SIGTERM.
func runDaemon() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logCloser()

	ctx := context.Background()
	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return fmt.Errorf("tracer: %w", err)
	}
	defer tracerShutdown(context.Background())

	comp, cleanup, err := buildComponents(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := cleanup(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if comp.Scheduler != nil {
		if err := comp.Scheduler.Start(ctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
	}

	log.Info("routerd started",
		"directory", cfg.Directory.Backend,
		"cache", cfg.Routing.Cache.Backend,
		"cache_ttl", cfg.Routing.Cache.TTL,
		"policy", cfg.Routing.Selection.Policy.Backend,
		"scheduler", cfg.Scheduler.Enabled,
	)

	<-ctx.Done()
	log.Info("routerd shutting down")
	return nil
}
