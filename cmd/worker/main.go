// Command worker drains the provisioning queue. The default mode polls
// until interrupted; -once drains the currently due jobs and exits, for
// cron-style operation and tests.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rezkam/agentplane/internal/application/provisioning"
	"github.com/rezkam/agentplane/internal/config"
	"github.com/rezkam/agentplane/internal/infrastructure/bus"
	"github.com/rezkam/agentplane/internal/infrastructure/observability"
	"github.com/rezkam/agentplane/internal/infrastructure/persistence/postgres"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	once := flag.Bool("once", false, "drain due jobs and exit instead of polling")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the worker")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	obsCfg := observability.Config{Enabled: cfg.OTelEnabled, ServiceName: "agentplane-worker"}
	lp, logger, err := observability.InitLogger(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := lp.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown logger provider", "error", err)
		}
	}()
	slog.SetDefault(logger)

	pool, err := postgres.NewPool(ctx, postgres.DBConfig{DSN: cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to create database pool: %w", err)
	}
	defer pool.Close()

	var queue provisioning.Queue = postgres.NewQueue(pool)
	if cfg.Provisioning.QueueBackend == config.QueueBackendRedis {
		opt, err := redis.ParseURL(cfg.Provisioning.QueueRedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse PROVISIONING_QUEUE_REDIS_URL: %w", err)
		}
		client := redis.NewClient(opt)
		defer func() { _ = client.Close() }()
		queue = bus.NewNotifyingQueue(queue, bus.NewRedisBus(client, cfg.Provisioning.QueueName))
	}

	worker := provisioning.NewWorker(queue, postgres.NewTenantCatalog(pool),
		provisioning.WithDefaultMaxAttempts(cfg.Provisioning.JobMaxAttempts),
		provisioning.WithRetryBase(cfg.Provisioning.RetryBase()),
		provisioning.WithPollInterval(cfg.Provisioning.PollInterval()),
	)

	if *once {
		processed, err := worker.Drain(ctx)
		slog.InfoContext(ctx, "one-shot drain finished", "processed", processed)
		return err
	}

	return worker.Run(ctx)
}
