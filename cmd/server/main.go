// Command server runs the control-plane HTTP API: tenant signup,
// provisioning status, the agent run data plane and the admin surface.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rezkam/agentplane/internal/application/access"
	"github.com/rezkam/agentplane/internal/application/admission"
	"github.com/rezkam/agentplane/internal/application/auth"
	"github.com/rezkam/agentplane/internal/application/provisioning"
	"github.com/rezkam/agentplane/internal/application/ratelimit"
	"github.com/rezkam/agentplane/internal/application/tenancy"
	"github.com/rezkam/agentplane/internal/application/usage"
	"github.com/rezkam/agentplane/internal/config"
	"github.com/rezkam/agentplane/internal/infrastructure/archive"
	"github.com/rezkam/agentplane/internal/infrastructure/bus"
	"github.com/rezkam/agentplane/internal/infrastructure/gateway"
	apihttp "github.com/rezkam/agentplane/internal/infrastructure/http"
	"github.com/rezkam/agentplane/internal/infrastructure/http/handler"
	mw "github.com/rezkam/agentplane/internal/infrastructure/http/middleware"
	"github.com/rezkam/agentplane/internal/infrastructure/observability"
	"github.com/rezkam/agentplane/internal/infrastructure/persistence/memory"
	"github.com/rezkam/agentplane/internal/infrastructure/persistence/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run: %v\n", err)
		os.Exit(1)
	}
}

// stores groups the persistence collaborators so memory and postgres
// wiring stay symmetrical.
type stores struct {
	tenants tenancy.TenantCatalog
	plans   tenancy.PlanCatalog
	queue   provisioning.Queue
	meter   usage.Meter
	access  access.Catalog
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Root context for all normal operations; cancels on SIGTERM/SIGINT.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	obsCfg := observability.Config{Enabled: cfg.OTelEnabled, ServiceName: "agentplane"}

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

	tp, err := observability.InitTracerProvider(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("failed to init tracer provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown tracer provider", "error", err)
		}
	}()

	mp, err := observability.InitMeterProvider(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("failed to init meter provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "failed to shutdown meter provider", "error", err)
		}
	}()

	slog.InfoContext(ctx, "starting agentplane server", "env", cfg.Env)

	st, cleanup, err := newStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	queue, queueCleanup, err := newQueue(cfg, st.queue)
	if err != nil {
		return err
	}
	defer queueCleanup()

	limiter, limiterCleanup, err := newLimiter(cfg)
	if err != nil {
		return err
	}
	defer limiterCleanup()

	apiKeys, err := cfg.Auth.TenantAPIKeys()
	if err != nil {
		return err
	}
	verifier := auth.NewTokenVerifier(auth.TokenVerifierConfig{
		JWKSURL:      cfg.Auth.JWKSURL,
		JWKSCacheTTL: cfg.Auth.JWKSCacheTTLSeconds,
		Issuer:       cfg.Auth.Issuer,
		Audience:     cfg.Auth.Audience,
		SharedSecret: cfg.Auth.SharedSecret,
		Algorithm:    cfg.Auth.Algorithm,
	})
	tenantAuthenticator := auth.NewTenantAuthenticator(apiKeys, verifier, cfg.IsProduction())
	adminAuthenticator := auth.NewAdminAuthenticator(verifier)

	agentGateway, err := gateway.New(cfg.Gateway, cfg.IsProduction())
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "agent gateway ready", "credential_mode", agentGateway.Mode())

	archiveStore, archiveCleanup, err := newArchive(ctx, cfg)
	if err != nil {
		return err
	}
	defer archiveCleanup()

	tenancySvc := tenancy.NewService(st.tenants, st.plans, queue, cfg.Provisioning.JobMaxAttempts)
	if err := tenancySvc.SeedPlans(ctx); err != nil {
		return fmt.Errorf("failed to seed plans: %w", err)
	}

	accessSvc := access.NewService(st.access, st.tenants)
	usageSvc := usage.NewService(st.meter, st.tenants, st.plans, archiveStore)
	admissionSvc := admission.NewService(
		st.tenants, st.plans, accessSvc, limiter, st.meter, agentGateway,
		cfg.RateLimit.DefaultRPM,
	)
	worker := provisioning.NewWorker(queue, st.tenants,
		provisioning.WithDefaultMaxAttempts(cfg.Provisioning.JobMaxAttempts),
		provisioning.WithRetryBase(cfg.Provisioning.RetryBase()),
		provisioning.WithPollInterval(cfg.Provisioning.PollInterval()),
	)

	h := handler.New(tenancySvc, admissionSvc, usageSvc, accessSvc, worker, agentGateway.Mode(), cfg.Gateway)
	router := apihttp.NewRouter(h, mw.NewTenantAuth(tenantAuthenticator), mw.NewAdminAuth(adminAuthenticator))

	var rootHandler http.Handler = router
	if cfg.OTelEnabled {
		rootHandler = otelhttp.NewHandler(router, "agentplane.http")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           rootHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errResult := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errResult <- fmt.Errorf("failed to serve HTTP: %w", err)
		}
	}()
	slog.InfoContext(ctx, "http server listening", "port", cfg.HTTPPort)

	select {
	case <-ctx.Done():
		slog.InfoContext(ctx, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.WarnContext(shutdownCtx, "http server shutdown timed out", "error", err)
		}
		return nil
	case err := <-errResult:
		return err
	}
}

// newStores selects the persistence backend. An empty DATABASE_URL picks
// the in-memory adapters, which is only acceptable outside production.
func newStores(ctx context.Context, cfg *config.Config) (*stores, func(), error) {
	if cfg.DatabaseURL == "" {
		if cfg.IsProduction() {
			return nil, nil, fmt.Errorf("DATABASE_URL is required in production")
		}
		slog.InfoContext(ctx, "using in-memory storage")
		return &stores{
			tenants: memory.NewTenantCatalog(),
			plans:   memory.NewPlanCatalog(),
			queue:   memory.NewQueue(),
			meter:   memory.NewMeter(),
			access:  memory.NewAccessCatalog(),
		}, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, postgres.DBConfig{DSN: cfg.DatabaseURL})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	slog.InfoContext(ctx, "storage initialized", "url", maskPassword(cfg.DatabaseURL))

	return &stores{
		tenants: postgres.NewTenantCatalog(pool),
		plans:   postgres.NewPlanCatalog(pool),
		queue:   postgres.NewQueue(pool),
		meter:   postgres.NewMeter(pool),
		access:  postgres.NewAccessCatalog(pool),
	}, pool.Close, nil
}

// newQueue optionally composes the Redis bus in front of the durable
// queue. The durable store stays authoritative either way.
func newQueue(cfg *config.Config, store provisioning.Queue) (provisioning.Queue, func(), error) {
	if cfg.Provisioning.QueueBackend != config.QueueBackendRedis {
		return store, func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.Provisioning.QueueRedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse PROVISIONING_QUEUE_REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	notifying := bus.NewNotifyingQueue(store, bus.NewRedisBus(client, cfg.Provisioning.QueueName))
	return notifying, func() { _ = client.Close() }, nil
}

// newLimiter selects the rate limiter backend.
func newLimiter(cfg *config.Config) (ratelimit.Limiter, func(), error) {
	if cfg.RateLimit.Backend != config.RateLimitBackendRedis {
		return ratelimit.NewMemoryLimiter(), func() {}, nil
	}

	opt, err := redis.ParseURL(cfg.RateLimit.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse RATE_LIMIT_REDIS_URL: %w", err)
	}
	client := redis.NewClient(opt)
	limiter := ratelimit.NewRedisLimiter(client, cfg.RateLimit.KeyPrefix, cfg.RateLimit.FailOpen)
	return limiter, func() { _ = client.Close() }, nil
}

// newArchive selects the usage-export archive backend. Returns a nil
// store when archiving is not configured.
func newArchive(ctx context.Context, cfg *config.Config) (usage.ArchiveStore, func(), error) {
	switch cfg.Archive.Backend {
	case config.ArchiveBackendFS:
		store, err := archive.NewFSStore(cfg.Archive.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init fs archive: %w", err)
		}
		return store, func() {}, nil
	case config.ArchiveBackendGCS:
		store, err := archive.NewGCSStore(ctx, cfg.Archive.GCSBucket)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to init gcs archive: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

// maskPassword hides credentials in a DSN before logging it.
func maskPassword(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<unparseable>"
	}
	return u.Redacted()
}
