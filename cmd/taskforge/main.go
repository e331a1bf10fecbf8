package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/taskforge/pkg/api"
	"github.com/platinummonkey/taskforge/pkg/audit"
	"github.com/platinummonkey/taskforge/pkg/auth"
	"github.com/platinummonkey/taskforge/pkg/config"
	"github.com/platinummonkey/taskforge/pkg/membership"
	"github.com/platinummonkey/taskforge/pkg/middleware"
	"github.com/platinummonkey/taskforge/pkg/observability"
	"github.com/platinummonkey/taskforge/pkg/seed"
	"github.com/platinummonkey/taskforge/pkg/sso"
	"github.com/platinummonkey/taskforge/pkg/storage"
	"github.com/platinummonkey/taskforge/pkg/storage/backend"
	"github.com/platinummonkey/taskforge/pkg/storage/postgres"
)

// version is set at build time
var version = "dev"

// revocationCacheSize bounds the in-memory revocation list
const revocationCacheSize = 10000

func main() {
	envFile := flag.String("env-file", ".env", "Optional .env file loaded before reading the environment")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Error("taskforge exited with error")
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout)

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics = observability.NewMetrics(registry)
	}

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}
	if providers != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, providers, logger)
		})
		if metrics != nil {
			instruments, err := observability.NewOTelInstruments()
			if err != nil {
				return fmt.Errorf("failed to create OpenTelemetry instruments: %w", err)
			}
			metrics = metrics.WithOTel(instruments)
		}
	}

	store, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Storage.Type, err)
	}
	shutdown.RegisterShutdownFunc(func(context.Context) error { return store.Close() })
	logger.WithField("type", cfg.Storage.Type).Info("Storage initialized")

	auditors := []audit.Logger{audit.NewStructuredLogger(logger)}
	if pg, ok := store.(*postgres.Store); ok {
		if registry != nil {
			observability.RegisterDBStats(registry, pg.DB(), "taskforge")
		}
		dbAudit, err := audit.NewDBLogger(pg.DB())
		if err != nil {
			return fmt.Errorf("failed to create audit log: %w", err)
		}
		auditors = append(auditors, dbAudit)
	}

	var redisClient *redis.Client
	if cfg.Storage.RedisURL != "" {
		redisClient, err = postgres.NewRedisClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		shutdown.RegisterShutdownFunc(func(context.Context) error { return redisClient.Close() })
		logger.Info("Redis enabled for rate limits, failure counters and token revocation")
	}

	opts := api.Options{
		Store:            store,
		Logger:           logger,
		Metrics:          metrics,
		Audit:            audit.NewMultiLogger(auditors...),
		AuthTimeout:      cfg.Auth.AuthTimeout,
		BruteForceMax:    cfg.Limits.BruteForceMaxFailures,
		BruteForceWindow: cfg.Limits.BruteForceWindow,
		DemoEmails:       cfg.Auth.DemoEmails,
		CORSOrigins:      cfg.Server.CORSOrigins,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		SessionSecret:    cfg.Auth.SessionSecret,
		ServiceName:      cfg.Observability.OTelServiceName,
	}
	apiLimit := middleware.RateLimitConfig{Name: "api", Requests: cfg.Limits.RateLimitRequests, Window: cfg.Limits.RateLimitWindow}
	authLimit := middleware.RateLimitConfig{Name: "auth", Requests: cfg.Limits.AuthRateLimitRequests, Window: cfg.Limits.RateLimitWindow}

	var revocations auth.RevocationList
	if redisClient != nil {
		opts.APILimiter = middleware.NewDistributedRateLimiter(redisClient, apiLimit)
		opts.AuthLimiter = middleware.NewDistributedRateLimiter(redisClient, authLimit)
		opts.FailureCounter = middleware.NewRedisFailureCounter(redisClient, cfg.Limits.BruteForceWindow)
		revocations = auth.NewRedisRevocationList(redisClient)
	} else {
		opts.APILimiter = middleware.NewMemoryLimiter(apiLimit, 0)
		opts.AuthLimiter = middleware.NewMemoryLimiter(authLimit, 0)
		revocations = auth.NewMemoryRevocationList(revocationCacheSize, auth.DefaultTokenTTL)
	}

	opts.Tokens, err = auth.NewTokenService(cfg.Auth.JWTSecret,
		auth.WithRevocationList(revocations),
	)
	if err != nil {
		return err
	}

	if cfg.OIDC.Enabled() {
		provider, err := sso.NewGoogleProvider(ctx, sso.Config{
			ClientID:     cfg.OIDC.ClientID,
			ClientSecret: cfg.OIDC.ClientSecret,
			RedirectURL:  cfg.OIDC.RedirectURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize Google sign-in: %w", err)
		}
		opts.OIDC = provider
		logger.Info("Google sign-in enabled")
	}

	if cfg.Jobs.SeedFile != "" {
		if err := applySeed(ctx, cfg.Jobs.SeedFile, store, metrics, logger); err != nil {
			return err
		}
	}

	checker := membership.NewConsistencyChecker(store, metrics, logger)
	if _, err := checker.Run(ctx, cfg.Jobs.ConsistencyRepair); err != nil {
		logger.WithError(err).Warn("Startup team lead consistency check failed")
	}
	scheduler, err := membership.NewScheduler(checker, cfg.Jobs.ConsistencySchedule, cfg.Jobs.ConsistencyRepair, time.Minute, logger)
	if err != nil {
		return err
	}
	scheduler.Start()
	shutdown.RegisterShutdownFunc(scheduler.Stop)

	server, err := api.NewServer(opts)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler:           observability.NewHealthMux(observability.NewHealthChecker(store, redisClient, version), registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	shutdown.AddServer(apiServer)
	shutdown.AddServer(healthServer)

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{apiServer, healthServer} {
		srv := srv
		g.Go(func() error {
			logger.WithField("addr", srv.Addr).Info("Listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down taskforge")
		return shutdown.Shutdown()
	})

	logger.WithFields(map[string]interface{}{
		"version": version,
		"port":    cfg.Server.Port,
		"storage": cfg.Storage.Type,
	}).Info("TaskForge started")
	return g.Wait()
}

func applySeed(ctx context.Context, path string, store storage.Store, metrics *observability.Metrics, logger *observability.Logger) error {
	file, err := seed.Load(path)
	if err != nil {
		return err
	}
	res, err := seed.NewSeeder(store, membership.NewService(store, metrics), logger).Apply(ctx, file)
	if err != nil {
		return fmt.Errorf("failed to apply seed file %s: %w", path, err)
	}
	logger.WithFields(map[string]interface{}{
		"users": res.UsersCreated,
		"teams": res.TeamsCreated,
		"orgs":  res.OrganizationsCreated,
	}).Info("Seed file applied")
	return nil
}
