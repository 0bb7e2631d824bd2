package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/storefront-engine/api/controllers"
	"github.com/angelmondragon/storefront-engine/api/routes"
	"github.com/angelmondragon/storefront-engine/internal/address"
	"github.com/angelmondragon/storefront-engine/internal/catalog"
	"github.com/angelmondragon/storefront-engine/internal/checkout"
	"github.com/angelmondragon/storefront-engine/internal/pricing"
	"github.com/angelmondragon/storefront-engine/internal/session"
	"github.com/angelmondragon/storefront-engine/pkg/config"
	"github.com/angelmondragon/storefront-engine/pkg/db"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
	"github.com/angelmondragon/storefront-engine/pkg/metrics"
	"github.com/angelmondragon/storefront-engine/pkg/migrate"
	"github.com/angelmondragon/storefront-engine/pkg/redis"
	"github.com/angelmondragon/storefront-engine/pkg/storefrontapi"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{"db": dbClient}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		readiness["redis"] = redisClient
	} else {
		logg.Warn(ctx, "redis not configured; carts are memory only and idempotency is disabled")
	}

	upstream, err := storefrontapi.NewClient(cfg.Upstream.BaseURL,
		storefrontapi.WithAPIKey(cfg.Upstream.APIKey),
		storefrontapi.WithTimeout(cfg.Upstream.Timeout),
	)
	if err != nil {
		logg.Error(ctx, "failed to create upstream client", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	addressService, err := address.NewService(upstream, logg)
	if err != nil {
		logg.Error(ctx, "failed to create address service", err)
		os.Exit(1)
	}

	rules, err := pricing.NewRules(cfg.Pricing.Ratio())
	if err != nil {
		logg.Error(ctx, "invalid pricing rules", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	params := session.Params{
		Catalog:         catalogService,
		Addresses:       addressService,
		Gateway:         upstream,
		Rules:           rules,
		Club:            upstream,
		Logger:          logg,
		CheckoutMetrics: metrics.NewCheckoutMetrics(reg),
		TrackingMetrics: metrics.NewTrackingMetrics(reg),
		PollInterval:    cfg.Tracking.PollInterval,
		PickupAddress:   cfg.Tracking.PickupAddress,
		IdleTimeout:     cfg.Session.IdleTimeout,
		SweepInterval:   cfg.Session.SweepInterval,

		ConfigurationAwareMerge: cfg.FeatureFlags.ConfigurationAwareMerge,
	}
	if redisClient != nil {
		guard, err := checkout.NewRedisSubmitGuard(redisClient, cfg.Checkout.SubmitLockTTL)
		if err != nil {
			logg.Error(ctx, "failed to create submit guard", err)
			os.Exit(1)
		}
		store, err := session.NewRedisSnapshotStore(redisClient, cfg.Session.SnapshotTTL)
		if err != nil {
			logg.Error(ctx, "failed to create cart snapshot store", err)
			os.Exit(1)
		}
		params.Guard = guard
		params.Store = store
	}

	manager, err := session.NewManager(params)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}
	go func() {
		if err := manager.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "session sweeper stopped", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, manager, upstream, redisClient, reg, readiness),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(serverCtx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	exitCode := 0
	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			exitCode = 1
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs error
	errs = multierr.Append(errs, server.Shutdown(shutdownCtx))
	errs = multierr.Append(errs, manager.Shutdown(shutdownCtx))
	if redisClient != nil {
		errs = multierr.Append(errs, redisClient.Close())
	}
	errs = multierr.Append(errs, dbClient.Close())
	if errs != nil {
		logg.Error(serverCtx, "unclean shutdown", errs)
		exitCode = 1
	}

	logg.Info(serverCtx, "api server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
