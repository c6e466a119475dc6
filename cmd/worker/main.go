package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/lavish-fashion/lavish-backend/internal/cart"
	"github.com/lavish-fashion/lavish-backend/internal/cron"
	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/pkg/config"
	"github.com/lavish-fashion/lavish-backend/pkg/db"
	"github.com/lavish-fashion/lavish-backend/pkg/instance"
	"github.com/lavish-fashion/lavish-backend/pkg/logger"
	"github.com/lavish-fashion/lavish-backend/pkg/metrics"
	"github.com/lavish-fashion/lavish-backend/pkg/outbox"
	"github.com/lavish-fashion/lavish-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		_ = dbClient.Close()
		os.Exit(1)
	}
	closeClients := func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing clients", err)
		}
	}

	registry := prometheus.NewRegistry()
	service, err := buildService(cfg, logg, dbClient, redisClient, metrics.NewJobMetrics(registry))
	if err != nil {
		logg.Error(ctx, "failed to build worker", err)
		closeClients()
		os.Exit(1)
	}

	metricsServer := &http.Server{
		Addr:              ":" + cfg.Worker.MetricsPort,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped", err)
		}
	}()

	logg.Info(ctx, "starting worker")
	runErr := service.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "metrics server shutdown failed", err)
	}
	closeClients()

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", runErr)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

func buildService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, jobMetrics *metrics.JobMetrics) (*cron.Service, error) {
	conn := dbClient.DB()
	cartService, err := cart.NewService(cart.NewRepository(conn), dbClient, products.NewRepository(conn), cfg.Commerce)
	if err != nil {
		return nil, err
	}
	purgeJob, err := cron.NewCartPurgeJob(logg, cartService)
	if err != nil {
		return nil, err
	}
	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(conn),
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, err
	}

	schedules := []cron.Schedule{
		{Job: purgeJob, Interval: cfg.Worker.CartPurgeInterval},
		{Job: retentionJob, Interval: cfg.Worker.OutboxInterval},
	}
	for i := range schedules {
		lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(schedules[i].Job.Name()), cfg.Worker.LockTTL)
		if err != nil {
			return nil, err
		}
		schedules[i].Lock = lock
	}

	return cron.NewService(cron.ServiceParams{
		Logger:    logg,
		Metrics:   jobMetrics,
		Schedules: schedules,
	})
}
