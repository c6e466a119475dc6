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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lavish-fashion/lavish-backend/api/controllers"
	"github.com/lavish-fashion/lavish-backend/api/routes"
	"github.com/lavish-fashion/lavish-backend/internal/analytics"
	"github.com/lavish-fashion/lavish-backend/internal/auth"
	"github.com/lavish-fashion/lavish-backend/internal/cart"
	"github.com/lavish-fashion/lavish-backend/internal/categories"
	"github.com/lavish-fashion/lavish-backend/internal/orders"
	"github.com/lavish-fashion/lavish-backend/internal/products"
	"github.com/lavish-fashion/lavish-backend/internal/reviews"
	"github.com/lavish-fashion/lavish-backend/internal/users"
	"github.com/lavish-fashion/lavish-backend/internal/wishlist"
	"github.com/lavish-fashion/lavish-backend/pkg/auth/session"
	"github.com/lavish-fashion/lavish-backend/pkg/config"
	"github.com/lavish-fashion/lavish-backend/pkg/db"
	"github.com/lavish-fashion/lavish-backend/pkg/instance"
	"github.com/lavish-fashion/lavish-backend/pkg/logger"
	"github.com/lavish-fashion/lavish-backend/pkg/metrics"
	"github.com/lavish-fashion/lavish-backend/pkg/migrate"
	"github.com/lavish-fashion/lavish-backend/pkg/outbox"
	"github.com/lavish-fashion/lavish-backend/pkg/redis"
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

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeAutoMigrate(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	var registry *prometheus.Registry
	if cfg.FeatureFlags.Metrics {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	deps, err := buildServices(cfg, logg, dbClient, redisClient, sessionManager, registry)
	if err != nil {
		logg.Error(ctx, "failed to wire services", err)
		os.Exit(1)
	}
	deps.Config = cfg
	deps.Logger = logg
	deps.Sessions = sessionManager
	deps.Redis = redisClient
	deps.Registry = registry
	deps.Ready = map[string]controllers.Pinger{"db": dbClient, "redis": redisClient}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	srvCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(srvCtx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(srvCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(srvCtx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(srvCtx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	registry *prometheus.Registry,
) (routes.Deps, error) {
	var deps routes.Deps
	conn := dbClient.DB()

	userRepo := users.NewRepository(conn)
	productRepo := products.NewRepository(conn)
	categoryRepo := categories.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	orderRepo := orders.NewRepository(conn)

	var err error
	if deps.Auth, err = auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	}); err != nil {
		return deps, err
	}
	if deps.Users, err = users.NewService(userRepo, cfg.Password); err != nil {
		return deps, err
	}
	if deps.Products, err = products.NewService(productRepo, dbClient, categoryRepo); err != nil {
		return deps, err
	}
	if deps.Categories, err = categories.NewService(categoryRepo, dbClient, productRepo); err != nil {
		return deps, err
	}
	if deps.Cart, err = cart.NewService(cartRepo, dbClient, productRepo, cfg.Commerce); err != nil {
		return deps, err
	}

	var orderMetrics *metrics.OrderMetrics
	if registry != nil {
		orderMetrics = metrics.NewOrderMetrics(registry)
	}
	if deps.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:      orderRepo,
		Tx:        dbClient,
		Products:  productRepo,
		Users:     userRepo,
		Carts:     cartRepo,
		Outbox:    outbox.NewService(outbox.NewRepository(conn), logg),
		Sequences: redisClient,
		Metrics:   orderMetrics,
		Commerce:  cfg.Commerce,
		Logger:    logg,
	}); err != nil {
		return deps, err
	}
	if deps.Reviews, err = reviews.NewService(reviews.NewRepository(conn), dbClient, productRepo, orderRepo); err != nil {
		return deps, err
	}
	if deps.Wishlist, err = wishlist.NewService(wishlist.NewRepository(conn), productRepo); err != nil {
		return deps, err
	}
	if deps.Analytics, err = analytics.NewService(analytics.NewRepository(conn), cfg.Commerce.LowStockThreshold); err != nil {
		return deps, err
	}
	return deps, nil
}
