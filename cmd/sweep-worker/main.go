package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rockettradeline/tradeline-backend/internal/cart"
	"github.com/rockettradeline/tradeline-backend/internal/catalog"
	"github.com/rockettradeline/tradeline-backend/internal/fulfillment"
	"github.com/rockettradeline/tradeline-backend/internal/notifications"
	"github.com/rockettradeline/tradeline-backend/internal/payments"
	"github.com/rockettradeline/tradeline-backend/internal/sweeper"
	"github.com/rockettradeline/tradeline-backend/pkg/config"
	"github.com/rockettradeline/tradeline-backend/pkg/db"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
	"github.com/rockettradeline/tradeline-backend/pkg/metrics"
	"github.com/rockettradeline/tradeline-backend/pkg/migrate"
	"github.com/rockettradeline/tradeline-backend/pkg/pubsub"
	"github.com/rockettradeline/tradeline-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "sweep-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "sweep-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	settlementTopic, err := notifications.NewTopic(pubsubClient.SettlementPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to open settlement topic", err)
		os.Exit(1)
	}
	notifier, err := notifications.NewPublisher(settlementTopic, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement publisher", err)
		os.Exit(1)
	}

	tradelineRepo := catalog.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	paymentRepo := payments.NewRepository(dbClient.DB())

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Grants:            fulfillment.NewRepository(dbClient.DB()),
		Carts:             cartRepo,
		Catalog:           tradelineRepo,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	sweeperMetrics := metrics.NewSweeperMetrics(prometheus.DefaultRegisterer)

	cartExpiry, err := sweeper.NewCartExpiryJob(sweeper.CartExpiryJobParams{
		Logger:  logg,
		DB:      dbClient,
		Reader:  cartRepo,
		Carts:   cartRepo,
		Metrics: sweeperMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart expiry job", err)
		os.Exit(1)
	}

	paymentExpiry, err := sweeper.NewPaymentExpiryJob(sweeper.PaymentExpiryJobParams{
		Logger:   logg,
		DB:       dbClient,
		Reader:   paymentRepo,
		Requests: paymentRepo,
		Notifier: notifier,
		Metrics:  sweeperMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment expiry job", err)
		os.Exit(1)
	}

	reconcile, err := sweeper.NewReconcileJob(sweeper.ReconcileJobParams{
		Logger:   logg,
		DB:       dbClient,
		Reader:   cartRepo,
		Carts:    cartRepo,
		Requests: paymentRepo,
		Metrics:  sweeperMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile job", err)
		os.Exit(1)
	}

	grantRepair, err := sweeper.NewFulfillmentRepairJob(sweeper.FulfillmentRepairJobParams{
		Logger:      logg,
		Fulfillment: fulfillmentService,
		Metrics:     sweeperMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment repair job", err)
		os.Exit(1)
	}

	lock, err := sweeper.NewRedisLock(redisClient, lockKey(cfg), cfg.Sweeper.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create sweep lock", err)
		os.Exit(1)
	}

	service, err := sweeper.NewService(sweeper.ServiceParams{
		Logger:   logg,
		Registry: sweeper.NewRegistry(cartExpiry, paymentExpiry, reconcile, grantRepair),
		Lock:     lock,
		Metrics:  sweeperMetrics,
		Interval: cfg.Sweeper.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sweeper service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting sweep worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "sweep worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "sweep worker shutting down gracefully")
}

func lockKey(cfg *config.Config) string {
	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("%s:%s", cfg.Sweeper.LockKey, env)
}
