package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/rockettradeline/tradeline-backend/api/routes"
	"github.com/rockettradeline/tradeline-backend/internal/cart"
	"github.com/rockettradeline/tradeline-backend/internal/catalog"
	"github.com/rockettradeline/tradeline-backend/internal/fulfillment"
	"github.com/rockettradeline/tradeline-backend/internal/notifications"
	"github.com/rockettradeline/tradeline-backend/internal/paymentconfig"
	"github.com/rockettradeline/tradeline-backend/internal/payments"
	"github.com/rockettradeline/tradeline-backend/pkg/config"
	"github.com/rockettradeline/tradeline-backend/pkg/db"
	"github.com/rockettradeline/tradeline-backend/pkg/logger"
	"github.com/rockettradeline/tradeline-backend/pkg/migrate"
	"github.com/rockettradeline/tradeline-backend/pkg/pubsub"
	"github.com/rockettradeline/tradeline-backend/pkg/redis"
)

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

	cartService, err := cart.NewService(cart.ServiceParams{
		Repo:              cartRepo,
		Tradelines:        tradelineRepo,
		TransactionRunner: dbClient,
		CartTTL:           cfg.Cart.Expiry(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	methodService, err := paymentconfig.NewService(paymentconfig.ServiceParams{
		Repo: paymentconfig.NewRepository(dbClient.DB()),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment method registry", err)
		os.Exit(1)
	}

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

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:              paymentRepo,
		Carts:             cartRepo,
		Checkout:          cartService,
		Registry:          methodService,
		Fulfillment:       fulfillmentService,
		Notifier:          notifier,
		TransactionRunner: dbClient,
		RequestTTL:        cfg.Payments.RequestExpiry(),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Params{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			PubSub:     pubsubClient,
			Carts:      cartService,
			Payments:   paymentService,
			Methods:    methodService,
			Tradelines: tradelineRepo,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
