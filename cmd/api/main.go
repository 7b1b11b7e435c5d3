package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/api/routes"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/auth"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/cart"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/catalog"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/checkout"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/coupons"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/inventory"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/notifications"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/orders"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/restock"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/users"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/auth/session"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/config"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/env"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/logger"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/metrics"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/migrate"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pricing"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	pricingCfg := pricing.Config{
		FreeDeliveryThreshold: cfg.Checkout.FreeDeliveryThreshold,
		DeliveryFee:           cfg.Checkout.DeliveryFee,
		OrderSurcharge:        cfg.Checkout.OrderSurcharge,
	}

	userRepo := users.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	couponRepo := coupons.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	restockRepo := restock.NewRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)

	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	couponService, err := coupons.NewService(couponRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create coupon service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(cartRepo, couponService, pricingCfg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orderRepo, dbClient, outboxService, userRepo, orderMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(dbClient, cartRepo, orderRepo, couponRepo, outboxService, userRepo, orderMetrics, pricingCfg)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	restockService, err := restock.NewService(restockRepo, gormDB)
	if err != nil {
		logg.Error(context.Background(), "failed to create restock service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	id := env.Get("DYNO", "local")
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, routes.Services{
			Auth:          authService,
			Catalog:       catalogService,
			Cart:          cartService,
			Coupons:       couponService,
			Checkout:      checkoutService,
			Orders:        ordersService,
			Restock:       restockService,
			Notifications: notificationService,
			Inventory:     inventoryService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
