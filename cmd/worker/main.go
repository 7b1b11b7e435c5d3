package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/notifications"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/internal/restock"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/config"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/db"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/logger"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/mailer"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/migrate"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/outbox/idempotency"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/pubsub"
	"github.com/mudassirabbas444/Ghazali-Foods-Backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "notification-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "notification-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notification-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "dev migrations", err)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	sender, err := mailer.NewSMTPSender(cfg.SMTP, logg)
	requireResource(ctx, logg, "smtp sender", err)

	notificationRepo := notifications.NewRepository(dbClient.DB())
	restockRepo := restock.NewRepository(dbClient.DB())

	orderSub := pubsubClient.NotificationSubscription()
	if orderSub == nil {
		requireResource(ctx, logg, "notification subscription", errors.New("subscription not configured"))
	}
	stockSub := pubsubClient.StockSubscription()
	if stockSub == nil {
		requireResource(ctx, logg, "stock subscription", errors.New("subscription not configured"))
	}

	// Order events and stock events arrive on separate topics, so the worker
	// runs one consumer per subscription against the same handlers.
	orderConsumer, err := notifications.NewConsumer(notificationRepo, restockRepo, sender, orderSub, manager, logg)
	requireResource(ctx, logg, "order event consumer", err)
	stockConsumer, err := notifications.NewConsumer(notificationRepo, restockRepo, sender, stockSub, manager, logg)
	requireResource(ctx, logg, "stock event consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "notification worker ready")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return orderConsumer.Run(groupCtx) })
	group.Go(func() error { return stockConsumer.Run(groupCtx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "notification worker failed", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "notification worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
