package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/acquiremock/acquiremock-backend/internal/cards"
	"github.com/acquiremock/acquiremock-backend/internal/checkout"
	"github.com/acquiremock/acquiremock-backend/internal/notify"
	"github.com/acquiremock/acquiremock-backend/internal/payments"
	"github.com/acquiremock/acquiremock-backend/internal/reconciler"
	"github.com/acquiremock/acquiremock-backend/internal/webhooks"
	"github.com/acquiremock/acquiremock-backend/pkg/config"
	"github.com/acquiremock/acquiremock-backend/pkg/db"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
	"github.com/acquiremock/acquiremock-backend/pkg/metrics"
	"github.com/acquiremock/acquiremock-backend/pkg/migrate"
	"github.com/acquiremock/acquiremock-backend/pkg/redis"
	"github.com/acquiremock/acquiremock-backend/pkg/signature"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconciler"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reconciler",
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

	registry := prometheus.NewRegistry()
	codec := signature.NewCodec(cfg.Webhook.Secret)
	paymentRepo := payments.NewRepository(dbClient.DB())

	cardService, err := cards.NewService(cards.NewRepository(dbClient.DB()), cfg.Security)
	if err != nil {
		logg.Error(context.Background(), "failed to create card service", err)
		os.Exit(1)
	}

	sessionManager, err := checkout.NewManager(redisClient, cfg.JWT, cfg.Payments.CSRFTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	notifyService, err := notify.NewService(notify.NewMailer(cfg.SMTP, logg), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notify service", err)
		os.Exit(1)
	}

	deliveryEngine, err := webhooks.NewEngine(webhooks.EngineParams{
		Codec:    codec,
		Logs:     webhooks.NewLogRepository(dbClient.DB()),
		Payments: paymentRepo,
		Logger:   logg,
		Metrics:  metrics.NewWebhookMetrics(registry),
		Config:   cfg.Webhook,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook engine", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:     paymentRepo,
		Cards:    cardService,
		Sessions: sessionManager,
		Notify:   notifyService,
		Webhooks: deliveryEngine,
		Logger:   logg,
		Config:   cfg.Payments,
		BaseURL:  cfg.App.BaseURL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment service", err)
		os.Exit(1)
	}

	worker, err := reconciler.NewWorker(logg, metrics.NewJobMetrics(registry))
	if err != nil {
		logg.Error(context.Background(), "failed to create worker", err)
		os.Exit(1)
	}

	expiryJob, err := reconciler.NewExpiryJob(reconciler.ExpiryJobParams{
		Logger:   logg,
		Payments: paymentService,
		Interval: cfg.Reconciler.ExpiryInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expiry job", err)
		os.Exit(1)
	}
	retryJob, err := reconciler.NewWebhookRetryJob(reconciler.WebhookRetryJobParams{
		Logger:      logg,
		Repo:        paymentRepo,
		Deliverer:   deliveryEngine,
		Interval:    cfg.Reconciler.RetryInterval,
		MaxAttempts: cfg.Webhook.MaxAttempts,
		BackoffBase: cfg.Reconciler.BackoffBase,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook retry job", err)
		os.Exit(1)
	}

	for _, job := range []reconciler.Job{expiryJob, retryJob} {
		lock, lerr := reconciler.NewRedisLock(redisClient, redisClient.LockKey(job.Name()), cfg.Reconciler.LockTTL)
		if lerr != nil {
			logg.Error(context.Background(), "failed to create reconciler lock", lerr)
			os.Exit(1)
		}
		if rerr := worker.Register(job, lock); rerr != nil {
			logg.Error(context.Background(), "failed to register job", rerr)
			os.Exit(1)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting reconciler")

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconciler stopped unexpectedly", err)
		os.Exit(1)
	}
}
