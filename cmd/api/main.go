package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/acquiremock/acquiremock-backend/api/routes"
	"github.com/acquiremock/acquiremock-backend/internal/cards"
	"github.com/acquiremock/acquiremock-backend/internal/checkout"
	"github.com/acquiremock/acquiremock-backend/internal/notify"
	"github.com/acquiremock/acquiremock-backend/internal/payments"
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

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

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			DB:         dbClient,
			Redis:      redisClient,
			Payments:   paymentService,
			Verifier:   webhooks.NewVerifier(codec),
			Delivery:   deliveryEngine,
			MetricsReg: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
