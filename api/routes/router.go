package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acquiremock/acquiremock-backend/api/controllers"
	"github.com/acquiremock/acquiremock-backend/api/middleware"
	"github.com/acquiremock/acquiremock-backend/internal/payments"
	"github.com/acquiremock/acquiremock-backend/internal/webhooks"
	"github.com/acquiremock/acquiremock-backend/pkg/config"
	"github.com/acquiremock/acquiremock-backend/pkg/db"
	"github.com/acquiremock/acquiremock-backend/pkg/logger"
	"github.com/acquiremock/acquiremock-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         db.Pinger
	Redis      *redis.Client
	Payments   payments.Service
	Verifier   *webhooks.Verifier
	Delivery   *webhooks.Engine
	MetricsReg *prometheus.Registry
}

// NewRouter wires the checkout API.
func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.DB, params.Redis))
	})

	if params.MetricsReg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(params.MetricsReg, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(params.Redis, logg))

		r.Post("/create-invoice", controllers.CreateInvoice(params.Payments, logg))
		r.Route("/payments/{paymentID}", func(r chi.Router) {
			r.Get("/", controllers.GetPayment(params.Payments, logg))
			r.Post("/submit", controllers.SubmitPayment(params.Payments, logg))
			r.Post("/verify-otp", controllers.VerifyOTP(params.Payments, logg))
			r.Get("/webhooks", controllers.WebhookHistory(params.Payments, params.Delivery, logg))
		})
		r.Get("/user-info", controllers.UserInfo(params.Payments, logg))
		r.Post("/webhooks/verify", controllers.VerifyWebhookSignature(params.Verifier, logg))
	})

	return r
}
