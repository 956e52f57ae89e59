package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veltex/warehouse-backend/api/controllers"
	webhookcontrollers "github.com/veltex/warehouse-backend/api/controllers/webhooks"
	"github.com/veltex/warehouse-backend/api/middleware"
	"github.com/veltex/warehouse-backend/pkg/config"
	"github.com/veltex/warehouse-backend/pkg/db"
	"github.com/veltex/warehouse-backend/pkg/logger"
	"github.com/veltex/warehouse-backend/pkg/redis"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DBPinger    db.Pinger
	RedisPinger redis.Pinger
	Webhook     webhookcontrollers.CRMWebhookDeps
	Gatherer    prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DBPinger, deps.RedisPinger))
	})

	r.With(middleware.CORS(deps.Config.CRM.AllowedOrigins())).
		Get("/api/public/ping", controllers.PublicPing())

	// The CRM endpoint owns its whole method surface: POST ingests, OPTIONS
	// answers preflight, everything else is 405.
	r.HandleFunc("/api/v1/webhooks/crm", webhookcontrollers.CRMWebhook(deps.Webhook))

	if deps.Gatherer != nil {
		r.Get("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}).ServeHTTP)
	}

	return r
}
