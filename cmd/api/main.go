package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/veltex/warehouse-backend/api/controllers/webhooks"
	"github.com/veltex/warehouse-backend/api/routes"
	"github.com/veltex/warehouse-backend/internal/crmsync"
	"github.com/veltex/warehouse-backend/internal/grants"
	"github.com/veltex/warehouse-backend/internal/ingest"
	"github.com/veltex/warehouse-backend/internal/orders"
	"github.com/veltex/warehouse-backend/internal/reservations"
	"github.com/veltex/warehouse-backend/pkg/config"
	"github.com/veltex/warehouse-backend/pkg/db"
	"github.com/veltex/warehouse-backend/pkg/logger"
	"github.com/veltex/warehouse-backend/pkg/metrics"
	"github.com/veltex/warehouse-backend/pkg/migrate"
	"github.com/veltex/warehouse-backend/pkg/redis"
	"github.com/veltex/warehouse-backend/pkg/signature"
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

	// A missing or short webhook secret must stop the process. Serving without
	// it would mean accepting unsigned CRM events.
	verifier, err := signature.NewVerifier(cfg.CRM.WebhookSecret, cfg.CRM.FreshnessWindow)
	if err != nil {
		logg.Error(context.Background(), "refusing to start with unusable webhook secret", err)
		os.Exit(1)
	}

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

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	gdb := dbClient.DB()
	violations := ingest.NewViolationRecorder(gdb, logg, webhookMetrics)

	syncService, err := crmsync.NewService(
		reservations.NewRepo(gdb),
		orders.NewRepo(gdb),
		grants.NewRepo(gdb),
		violations,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create crm sync service", err)
		os.Exit(1)
	}

	var replayCache *ingest.ReplayCache
	if redisClient != nil {
		replayCache = ingest.NewReplayCache(redisClient, cfg.CRM.ReplayCacheTTL, logg)
	}

	var redisPinger redis.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}

	handler := routes.NewRouter(routes.Deps{
		Config:      cfg,
		Logger:      logg,
		DBPinger:    dbClient,
		RedisPinger: redisPinger,
		Gatherer:    registry,
		Webhook: webhooks.CRMWebhookDeps{
			Verifier:    verifier,
			Ledger:      ingest.NewLedger(gdb),
			Service:     syncService,
			Violations:  violations,
			ReplayCache: replayCache,
			Metrics:     webhookMetrics,
			Logger:      logg,
		},
	})

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
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutdown signal received, draining requests")
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
}
