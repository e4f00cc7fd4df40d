package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-erp/meridian-pricing/internal/app"
	"github.com/meridian-erp/meridian-pricing/internal/audit"
	audithttp "github.com/meridian-erp/meridian-pricing/internal/audit/http"
	"github.com/meridian-erp/meridian-pricing/internal/observability"
	"github.com/meridian-erp/meridian-pricing/internal/overrides"
	"github.com/meridian-erp/meridian-pricing/internal/platform/cache"
	"github.com/meridian-erp/meridian-pricing/internal/platform/db"
	"github.com/meridian-erp/meridian-pricing/internal/pricing"
	"github.com/meridian-erp/meridian-pricing/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, candidate cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Warn("asynq client close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()

	overridesRepo := overrides.NewRepository(dbpool)
	candidateCache := overrides.NewCandidateCache(redisClient, overridesRepo, cfg.CandidateCacheTTL, logger)
	overridesService := overrides.NewService(overridesRepo, candidateCache, logger)
	overridesHandler := overrides.NewHandler(logger, overridesService)

	auditSink := audit.NewLogger(dbpool)
	auditService := audit.NewService(audit.NewRepository(dbpool))
	auditHandler := audithttp.NewHandler(logger, auditService)

	escalator := jobs.NewAuditEscalator(asynqClient, logger)
	pricingService := pricing.NewService(candidateCache, auditSink, escalator, metrics, logger)
	pricingHandler := pricing.NewHandler(logger, pricingService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		PricingHandler:   pricingHandler,
		OverridesHandler: overridesHandler,
		AuditHandler:     auditHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
