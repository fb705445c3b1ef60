package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/academic-insights/api/swagger"
	"github.com/noah-isme/academic-insights/internal/handler"
	"github.com/noah-isme/academic-insights/internal/repository"
	"github.com/noah-isme/academic-insights/internal/router"
	"github.com/noah-isme/academic-insights/internal/service"
	"github.com/noah-isme/academic-insights/internal/upstream"
	"github.com/noah-isme/academic-insights/pkg/cache"
	"github.com/noah-isme/academic-insights/pkg/config"
	"github.com/noah-isme/academic-insights/pkg/database"
	appErrors "github.com/noah-isme/academic-insights/pkg/errors"
	"github.com/noah-isme/academic-insights/pkg/jobs"
	"github.com/noah-isme/academic-insights/pkg/logger"
)

// @title Academic Insights API
// @version 1.0.0
// @description Performance analysis, remediation suggestions, grade workflow and notifications on top of the academic API.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{}

	// Without a database settings are not persisted and feedback has no local ledger.
	var (
		settingsRepo service.SettingsRepository
		feedbackRepo service.FeedbackRepository
	)
	if cfg.Database.Enabled {
		db := mustDatabase(ctx, cfg, logr)
		defer db.Close()
		settingsRepo = repository.NewSettingsRepository(db)
		feedbackRepo = repository.NewFeedbackRepository(db)
		checks["postgres"] = func(ctx context.Context) error { return db.PingContext(ctx) }
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog caching disabled", zap.Error(err))
		} else {
			checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr.Named("cache"))
	defer cacheRepo.Close()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Insights.CatalogCacheTTL, logr.Named("cache"), redisClient != nil)

	api := upstream.New(cfg.Upstream.BaseURL, cfg.Upstream.Timeout, metrics, logr.Named("upstream"))
	validate := validator.New()
	store := service.NewGradeStore()

	sessions := service.NewSessionService(settingsRepo, api, service.SessionDefaults{
		RiskThreshold:   cfg.Insights.RiskThreshold,
		SuggestionCount: cfg.Insights.DefaultSuggestions,
		MaxSuggestions:  cfg.Insights.MaxSuggestions,
	}, validate, metrics, logr.Named("session"))
	catalog := service.NewCatalogService(api, cacheSvc, logr.Named("catalog"))
	performance := service.NewPerformanceService(api, store, service.TrendOptions{
		Epsilon: cfg.Insights.TrendEpsilon,
		Window:  cfg.Insights.TrendWindow,
	}, metrics, logr.Named("performance"))
	sessions.OnClose(performance.Release)
	grades := service.NewGradeWorkflowService(api, store, validate, metrics, logr.Named("grades"))
	suggestions := service.NewSuggestionService(performance, catalog, feedbackRepo, api, cfg.Insights.MaxSuggestions, metrics, logr.Named("suggestions"))
	exports := service.NewExportService(performance, api, logr.Named("export"), nil, nil)
	auth := service.NewAuthService(logr.Named("auth"), service.AuthConfig{AccessTokenSecret: cfg.JWT.Secret})

	feedbackQueue := jobs.NewQueue(service.FeedbackJobType, suggestions.Deliver, jobs.QueueConfig{
		Workers:    cfg.Feedback.Workers,
		MaxRetries: cfg.Feedback.Retries,
		RetryDelay: cfg.Feedback.RetryDelay,
		Logger:     logr.Named("jobs"),
		Retryable:  appErrors.IsRetryable,
		OnGiveUp:   suggestions.GiveUp,
	})
	feedbackQueue.Start(ctx)
	defer feedbackQueue.Stop()
	suggestions.UseQueue(feedbackQueue)

	if cfg.Notifications.Enabled {
		poller := service.NewNotificationPoller(sessions, cfg.Notifications.PollInterval, cfg.Upstream.Timeout, logr.Named("poller"))
		poller.Start(ctx)
		defer poller.Stop()
	}

	engine := router.New(cfg, logr, auth, metrics, router.Handlers{
		Session:      handler.NewSessionHandler(sessions),
		Performance:  handler.NewPerformanceHandler(sessions, performance),
		Suggestion:   handler.NewSuggestionHandler(sessions, suggestions),
		Grade:        handler.NewGradeHandler(grades),
		Notification: handler.NewNotificationHandler(sessions),
		Export:       handler.NewExportHandler(sessions, exports),
		Catalog:      handler.NewCatalogHandler(catalog),
		Metrics:      handler.NewMetricsHandler(metrics, checks),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2 * cfg.Upstream.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("upstream", cfg.Upstream.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

func mustDatabase(ctx context.Context, cfg *config.Config, logr *zap.Logger) *sqlx.DB {
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	if err := database.Migrate(ctx, db); err != nil {
		logr.Fatal("failed to migrate schema", zap.Error(err))
	}
	return db
}
