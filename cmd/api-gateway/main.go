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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/desa-layanan-api/api/swagger"
	"github.com/noah-isme/desa-layanan-api/internal/bootstrap"
	"github.com/noah-isme/desa-layanan-api/internal/handler"
	"github.com/noah-isme/desa-layanan-api/internal/middleware"
	"github.com/noah-isme/desa-layanan-api/internal/repository"
	"github.com/noah-isme/desa-layanan-api/internal/scheduler"
	"github.com/noah-isme/desa-layanan-api/internal/service"
	"github.com/noah-isme/desa-layanan-api/pkg/cache"
	"github.com/noah-isme/desa-layanan-api/pkg/config"
	"github.com/noah-isme/desa-layanan-api/pkg/export"
	"github.com/noah-isme/desa-layanan-api/pkg/jobs"
	"github.com/noah-isme/desa-layanan-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/desa-layanan-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/desa-layanan-api/pkg/middleware/requestid"
	securemiddleware "github.com/noah-isme/desa-layanan-api/pkg/middleware/secure"
	"github.com/noah-isme/desa-layanan-api/pkg/mq"
	"github.com/noah-isme/desa-layanan-api/pkg/mq/kafka"
	"github.com/noah-isme/desa-layanan-api/pkg/storage"
	"github.com/noah-isme/desa-layanan-api/pkg/ws"
)

// @title Desa Layanan API
// @version 1.0.0
// @description Village administrative letter requests with multi-stage approval
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @securityDefinitions.apikey CronSecret
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

	stores, err := bootstrap.OpenStores(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to open store", "driver", cfg.Store.Driver, "error", err)
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			logr.Warn("failed to close store", zap.Error(err))
		}
	}()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, stats caching disabled", zap.Error(err))
	}
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient)
		defer redisClient.Close() //nolint:errcheck
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Stats.CacheTTL, logr)

	publisher := newPublisher(cfg, logr)
	defer publisher.Close() //nolint:errcheck

	hub := ws.NewHub(logr)
	notificationSvc := service.NewNotificationService(stores.Notifications, logr,
		service.WithNotificationPublisher(publisher, cfg.Notifications.KafkaTopic),
		service.WithNotificationPusher(hub),
		service.WithNotificationMetrics(metricsSvc),
		service.WithNotificationRetryQueue(jobs.QueueConfig{
			Workers:    cfg.Notifications.RetryWorkers,
			MaxRetries: cfg.Notifications.RetryAttempts,
			RetryDelay: cfg.Notifications.RetryDelay,
			Backoff:    true,
			Logger:     logr,
		}),
	)
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	requestSvc := service.NewServiceRequestService(stores.Requests, notificationSvc, service.NewValidator(), logr,
		service.WorkflowConfig{
			EstimatedCompletion: cfg.Workflow.EstimatedCompletion,
			ProofCodePrefix:     cfg.Workflow.ProofCodePrefix,
			StatsCacheTTL:       cfg.Stats.CacheTTL,
		},
		service.WithRequestCache(cacheSvc),
		service.WithRequestMetrics(metricsSvc),
	)
	escalationSvc := service.NewEscalationService(requestSvc, cfg.Workflow.AutoApproveAfter, metricsSvc, logr)
	documentSvc := service.NewDocumentService(stores.Requests,
		storage.NewSignedURLSigner(cfg.Letters.SignedURLSecret, cfg.Letters.SignedURLTTL),
		service.DocumentConfig{
			APIPrefix:       cfg.APIPrefix,
			VillageName:     cfg.Letters.VillageName,
			DistrictName:    cfg.Letters.DistrictName,
			RegencyName:     cfg.Letters.RegencyName,
			VillageHeadName: cfg.Letters.VillageHeadName,
		},
		logr, export.NewCSVExporter(true), export.NewLetterRenderer())
	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, logr)

	readiness := map[string]handler.ReadinessCheck{"store": stores.Ping}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(securemiddleware.New(securemiddleware.Options{
		ForceHTTPS:  cfg.Security.ForceHTTPS,
		SSLHost:     cfg.Security.SSLHost,
		Development: cfg.Env != config.EnvProduction,
	}))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, readiness)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(r.Group(cfg.APIPrefix), routeDeps{
		auth:          authSvc,
		cronSecret:    cfg.Cron.Secret,
		requests:      handler.NewServiceRequestHandler(requestSvc, documentSvc),
		letters:       handler.NewLetterHandler(documentSvc),
		notifications: handler.NewNotificationHandler(notificationSvc, hub, logr),
		cron:          handler.NewCronHandler(escalationSvc, logr),
	})

	if cfg.Cron.Enabled {
		sched, err := scheduler.New(escalationSvc, cfg.Cron.Schedule, logr)
		if err != nil {
			logr.Sugar().Fatalw("invalid escalation schedule", "schedule", cfg.Cron.Schedule, "error", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "store", stores.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func newPublisher(cfg *config.Config, logr *zap.Logger) mq.Publisher {
	if !cfg.Notifications.KafkaEnabled {
		return mq.NopPublisher{}
	}
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:  cfg.Notifications.KafkaBrokers,
		ClientID: cfg.Notifications.KafkaClientID,
	})
	if err != nil {
		logr.Warn("kafka unavailable, notification events disabled", zap.Error(err))
		return mq.NopPublisher{}
	}
	return publisher
}
