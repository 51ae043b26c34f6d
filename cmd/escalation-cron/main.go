package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/desa-layanan-api/internal/bootstrap"
	"github.com/noah-isme/desa-layanan-api/internal/scheduler"
	"github.com/noah-isme/desa-layanan-api/internal/service"
	"github.com/noah-isme/desa-layanan-api/pkg/config"
	"github.com/noah-isme/desa-layanan-api/pkg/logger"
	"github.com/noah-isme/desa-layanan-api/pkg/mq"
	"github.com/noah-isme/desa-layanan-api/pkg/mq/kafka"
)

func main() {
	runOnce := flag.Bool("run-once", false, "Run a single escalation sweep and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := bootstrap.OpenStores(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to open store", "driver", cfg.Store.Driver, "error", err)
	}
	defer stores.Close(context.Background()) //nolint:errcheck

	var publisher mq.Publisher = mq.NopPublisher{}
	if cfg.Notifications.KafkaEnabled {
		p, err := kafka.NewPublisher(kafka.PublisherConfig{
			Brokers:  cfg.Notifications.KafkaBrokers,
			ClientID: cfg.Notifications.KafkaClientID,
		})
		if err != nil {
			logr.Warn("kafka unavailable, notification events disabled", zap.Error(err))
		} else {
			publisher = p
		}
	}
	defer publisher.Close() //nolint:errcheck

	metricsSvc := service.NewMetricsService()
	notificationSvc := service.NewNotificationService(stores.Notifications, logr,
		service.WithNotificationPublisher(publisher, cfg.Notifications.KafkaTopic),
		service.WithNotificationMetrics(metricsSvc),
	)
	requestSvc := service.NewServiceRequestService(stores.Requests, notificationSvc, service.NewValidator(), logr,
		service.WorkflowConfig{
			EstimatedCompletion: cfg.Workflow.EstimatedCompletion,
			ProofCodePrefix:     cfg.Workflow.ProofCodePrefix,
		},
		service.WithRequestMetrics(metricsSvc),
	)
	escalationSvc := service.NewEscalationService(requestSvc, cfg.Workflow.AutoApproveAfter, metricsSvc, logr)

	if *runOnce {
		sweepCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		result, err := escalationSvc.Sweep(sweepCtx)
		if err != nil {
			logr.Sugar().Fatalw("escalation sweep failed", "error", err)
		}
		logr.Info("escalation sweep finished",
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed),
			zap.Int("skipped", result.Skipped))
		return
	}

	sched, err := scheduler.New(escalationSvc, cfg.Cron.Schedule, logr)
	if err != nil {
		logr.Sugar().Fatalw("invalid escalation schedule", "schedule", cfg.Cron.Schedule, "error", err)
	}
	sched.Start()
	logr.Info("escalation cron running", zap.String("schedule", cfg.Cron.Schedule))

	<-ctx.Done()
	sched.Stop()
}
