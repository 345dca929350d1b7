package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/application"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/application/factories/infrastructure"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/config"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/consumer"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/logging"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	redisInfra "github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/redis"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/usecase"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/worker"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger = logger.With(zap.String("app", cfg.App.Name), zap.String("worker_id", cfg.Outbox.WorkerID))

	if !cfg.Outbox.Enabled {
		logger.Info("outbox_processor_disabled")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg, logger)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		logger.Error("postgres_connect_failed", zap.Error(err))
		os.Exit(1)
	}

	// Redis only backs unread counters here; the worker runs without it.
	var unread consumer.UnreadInvalidator
	if redisClient, err := infraFactory.Redis(ctx); err != nil {
		logger.Warn("redis_unavailable", zap.Error(err))
	} else {
		cache := redisInfra.NewCounterCache(redisClient, "notifications:unread:", cfg.Redis.CacheTTL)
		unread = usecase.NewNotifications(postgres.NewNotificationRepository(pgPool), cache, logger)
	}

	go func() {
		if err := worker.ServeMetrics(ctx, ":"+cfg.HTTP.MetricsPort, logger); err != nil {
			logger.Error("worker_metrics_failed", zap.Error(err))
		}
	}()

	runner := application.NewOutboxRunner(cfg, application.OutboxDeps{
		Pool:     pgPool,
		Unread:   unread,
		Producer: infraFactory.KafkaProducer(),
		Logger:   logger,
	})

	if err := runner.Run(ctx); err != nil {
		logger.Error("worker_stopped_with_error", zap.Error(err))
	}

	logger.Info("worker_exited")
}
