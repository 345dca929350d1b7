package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/api"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/application"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/application/factories/infrastructure"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/config"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/logging"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	redisInfra "github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/redis"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/usecase"

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

	logger = logger.With(zap.String("app", cfg.App.Name), zap.String("version", cfg.App.Version))

	if err := run(cfg, logger); err != nil {
		logger.Error("api_exited_with_error", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	infraFactory := infrastructure.NewFactory(cfg, logger)
	defer infraFactory.Close()

	pgPool, err := infraFactory.Postgres(ctx)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := infraFactory.Redis(ctx)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	// Repositories
	txManager := postgres.NewTxManager(pgPool)
	outboxRepo := postgres.NewOutboxRepository(pgPool, cfg.Outbox.MaxAttempts)
	attendanceRepo := postgres.NewAttendanceRepository(pgPool)
	absenceRepo := postgres.NewAbsenceRepository(pgPool)
	notificationRepo := postgres.NewNotificationRepository(pgPool)

	publisher := outbox.NewPublisher(outboxRepo)
	unreadCache := redisInfra.NewCounterCache(redisClient, "notifications:unread:", cfg.Redis.CacheTTL)

	// UseCases
	markAttendanceUC := usecase.NewMarkAttendance(txManager, attendanceRepo, publisher)
	submitNoticeUC := usecase.NewSubmitAbsenceNotice(txManager, absenceRepo, publisher)
	reviewNoticeUC := usecase.NewReviewAbsenceNotice(txManager, absenceRepo, publisher)
	notificationsUC := usecase.NewNotifications(notificationRepo, unreadCache, logger)
	outboxAdminUC := usecase.NewOutboxAdmin(outboxRepo, postgres.NewInboxRepository(pgPool))

	handlers := api.NewHandlers(markAttendanceUC, submitNoticeUC, reviewNoticeUC, notificationsUC, outboxAdminUC, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           api.NewRouter(handlers, redisClient, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	runner := application.NewOutboxRunner(cfg, application.OutboxDeps{
		Pool:     pgPool,
		Unread:   notificationsUC,
		Producer: infraFactory.KafkaProducer(),
		Logger:   logger,
	})

	runnerDone := make(chan struct{})
	go func() {
		defer close(runnerDone)
		_ = runner.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http_server_starting", zap.String("port", cfg.HTTP.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		cancel()
		<-runnerDone
		return fmt.Errorf("listen: %w", err)
	}

	logger.Info("http_server_shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	<-runnerDone
	logger.Info("api_exited")
	return nil
}
