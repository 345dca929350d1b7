package application

import (
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/config"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/consumer"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/kafka"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OutboxDeps are the collaborators the processor's handlers need.
type OutboxDeps struct {
	Pool     *pgxpool.Pool
	Unread   consumer.UnreadInvalidator
	Producer *kafka.Producer
	Logger   *zap.Logger
}

// NewOutboxRunner wires the handler registry and processor from config. It
// is shared by every binary that runs the processor.
func NewOutboxRunner(cfg *config.Config, deps OutboxDeps) *worker.Runner {
	logger := deps.Logger
	txManager := postgres.NewTxManager(deps.Pool)
	outboxRepo := postgres.NewOutboxRepository(deps.Pool, cfg.Outbox.MaxAttempts)

	notifications := consumer.NewNotifications(
		postgres.NewNotificationRepository(deps.Pool),
		postgres.NewAttendanceRepository(deps.Pool),
		postgres.NewInboxRepository(deps.Pool),
		txManager,
		deps.Unread,
		logger,
	)

	var relay *consumer.Relay
	if cfg.RelayEnabled() && deps.Producer != nil {
		relay = consumer.NewRelay(deps.Producer, logger)
	}

	registry := outbox.NewRegistry(logger, consumer.Handlers(notifications, relay, cfg.Outbox.RelayEventTypes)...)
	logger.Info("outbox_handlers_registered",
		zap.Strings("event_types", registry.EventTypes()),
		zap.Strings("duplicates", registry.Duplicates()),
	)

	processor := worker.NewProcessor(outboxRepo, txManager, registry, worker.Config{
		WorkerID:    cfg.Outbox.WorkerID,
		BatchSize:   cfg.Outbox.BatchSize,
		MaxAttempts: cfg.Outbox.MaxAttempts,
		Backoff: worker.Backoff{
			Base: cfg.Outbox.BaseRetryDelay,
			Max:  cfg.Outbox.MaxRetryDelay,
		},
		StaleLockTimeout:    cfg.Outbox.StaleLockTimeout,
		DispatchConcurrency: cfg.Outbox.DispatchConcurrency,
	}, logger.Named("outbox"))

	return worker.NewRunner(processor, cfg.Outbox.TickInterval, cfg.Outbox.Enabled, logger.Named("outbox"))
}
