package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/application/factories/infrastructure"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/config"
	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/logging"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/usecase"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Admin is the operational surface the outbox commands drive.
type Admin interface {
	List(ctx context.Context, filter domainOutbox.ListFilter) ([]*domainOutbox.Event, error)
	Get(ctx context.Context, id uuid.UUID) (*domainOutbox.Event, error)
	Replay(ctx context.Context, id uuid.UUID) (*domainOutbox.Event, error)
	Stats(ctx context.Context) (map[domainOutbox.Status]int64, error)
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)
	Workflow(ctx context.Context, correlationID string) (*usecase.Workflow, error)
}

// Env opens what a command needs. close releases it.
type Env struct {
	OpenAdmin func(ctx context.Context) (admin Admin, close func(), err error)
	Migrate   func(direction string) (bool, error)
}

// NewRootCmd builds outboxctl with env supplying its dependencies.
func NewRootCmd(env Env) *cobra.Command {
	root := &cobra.Command{
		Use:           "outboxctl",
		Short:         "Inspect and operate the transactional outbox",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newStatsCmd(env),
		newFailedCmd(env),
		newShowCmd(env),
		newReplayCmd(env),
		newReleaseStaleCmd(env),
		newWorkflowCmd(env),
		newMigrateCmd(env),
	)

	return root
}

// Execute runs outboxctl against the configured database.
func Execute() {
	if err := NewRootCmd(defaultEnv()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultEnv() Env {
	return Env{
		OpenAdmin: func(ctx context.Context) (Admin, func(), error) {
			cfg, logger, err := load()
			if err != nil {
				return nil, nil, err
			}

			factory := infrastructure.NewFactory(cfg, logger)
			pool, err := factory.Postgres(ctx)
			if err != nil {
				factory.Close()
				return nil, nil, err
			}

			admin := usecase.NewOutboxAdmin(
				postgres.NewOutboxRepository(pool, cfg.Outbox.MaxAttempts),
				postgres.NewInboxRepository(pool),
			)
			return admin, factory.Close, nil
		},
		Migrate: func(direction string) (bool, error) {
			cfg, logger, err := load()
			if err != nil {
				return false, err
			}

			changed, err := postgres.Migrate(infrastructure.NewFactory(cfg, logger).PostgresConfig().DSN(), direction)
			if err != nil {
				return false, err
			}

			logger.Info("migration_finished", zap.String("direction", direction), zap.Bool("changed", changed))
			return changed, nil
		},
	}
}

func load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: "console"})
	if err != nil {
		return nil, nil, err
	}

	return cfg, logger, nil
}
