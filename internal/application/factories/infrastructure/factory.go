package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/config"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/kafka"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/redis"

	pgxpool "github.com/jackc/pgx/v5/pgxpool"
	go_redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
)

// Factory lazily opens the process-wide clients and closes them together.
type Factory struct {
	cfg      *config.Config
	logger   *zap.Logger
	pgPool   *pgxpool.Pool
	redisCli *go_redis.Client
	producer *kafka.Producer
}

func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

func (f *Factory) PostgresConfig() postgres.Config {
	return postgres.Config{
		Host:     f.cfg.Postgres.Host,
		Port:     f.cfg.Postgres.Port,
		User:     f.cfg.Postgres.User,
		Password: f.cfg.Postgres.Password,
		DBName:   f.cfg.Postgres.DBName,
		SSLMode:  f.cfg.Postgres.SSLMode,
		MaxConns: f.cfg.Postgres.MaxConns,
	}
}

func (f *Factory) Postgres(ctx context.Context) (*pgxpool.Pool, error) {
	if f.pgPool != nil {
		return f.pgPool, nil
	}

	var pool *pgxpool.Pool
	var err error

	for i := 1; i <= connectAttempts; i++ {
		pool, err = postgres.NewClient(ctx, f.PostgresConfig())
		if err == nil {
			break
		}

		f.logger.Warn("postgres_connect_failed",
			zap.Int("attempt", i),
			zap.Int("max_attempts", connectAttempts),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(connectBackoff):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to init postgres after retries: %w", err)
	}

	f.pgPool = pool
	return pool, nil
}

func (f *Factory) Redis(ctx context.Context) (*go_redis.Client, error) {
	if f.redisCli != nil {
		return f.redisCli, nil
	}

	client, err := redis.NewClient(ctx, redis.Config{
		Addr: f.cfg.Redis.Addr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init redis: %w", err)
	}

	f.redisCli = client
	return client, nil
}

// KafkaProducer returns nil when no brokers are configured.
func (f *Factory) KafkaProducer() *kafka.Producer {
	if len(f.cfg.Kafka.Brokers) == 0 {
		return nil
	}

	if f.producer == nil {
		f.producer = kafka.NewProducer(kafka.Config{
			Brokers: f.cfg.Kafka.Brokers,
			Topic:   f.cfg.Kafka.Topic,
		})
	}
	return f.producer
}

func (f *Factory) Close() {
	if f.producer != nil {
		if err := f.producer.Close(); err != nil {
			f.logger.Warn("kafka_producer_close_failed", zap.Error(err))
		}
	}
	if f.pgPool != nil {
		f.pgPool.Close()
	}
	if f.redisCli != nil {
		_ = f.redisCli.Close()
	}
}
