package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validOutbox() Outbox {
	return Outbox{
		Enabled:             true,
		BatchSize:           50,
		MaxAttempts:         10,
		BaseRetryDelay:      5 * time.Second,
		MaxRetryDelay:       10 * time.Minute,
		StaleLockTimeout:    5 * time.Minute,
		TickInterval:        2 * time.Second,
		DispatchConcurrency: 1,
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("OUTBOX_WORKER_ID", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := New()
	require.NoError(t, err)

	assert.True(t, cfg.Outbox.Enabled)
	assert.Equal(t, 50, cfg.Outbox.BatchSize)
	assert.Equal(t, 10, cfg.Outbox.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.Outbox.BaseRetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.Outbox.MaxRetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.Outbox.StaleLockTimeout)
	assert.Equal(t, 2*time.Second, cfg.Outbox.TickInterval)
	assert.Equal(t, 1, cfg.Outbox.DispatchConcurrency)
	assert.NotEmpty(t, cfg.Outbox.WorkerID)
	assert.False(t, cfg.RelayEnabled())
}

func TestNew_FromEnv(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "7")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "3")
	t.Setenv("OUTBOX_TICK_INTERVAL", "250ms")
	t.Setenv("OUTBOX_WORKER_ID", "worker-a")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")
	t.Setenv("OUTBOX_RELAY_EVENT_TYPES", "attendance.marked")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Outbox.BatchSize)
	assert.Equal(t, 3, cfg.Outbox.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.TickInterval)
	assert.Equal(t, "worker-a", cfg.Outbox.WorkerID)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.RelayEnabled())
}

func TestNew_RejectsInvalidEnv(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "0")

	_, err := New()
	require.ErrorContains(t, err, "batch size must be positive")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(o *Outbox)
		wantErr string
	}{
		{name: "valid", mutate: func(*Outbox) {}},
		{name: "batch size", mutate: func(o *Outbox) { o.BatchSize = 0 }, wantErr: "batch size"},
		{name: "max attempts", mutate: func(o *Outbox) { o.MaxAttempts = -1 }, wantErr: "max attempts"},
		{name: "base delay", mutate: func(o *Outbox) { o.BaseRetryDelay = 0 }, wantErr: "base retry delay must be positive"},
		{name: "max below base", mutate: func(o *Outbox) { o.MaxRetryDelay = time.Second }, wantErr: "is below base retry delay"},
		{name: "tick interval", mutate: func(o *Outbox) { o.TickInterval = 0 }, wantErr: "tick interval must be positive"},
		{name: "stale not above tick", mutate: func(o *Outbox) { o.StaleLockTimeout = o.TickInterval }, wantErr: "must exceed tick interval"},
		{name: "concurrency", mutate: func(o *Outbox) { o.DispatchConcurrency = 0 }, wantErr: "dispatch concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{Outbox: validOutbox()}
			tt.mutate(&cfg.Outbox)

			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidate_JoinsAllFailures(t *testing.T) {
	t.Parallel()

	cfg := &Config{Outbox: Outbox{}}
	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "batch size")
	assert.Contains(t, msg, "max attempts")
	assert.Contains(t, msg, "dispatch concurrency")
}

func TestCompact(t *testing.T) {
	t.Parallel()

	assert.Nil(t, compact(nil))
	assert.Nil(t, compact([]string{" ", ""}))
	assert.Equal(t, []string{"a", "b"}, compact([]string{" a", "", "b "}))
}
