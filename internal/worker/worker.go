package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Ticker interface {
	Tick(ctx context.Context) (TickResult, error)
}

// Runner drives a Ticker on a fixed interval.
type Runner struct {
	ticker   Ticker
	interval time.Duration
	enabled  bool
	logger   *zap.Logger
}

func NewRunner(t Ticker, interval time.Duration, enabled bool, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{ticker: t, interval: interval, enabled: enabled, logger: logger}
}

// Run ticks once immediately and then every interval until ctx is done.
// A failed tick is logged and the loop keeps going.
func (r *Runner) Run(ctx context.Context) error {
	if !r.enabled {
		r.logger.Info("outbox_processor_disabled")
		return nil
	}

	r.logger.Info("outbox_processor_started", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.tick(ctx)

		select {
		case <-ctx.Done():
			r.logger.Info("outbox_processor_stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	res, err := r.ticker.Tick(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.logger.Error("outbox_tick_failed", zap.Error(err))
		return
	}

	level := zap.InfoLevel
	if res.idle() {
		level = zap.DebugLevel
	}

	r.logger.Log(level, "outbox_tick",
		zap.Int64("released", res.Released),
		zap.Int("leased", res.Leased),
		zap.Int("done", res.Done),
		zap.Int("retried", res.Retried),
		zap.Int("dead", res.Dead),
		zap.Int("lease_lost", res.LeaseLost),
		zap.Int("store_errors", res.StoreErrors),
	)
}
