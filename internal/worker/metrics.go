package worker

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	outcomeDone      = "done"
	outcomeRetry     = "retry"
	outcomeDead      = "dead"
	outcomeLeaseLost = "lease_lost"
)

var (
	eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_events_processed_total",
		Help: "The total number of leased outbox events by outcome",
	}, []string{"event_type", "outcome"})
	staleLocksReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outbox_stale_locks_released_total",
		Help: "The total number of PROCESSING leases reclaimed after the stale lock timeout",
	})
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "outbox_tick_duration_seconds",
		Help:    "Duration of one processor tick",
		Buckets: prometheus.DefBuckets,
	})
	leasedEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outbox_leased_events",
		Help: "Number of events leased by the last tick",
	})
)

// ServeMetrics exposes /metrics on addr until ctx is cancelled.
func ServeMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_metrics_listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
