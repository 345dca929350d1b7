package api

import (
	"net/http"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/api/middleware"

	"github.com/go-chi/chi/v5"
	ChiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewRouter(h *Handlers, redisClient *redis.Client, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(ChiMiddleware.RequestID)
	r.Use(ChiMiddleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(ChiMiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		idempotent := r.With(middleware.Idempotency(redisClient, logger))

		idempotent.Post("/attendance", h.MarkAttendance)
		idempotent.Post("/absence-notices", h.SubmitAbsenceNotice)
		idempotent.Post("/absence-notices/{id}/review", h.ReviewAbsenceNotice)

		r.Get("/users/{id}/notifications", h.ListNotifications)
		r.Get("/users/{id}/notifications/unread-count", h.UnreadCount)
		idempotent.Post("/notifications/{id}/read", h.MarkNotificationRead)

		r.Route("/outbox", func(r chi.Router) {
			r.Get("/events", h.ListOutboxEvents)
			r.Get("/events/{id}", h.GetOutboxEvent)
			r.With(middleware.Idempotency(redisClient, logger)).Post("/events/{id}/replay", h.ReplayOutboxEvent)
			r.Get("/workflows/{correlationID}", h.GetOutboxWorkflow)
			r.Get("/stats", h.OutboxStats)
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := ChiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("http_request",
				zap.String("request_id", ChiMiddleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
