package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domainEvent "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/event"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/kafka"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const relaySendTimeout = 5 * time.Second

// MessageWriter is the Kafka side of the relay.
type MessageWriter interface {
	Send(ctx context.Context, msg kafka.Message) error
}

// Relay forwards selected event types to Kafka. All relay handlers share one
// breaker so a broker outage fails events fast instead of timing out each one.
type Relay struct {
	writer  MessageWriter
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewRelay(writer MessageWriter, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-relay",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit_breaker_state_changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Relay{writer: writer, breaker: breaker, logger: logger}
}

// Handlers returns a relay handler for each event type.
func (r *Relay) Handlers(eventTypes ...string) []outbox.Handler {
	handlers := make([]outbox.Handler, 0, len(eventTypes))
	for _, t := range eventTypes {
		handlers = append(handlers, outbox.NewHandler(t, r.handle))
	}
	return handlers
}

func (r *Relay) handle(ctx context.Context, msg domainEvent.Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		relayMessages.WithLabelValues("error").Inc()
		return fmt.Errorf("marshal relay envelope: %w", err)
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		sendCtx, cancel := context.WithTimeout(ctx, relaySendTimeout)
		defer cancel()

		return nil, r.writer.Send(sendCtx, kafka.Message{
			Key:   msg.Key(),
			Value: value,
			Headers: map[string]string{
				"event_type": msg.Type,
				"event_id":   msg.ID.String(),
			},
		})
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			relayMessages.WithLabelValues("rejected").Inc()
		} else {
			relayMessages.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("relay %s: %w", msg.Type, err)
	}

	relayMessages.WithLabelValues("sent").Inc()
	return nil
}
