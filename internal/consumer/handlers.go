package consumer

import (
	"context"

	domainEvent "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/event"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"
)

// Handlers collects every handler the composition root registers. The relay
// may be nil when Kafka is not configured. An event type that is both
// consumed locally and relayed gets one handler running both in order.
func Handlers(notifications *Notifications, relay *Relay, relayEventTypes []string) []outbox.Handler {
	handlers := notifications.Handlers()
	if relay == nil || len(relayEventTypes) == 0 {
		return handlers
	}

	index := make(map[string]int, len(handlers))
	for i, h := range handlers {
		index[h.EventType()] = i
	}

	for _, rh := range relay.Handlers(relayEventTypes...) {
		if i, ok := index[rh.EventType()]; ok {
			handlers[i] = chain(handlers[i], rh)
			continue
		}
		index[rh.EventType()] = len(handlers)
		handlers = append(handlers, rh)
	}

	return handlers
}

func chain(first outbox.Handler, rest ...outbox.Handler) outbox.Handler {
	all := append([]outbox.Handler{first}, rest...)
	return outbox.NewHandler(first.EventType(), func(ctx context.Context, msg domainEvent.Message) error {
		for _, h := range all {
			if err := h.Handle(ctx, msg); err != nil {
				return err
			}
		}
		return nil
	})
}
