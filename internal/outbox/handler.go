package outbox

import (
	"context"

	domainEvent "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/event"
)

// Handler consumes one event type. Handlers must be idempotent: an event can
// be delivered again after a crash or a stale lease.
type Handler interface {
	EventType() string
	Handle(ctx context.Context, msg domainEvent.Message) error
}

type handlerFunc struct {
	eventType string
	fn        func(ctx context.Context, msg domainEvent.Message) error
}

// NewHandler adapts a plain function to Handler.
func NewHandler(eventType string, fn func(ctx context.Context, msg domainEvent.Message) error) Handler {
	return &handlerFunc{eventType: eventType, fn: fn}
}

func (h *handlerFunc) EventType() string {
	return h.eventType
}

func (h *handlerFunc) Handle(ctx context.Context, msg domainEvent.Message) error {
	return h.fn(ctx, msg)
}
