package outbox

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Registry maps event types to handlers. It is built once by the composition
// root and only read afterwards, so lookups need no locking.
type Registry struct {
	handlers   map[string]Handler
	duplicates []string
}

// NewRegistry registers handlers in order. A later handler for an already
// registered type replaces the earlier one and the clash is logged.
func NewRegistry(logger *zap.Logger, handlers ...Handler) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Registry{handlers: make(map[string]Handler, len(handlers))}

	for _, h := range handlers {
		if h == nil {
			logger.Warn("outbox_handler_skipped", zap.String("reason", "nil handler"))
			continue
		}

		eventType := strings.TrimSpace(h.EventType())
		if eventType == "" {
			logger.Warn("outbox_handler_skipped",
				zap.String("reason", "blank event type"),
				zap.String("handler", fmt.Sprintf("%T", h)),
			)
			continue
		}

		if prev, ok := r.handlers[eventType]; ok {
			logger.Warn("outbox_handler_duplicate",
				zap.String("event_type", eventType),
				zap.String("replaced", fmt.Sprintf("%T", prev)),
				zap.String("handler", fmt.Sprintf("%T", h)),
			)
			r.duplicates = append(r.duplicates, eventType)
		}

		r.handlers[eventType] = h
	}

	return r
}

func (r *Registry) Get(eventType string) (Handler, bool) {
	h, ok := r.handlers[eventType]
	return h, ok
}

// EventTypes returns the registered types sorted.
func (r *Registry) EventTypes() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Duplicates lists event types that were registered more than once, in the
// order the clashes happened.
func (r *Registry) Duplicates() []string {
	return append([]string(nil), r.duplicates...)
}
