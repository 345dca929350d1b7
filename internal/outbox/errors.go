package outbox

import "errors"

var (
	ErrEventTypeRequired = errors.New("event type is required")
	ErrPayloadRequired   = errors.New("event payload is required")
	ErrSerialization     = errors.New("event payload serialization failed")
)
