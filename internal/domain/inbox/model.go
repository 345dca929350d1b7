package inbox

import "time"

// Event is a consumer-side record used for deduplication (Inbox pattern).
// A consumer claims an event id once; redeliveries of the same outbox event
// find the claim and skip their side effects.
type Event struct {
	Consumer      string    `json:"consumer"`
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	CorrelationID string    `json:"correlation_id"`
	ProcessedAt   time.Time `json:"processed_at"`
}
