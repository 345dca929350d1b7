package event

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message is the read-only view of an outbox event handed to consumers and
// relayed to Kafka. Payload is a private copy of the stored JSON, so mutating
// it never affects the stored row.
type Message struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CreatedAt     time.Time       `json:"created_at"`
	Attempts      int             `json:"attempts"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	TraceID       string          `json:"trace_id,omitempty"`
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("decode %s payload: empty payload", m.Type)
	}

	dec := json.NewDecoder(bytes.NewReader(m.Payload))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}

	return nil
}

// Key is the partitioning key used when the message leaves the process.
func (m Message) Key() []byte {
	if m.CorrelationID != "" {
		return []byte(m.CorrelationID)
	}
	return []byte(m.ID.String())
}
