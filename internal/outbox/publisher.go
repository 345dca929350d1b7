package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"

	"github.com/google/uuid"
)

// EventWriter persists a new event on the transaction carried by ctx.
type EventWriter interface {
	Create(ctx context.Context, event *domainOutbox.Event) error
}

// Draft is the full form of a publish request.
type Draft struct {
	EventType     string
	Payload       any
	OccurredAt    time.Time
	CorrelationID string
	TraceID       string
}

type Publisher struct {
	store EventWriter
	now   func() time.Time
}

func NewPublisher(store EventWriter) *Publisher {
	return &Publisher{store: store, now: time.Now}
}

// Publish writes an event with the given type and payload. ctx must carry the
// caller's open transaction.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload any) (*domainOutbox.Event, error) {
	return p.PublishDraft(ctx, Draft{EventType: eventType, Payload: payload})
}

// PublishDraft validates and serializes d, then inserts it as a NEW event in
// the transaction carried by ctx. Nothing is written when it returns an error.
func (p *Publisher) PublishDraft(ctx context.Context, d Draft) (*domainOutbox.Event, error) {
	eventType := strings.TrimSpace(d.EventType)
	if eventType == "" {
		return nil, ErrEventTypeRequired
	}

	payload, err := encodePayload(d.Payload)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	occurredAt := d.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}

	e := &domainOutbox.Event{
		ID:            uuid.New(),
		EventType:     eventType,
		Payload:       payload,
		OccurredAt:    occurredAt,
		CreatedAt:     now,
		Status:        domainOutbox.StatusNew,
		CorrelationID: d.CorrelationID,
		TraceID:       d.TraceID,
	}

	if err := p.store.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("publish %s: %w", eventType, err)
	}

	eventsPublished.WithLabelValues(eventType).Inc()
	return e, nil
}

var jsonNull = []byte("null")

func encodePayload(payload any) ([]byte, error) {
	if payload == nil {
		return nil, ErrPayloadRequired
	}

	var raw []byte
	switch v := payload.(type) {
	case json.RawMessage:
		raw = bytes.Clone(v)
	case []byte:
		raw = bytes.Clone(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		raw = b
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, jsonNull) {
		return nil, ErrPayloadRequired
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: payload is not valid JSON", ErrSerialization)
	}

	return raw, nil
}
