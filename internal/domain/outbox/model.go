package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusNew        Status = "NEW"
	StatusProcessing Status = "PROCESSING"
	StatusDone       Status = "DONE"
	StatusFailed     Status = "FAILED"
)

// ParseStatus validates a raw status coming from an API query or CLI flag.
func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return status, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusProcessing, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// Event is one row of the outbox_events table together with its delivery state.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CreatedAt     time.Time       `json:"created_at"`
	Status        Status          `json:"status"`
	Attempts      int             `json:"attempts"`
	NextRetryAt   *time.Time      `json:"next_retry_at,omitempty"`
	LockedBy      string          `json:"locked_by,omitempty"`
	LockedAt      *time.Time      `json:"locked_at,omitempty"`
	LastError     string          `json:"last_error,omitempty"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	TraceID       string          `json:"trace_id,omitempty"`
}

// PermanentlyFailed reports whether the event reached its retry budget and
// will not be leased again without a replay.
func (e *Event) PermanentlyFailed(maxAttempts int) bool {
	return e.Status == StatusFailed && e.NextRetryAt == nil && e.Attempts >= maxAttempts
}

// Lease identifies one claim on a PROCESSING event. A settle update only
// applies while the row still carries the same worker and lock time, so a
// worker whose lease was reclaimed cannot overwrite a newer one.
type Lease struct {
	ID       uuid.UUID
	WorkerID string
	LockedAt time.Time
}

// ListFilter narrows operational queries over the store. Zero values mean "any".
type ListFilter struct {
	Status        Status
	EventType     string
	CorrelationID string
	Limit         int
}

type Repository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	List(ctx context.Context, filter ListFilter) ([]*Event, error)
	CountByStatus(ctx context.Context) (map[Status]int64, error)
	Replay(ctx context.Context, id uuid.UUID) error
}
