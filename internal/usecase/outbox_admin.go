package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/inbox"
	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"

	"github.com/google/uuid"
)

type OutboxStore interface {
	domainOutbox.Repository
	ReleaseStaleLocks(ctx context.Context, staleBefore time.Time) (int64, error)
}

type InboxReader interface {
	ListByCorrelationID(ctx context.Context, correlationID string) ([]*inbox.Event, error)
}

const maxWorkflowEvents = 500

// Workflow is everything recorded under one correlation id: the events
// published and the consumer claims made while handling them.
type Workflow struct {
	CorrelationID string                `json:"correlation_id"`
	Outbox        []*domainOutbox.Event `json:"outbox"`
	Inbox         []*inbox.Event        `json:"inbox"`
}

// OutboxAdmin backs the operational API and CLI.
type OutboxAdmin struct {
	store  OutboxStore
	claims InboxReader
	now    func() time.Time
}

func NewOutboxAdmin(store OutboxStore, claims InboxReader) *OutboxAdmin {
	return &OutboxAdmin{store: store, claims: claims, now: func() time.Time { return time.Now().UTC() }}
}

func (uc *OutboxAdmin) List(ctx context.Context, filter domainOutbox.ListFilter) ([]*domainOutbox.Event, error) {
	events, err := uc.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*domainOutbox.Event{}
	}
	return events, nil
}

func (uc *OutboxAdmin) Get(ctx context.Context, id uuid.UUID) (*domainOutbox.Event, error) {
	return uc.store.GetByID(ctx, id)
}

// Replay gives a FAILED event a fresh retry budget.
func (uc *OutboxAdmin) Replay(ctx context.Context, id uuid.UUID) (*domainOutbox.Event, error) {
	if err := uc.store.Replay(ctx, id); err != nil {
		return nil, fmt.Errorf("replay %s: %w", id, err)
	}
	return uc.store.GetByID(ctx, id)
}

func (uc *OutboxAdmin) Stats(ctx context.Context) (map[domainOutbox.Status]int64, error) {
	return uc.store.CountByStatus(ctx)
}

// ReleaseStale reclaims leases older than olderThan immediately instead of
// waiting for the next processor tick.
func (uc *OutboxAdmin) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: older-than must be positive", ErrValidation)
	}
	return uc.store.ReleaseStaleLocks(ctx, uc.now().Add(-olderThan))
}

func (uc *OutboxAdmin) Workflow(ctx context.Context, correlationID string) (*Workflow, error) {
	if correlationID == "" {
		return nil, fmt.Errorf("%w: correlation id is required", ErrValidation)
	}

	events, err := uc.List(ctx, domainOutbox.ListFilter{CorrelationID: correlationID, Limit: maxWorkflowEvents})
	if err != nil {
		return nil, fmt.Errorf("get outbox events: %w", err)
	}

	claims, err := uc.claims.ListByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, fmt.Errorf("get inbox events: %w", err)
	}
	if claims == nil {
		claims = []*inbox.Event{}
	}

	return &Workflow{CorrelationID: correlationID, Outbox: events, Inbox: claims}, nil
}
