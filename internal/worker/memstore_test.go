package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"

	"github.com/google/uuid"
)

// memStore mirrors the repository statements over a map.
type memStore struct {
	mu          sync.Mutex
	maxAttempts int
	events      map[uuid.UUID]*domainOutbox.Event

	failLease error
}

func newMemStore(maxAttempts int) *memStore {
	return &memStore{maxAttempts: maxAttempts, events: map[uuid.UUID]*domainOutbox.Event{}}
}

func (s *memStore) add(eventType, payload string, occurredAt time.Time) *domainOutbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &domainOutbox.Event{
		ID:         uuid.New(),
		EventType:  eventType,
		Payload:    []byte(payload),
		OccurredAt: occurredAt,
		CreatedAt:  occurredAt,
		Status:     domainOutbox.StatusNew,
	}
	s.events[e.ID] = e
	return e
}

func (s *memStore) get(id uuid.UUID) domainOutbox.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.events[id]
}

func (s *memStore) ReleaseStaleLocks(_ context.Context, staleBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, e := range s.events {
		if e.Status == domainOutbox.StatusProcessing && e.LockedAt.Before(staleBefore) {
			e.Status = domainOutbox.StatusFailed
			e.LockedBy, e.LockedAt, e.NextRetryAt = "", nil, nil
			n++
		}
	}
	return n, nil
}

func (s *memStore) LockNextBatch(_ context.Context, limit int, now time.Time) ([]*domainOutbox.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failLease != nil {
		return nil, s.failLease
	}

	var due []*domainOutbox.Event
	for _, e := range s.events {
		if e.Status != domainOutbox.StatusNew && e.Status != domainOutbox.StatusFailed {
			continue
		}
		if e.NextRetryAt != nil && e.NextRetryAt.After(now) {
			continue
		}
		if e.Attempts >= s.maxAttempts {
			continue
		}
		due = append(due, e)
	}

	sort.Slice(due, func(i, j int) bool {
		if !due[i].OccurredAt.Equal(due[j].OccurredAt) {
			return due[i].OccurredAt.Before(due[j].OccurredAt)
		}
		return due[i].CreatedAt.Before(due[j].CreatedAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	out := make([]*domainOutbox.Event, len(due))
	for i, e := range due {
		c := *e
		out[i] = &c
	}
	return out, nil
}

func (s *memStore) MarkProcessing(_ context.Context, ids []uuid.UUID, workerID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		e, ok := s.events[id]
		if !ok {
			return fmt.Errorf("unknown event %s", id)
		}
		at := now
		e.Status = domainOutbox.StatusProcessing
		e.LockedBy, e.LockedAt = workerID, &at
	}
	return nil
}

// leased returns the event only while lease is its current lease.
func (s *memStore) leased(lease domainOutbox.Lease) *domainOutbox.Event {
	e := s.events[lease.ID]
	if e == nil || e.Status != domainOutbox.StatusProcessing || e.LockedAt == nil {
		return nil
	}
	if e.LockedBy != lease.WorkerID || !e.LockedAt.Equal(lease.LockedAt) {
		return nil
	}
	return e
}

func (s *memStore) MarkDone(ctx context.Context, lease domainOutbox.Lease, processedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.leased(lease)
	if e == nil {
		return domainOutbox.ErrLeaseLost
	}
	at := processedAt
	e.Status = domainOutbox.StatusDone
	e.ProcessedAt = &at
	e.LockedBy, e.LockedAt = "", nil
	return nil
}

func (s *memStore) MarkFailed(ctx context.Context, lease domainOutbox.Lease, errMsg string, attempts int, nextRetryAt *time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.leased(lease)
	if e == nil {
		return domainOutbox.ErrLeaseLost
	}
	e.Status = domainOutbox.StatusFailed
	e.LastError = errMsg
	e.Attempts = attempts
	e.NextRetryAt = nextRetryAt
	e.LockedBy, e.LockedAt = "", nil
	return nil
}

// inlineTx runs fn without a real transaction.
type inlineTx struct{}

func (inlineTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
