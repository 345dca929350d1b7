package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/inbox"
	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outboxStore struct {
	events      []*domainOutbox.Event
	filter      domainOutbox.ListFilter
	staleBefore time.Time
}

func (s *outboxStore) Create(context.Context, *domainOutbox.Event) error { return nil }

func (s *outboxStore) GetByID(_ context.Context, id uuid.UUID) (*domainOutbox.Event, error) {
	for _, e := range s.events {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, domainOutbox.ErrEventNotFound
}

func (s *outboxStore) List(_ context.Context, filter domainOutbox.ListFilter) ([]*domainOutbox.Event, error) {
	s.filter = filter
	var out []*domainOutbox.Event
	for _, e := range s.events {
		if filter.CorrelationID == "" || e.CorrelationID == filter.CorrelationID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *outboxStore) CountByStatus(context.Context) (map[domainOutbox.Status]int64, error) {
	return map[domainOutbox.Status]int64{}, nil
}

func (s *outboxStore) Replay(context.Context, uuid.UUID) error { return nil }

func (s *outboxStore) ReleaseStaleLocks(_ context.Context, staleBefore time.Time) (int64, error) {
	s.staleBefore = staleBefore
	return 1, nil
}

type inboxReader struct {
	claims map[string][]*inbox.Event
	err    error
}

func (r *inboxReader) ListByCorrelationID(_ context.Context, correlationID string) ([]*inbox.Event, error) {
	return r.claims[correlationID], r.err
}

func TestOutboxAdmin_Workflow(t *testing.T) {
	t.Parallel()

	reviewed := &domainOutbox.Event{ID: uuid.New(), EventType: "absence_notice.reviewed", CorrelationID: "N1"}
	other := &domainOutbox.Event{ID: uuid.New(), EventType: "attendance.marked", CorrelationID: "L1"}
	store := &outboxStore{events: []*domainOutbox.Event{reviewed, other}}
	claims := &inboxReader{claims: map[string][]*inbox.Event{
		"N1": {{Consumer: "notifications.absence_reviewed", EventID: reviewed.ID.String(), EventType: reviewed.EventType, CorrelationID: "N1"}},
	}}

	wf, err := NewOutboxAdmin(store, claims).Workflow(context.Background(), "N1")
	require.NoError(t, err)

	assert.Equal(t, "N1", wf.CorrelationID)
	assert.Equal(t, "N1", store.filter.CorrelationID)
	assert.Equal(t, maxWorkflowEvents, store.filter.Limit)
	require.Len(t, wf.Outbox, 1)
	assert.Equal(t, reviewed.ID, wf.Outbox[0].ID)
	require.Len(t, wf.Inbox, 1)
	assert.Equal(t, "notifications.absence_reviewed", wf.Inbox[0].Consumer)
}

func TestOutboxAdmin_WorkflowEmptyAndErrors(t *testing.T) {
	t.Parallel()

	admin := NewOutboxAdmin(&outboxStore{}, &inboxReader{})

	wf, err := admin.Workflow(context.Background(), "unknown")
	require.NoError(t, err)
	assert.NotNil(t, wf.Outbox)
	assert.NotNil(t, wf.Inbox)

	_, err = admin.Workflow(context.Background(), "")
	require.ErrorIs(t, err, ErrValidation)

	_, err = NewOutboxAdmin(&outboxStore{}, &inboxReader{err: errors.New("timeout")}).Workflow(context.Background(), "N1")
	require.ErrorContains(t, err, "get inbox events: timeout")
}

func TestOutboxAdmin_ReleaseStale(t *testing.T) {
	t.Parallel()

	store := &outboxStore{}
	admin := NewOutboxAdmin(store, &inboxReader{})
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	admin.now = func() time.Time { return at }

	n, err := admin.ReleaseStale(context.Background(), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, at.Add(-5*time.Minute), store.staleBefore)

	_, err = admin.ReleaseStale(context.Background(), 0)
	require.ErrorIs(t, err, ErrValidation)
}
