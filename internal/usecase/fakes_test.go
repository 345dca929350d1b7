package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/absence"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/attendance"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/notification"
	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"
)

// stagedTx buffers writes made inside WithinTransaction and discards them
// when fn fails, like a rolled back transaction.
type stagedTx struct {
	records  []*attendance.Record
	notices  map[string]*absence.Notice
	drafts   []outbox.Draft
	staged   *stagedTx
	rollback int
}

type txKey struct{}

func newStagedTx() *stagedTx {
	return &stagedTx{notices: map[string]*absence.Notice{}}
}

func (s *stagedTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.staged = &stagedTx{notices: map[string]*absence.Notice{}}
	err := fn(context.WithValue(ctx, txKey{}, true))
	if err != nil {
		s.rollback++
		s.staged = nil
		return err
	}

	s.records = append(s.records, s.staged.records...)
	for id, n := range s.staged.notices {
		s.notices[id] = n
	}
	s.drafts = append(s.drafts, s.staged.drafts...)
	s.staged = nil
	return nil
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

var errNoTx = errors.New("no transaction in context")

type attendanceWriter struct {
	tx  *stagedTx
	err error
}

func (w *attendanceWriter) Upsert(ctx context.Context, rec *attendance.Record) error {
	if !inTx(ctx) {
		return errNoTx
	}
	if w.err != nil {
		return w.err
	}
	w.tx.staged.records = append(w.tx.staged.records, rec)
	return nil
}

type noticeStore struct {
	tx *stagedTx
}

func (s *noticeStore) Create(ctx context.Context, n *absence.Notice) error {
	if !inTx(ctx) {
		return errNoTx
	}
	s.tx.staged.notices[n.ID] = n
	return nil
}

func (s *noticeStore) GetForUpdate(ctx context.Context, id string) (*absence.Notice, error) {
	if !inTx(ctx) {
		return nil, errNoTx
	}
	n, ok := s.tx.notices[id]
	if !ok {
		return nil, absence.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *noticeStore) UpdateReview(ctx context.Context, n *absence.Notice) error {
	if !inTx(ctx) {
		return errNoTx
	}
	s.tx.staged.notices[n.ID] = n
	return nil
}

type draftPublisher struct {
	tx  *stagedTx
	err error
}

func (p *draftPublisher) PublishDraft(ctx context.Context, d outbox.Draft) (*domainOutbox.Event, error) {
	if !inTx(ctx) {
		return nil, errNoTx
	}
	if p.err != nil {
		return nil, p.err
	}
	p.tx.staged.drafts = append(p.tx.staged.drafts, d)
	return &domainOutbox.Event{EventType: d.EventType, Status: domainOutbox.StatusNew}, nil
}

type notificationReader struct {
	unread     map[string]int64
	countCalls int
	readOwner  string
	readErr    error
}

func (r *notificationReader) ListByRecipient(_ context.Context, _ string, _ int) ([]*notification.Notification, error) {
	return nil, nil
}

func (r *notificationReader) UnreadCount(_ context.Context, recipientID string) (int64, error) {
	r.countCalls++
	return r.unread[recipientID], nil
}

func (r *notificationReader) MarkRead(_ context.Context, _ string, _ time.Time) (string, error) {
	return r.readOwner, r.readErr
}
