package consumer

import (
	"context"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/attendance"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/notification"
)

type NotificationStore interface {
	Create(ctx context.Context, n *notification.Notification) (bool, error)
}

type AttendanceStore interface {
	Upsert(ctx context.Context, rec *attendance.Record) error
}

// InboxStore claims (consumer, event id) pairs so side effects run once per
// event even when the outbox delivers it again.
type InboxStore interface {
	Claim(ctx context.Context, consumer, eventID, eventType, correlationID string) (bool, error)
}

// UnreadInvalidator drops cached unread counters after a new notification.
type UnreadInvalidator interface {
	Invalidate(ctx context.Context, recipientID string)
}
