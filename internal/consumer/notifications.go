package consumer

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/absence"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/attendance"
	domainEvent "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/event"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/notification"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// reviewConsumer is the inbox consumer name for absence review side effects.
const reviewConsumer = "notifications.absence_reviewed"

// Notifications turns domain events into in-app notifications.
type Notifications struct {
	notifications NotificationStore
	attendance    AttendanceStore
	inbox         InboxStore
	tx            postgres.Transactor
	unread        UnreadInvalidator
	logger        *zap.Logger
	now           func() time.Time
}

func NewNotifications(
	notifications NotificationStore,
	attendance AttendanceStore,
	inbox InboxStore,
	tx postgres.Transactor,
	unread UnreadInvalidator,
	logger *zap.Logger,
) *Notifications {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifications{
		notifications: notifications,
		attendance:    attendance,
		inbox:         inbox,
		tx:            tx,
		unread:        unread,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Handlers returns one handler per consumed event type.
func (n *Notifications) Handlers() []outbox.Handler {
	return []outbox.Handler{
		outbox.NewHandler(attendance.EventMarked, n.handleAttendanceMarked),
		outbox.NewHandler(absence.EventSubmitted, n.handleAbsenceSubmitted),
		outbox.NewHandler(absence.EventReviewed, n.handleAbsenceReviewed),
	}
}

func (n *Notifications) handleAttendanceMarked(ctx context.Context, msg domainEvent.Message) error {
	var p attendance.MarkedPayload
	if err := msg.Decode(&p); err != nil {
		return err
	}

	if !p.Status.NeedsAttention() {
		return nil
	}

	return n.notify(ctx, msg, &notification.Notification{
		RecipientID: p.StudentID,
		Kind:        notification.KindAttendanceMarked,
		Title:       "Attendance marked",
		Body:        fmt.Sprintf("You were marked %s for lesson %s.", p.Status, p.LessonID),
	})
}

func (n *Notifications) handleAbsenceSubmitted(ctx context.Context, msg domainEvent.Message) error {
	var p absence.SubmittedPayload
	if err := msg.Decode(&p); err != nil {
		return err
	}

	return n.notify(ctx, msg, &notification.Notification{
		RecipientID: p.TeacherID,
		Kind:        notification.KindAbsenceNoticeNew,
		Title:       "New absence notice",
		Body:        fmt.Sprintf("Student %s submitted an absence notice for lesson %s: %s", p.StudentID, p.LessonID, p.Reason),
	})
}

// handleAbsenceReviewed excuses the student's attendance on approval and
// tells the student. Both writes commit together with the inbox claim.
func (n *Notifications) handleAbsenceReviewed(ctx context.Context, msg domainEvent.Message) error {
	var p absence.ReviewedPayload
	if err := msg.Decode(&p); err != nil {
		return err
	}

	var created bool
	err := n.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		fresh, err := n.inbox.Claim(ctx, reviewConsumer, msg.ID.String(), msg.Type, msg.CorrelationID)
		if err != nil {
			return err
		}
		if !fresh {
			n.logger.Debug("inbox_duplicate_skipped",
				zap.String("consumer", reviewConsumer),
				zap.String("event_id", msg.ID.String()),
			)
			return nil
		}

		if p.Decision == absence.StatusApproved {
			now := n.now()
			rec := &attendance.Record{
				ID:        uuid.NewString(),
				LessonID:  p.LessonID,
				StudentID: p.StudentID,
				Status:    attendance.StatusExcused,
				MarkedBy:  p.ReviewerID,
				MarkedAt:  now,
			}
			if err := n.attendance.Upsert(ctx, rec); err != nil {
				return err
			}
		}

		created, err = n.notifications.Create(ctx, &notification.Notification{
			ID:            uuid.NewString(),
			RecipientID:   p.StudentID,
			Kind:          notification.KindAbsenceNoticeDecided,
			Title:         "Absence notice reviewed",
			Body:          reviewBody(p),
			SourceEventID: msg.ID.String(),
			CreatedAt:     n.now(),
		})
		return err
	})
	if err != nil {
		return err
	}

	if created {
		n.created(ctx, notification.KindAbsenceNoticeDecided, p.StudentID)
	}
	return nil
}

func (n *Notifications) notify(ctx context.Context, msg domainEvent.Message, notif *notification.Notification) error {
	notif.ID = uuid.NewString()
	notif.SourceEventID = msg.ID.String()
	notif.CreatedAt = n.now()

	created, err := n.notifications.Create(ctx, notif)
	if err != nil {
		return err
	}

	if created {
		n.created(ctx, notif.Kind, notif.RecipientID)
	}
	return nil
}

func (n *Notifications) created(ctx context.Context, kind notification.Kind, recipientID string) {
	notificationsCreated.WithLabelValues(string(kind)).Inc()
	if n.unread != nil {
		n.unread.Invalidate(ctx, recipientID)
	}
}

func reviewBody(p absence.ReviewedPayload) string {
	body := fmt.Sprintf("Your absence notice for lesson %s was %s.", p.LessonID, p.Decision)
	if p.Comment != "" {
		body += " Comment: " + p.Comment
	}
	return body
}
