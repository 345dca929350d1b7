package notification

import (
	"errors"
	"time"
)

type Kind string

const (
	KindAttendanceMarked     Kind = "ATTENDANCE_MARKED"
	KindAbsenceNoticeNew     Kind = "ABSENCE_NOTICE_SUBMITTED"
	KindAbsenceNoticeDecided Kind = "ABSENCE_NOTICE_REVIEWED"
)

var ErrNotFound = errors.New("notification not found")

// Notification is an in-app inbox entry. SourceEventID ties it to the outbox
// event that produced it; (RecipientID, SourceEventID) is unique.
type Notification struct {
	ID            string     `json:"id"`
	RecipientID   string     `json:"recipient_id"`
	Kind          Kind       `json:"kind"`
	Title         string     `json:"title"`
	Body          string     `json:"body"`
	SourceEventID string     `json:"source_event_id"`
	CreatedAt     time.Time  `json:"created_at"`
	ReadAt        *time.Time `json:"read_at,omitempty"`
}
