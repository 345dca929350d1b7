package attendance

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPresent Status = "PRESENT"
	StatusAbsent  Status = "ABSENT"
	StatusLate    Status = "LATE"
	StatusExcused Status = "EXCUSED"
)

// EventMarked is published whenever a teacher marks (or re-marks) a student.
const EventMarked = "attendance.marked"

var (
	ErrInvalidStatus = errors.New("invalid attendance status")
	ErrNotFound      = errors.New("attendance record not found")
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusExcused:
		return true
	default:
		return false
	}
}

// NeedsAttention reports whether the student should hear about the mark.
func (s Status) NeedsAttention() bool {
	return s == StatusAbsent || s == StatusLate
}

type Record struct {
	ID        string    `json:"id"`
	LessonID  string    `json:"lesson_id"`
	StudentID string    `json:"student_id"`
	Status    Status    `json:"status"`
	MarkedBy  string    `json:"marked_by"`
	MarkedAt  time.Time `json:"marked_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MarkedPayload is the payload of EventMarked.
type MarkedPayload struct {
	RecordID  string    `json:"recordId"`
	LessonID  string    `json:"lessonId"`
	StudentID string    `json:"studentId"`
	Status    Status    `json:"status"`
	MarkedBy  string    `json:"markedBy"`
	MarkedAt  time.Time `json:"markedAt"`
}
