package absence

import (
	"errors"
	"time"
)

type Status string

const (
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
)

const (
	EventSubmitted = "absence_notice.submitted"
	EventReviewed  = "absence_notice.reviewed"
)

var (
	ErrNotFound          = errors.New("absence notice not found")
	ErrInvalidTransition = errors.New("invalid absence notice transition")
	ErrInvalidDecision   = errors.New("decision must be APPROVED or REJECTED")
)

type Notice struct {
	ID         string     `json:"id"`
	StudentID  string     `json:"student_id"`
	TeacherID  string     `json:"teacher_id"`
	LessonID   string     `json:"lesson_id"`
	Reason     string     `json:"reason"`
	Status     Status     `json:"status"`
	ReviewerID string     `json:"reviewer_id,omitempty"`
	Comment    string     `json:"comment,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// CanTransitionTo reports whether a notice in status s may move to next.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusSubmitted && (next == StatusApproved || next == StatusRejected)
}

type SubmittedPayload struct {
	NoticeID  string `json:"noticeId"`
	StudentID string `json:"studentId"`
	TeacherID string `json:"teacherId"`
	LessonID  string `json:"lessonId"`
	Reason    string `json:"reason"`
}

type ReviewedPayload struct {
	NoticeID   string `json:"noticeId"`
	StudentID  string `json:"studentId"`
	LessonID   string `json:"lessonId"`
	Decision   Status `json:"decision"`
	ReviewerID string `json:"reviewerId"`
	Comment    string `json:"comment,omitempty"`
}
