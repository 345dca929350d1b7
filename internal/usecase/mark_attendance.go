package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/attendance"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"

	"github.com/google/uuid"
)

type AttendanceWriter interface {
	Upsert(ctx context.Context, rec *attendance.Record) error
}

type MarkAttendance struct {
	txManager postgres.Transactor
	records   AttendanceWriter
	publisher EventPublisher
	now       func() time.Time
}

func NewMarkAttendance(txManager postgres.Transactor, records AttendanceWriter, publisher EventPublisher) *MarkAttendance {
	return &MarkAttendance{
		txManager: txManager,
		records:   records,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type MarkAttendanceParams struct {
	LessonID  string            `json:"lesson_id"`
	StudentID string            `json:"student_id"`
	Status    attendance.Status `json:"status"`
	MarkedBy  string            `json:"marked_by"`
}

func (p MarkAttendanceParams) validate() error {
	if strings.TrimSpace(p.LessonID) == "" || strings.TrimSpace(p.StudentID) == "" || strings.TrimSpace(p.MarkedBy) == "" {
		return fmt.Errorf("%w: lesson_id, student_id and marked_by are required", ErrValidation)
	}
	if !p.Status.IsValid() {
		return fmt.Errorf("%w: %w %q", ErrValidation, attendance.ErrInvalidStatus, p.Status)
	}
	return nil
}

// Execute stores the mark and publishes attendance.marked in one transaction.
func (uc *MarkAttendance) Execute(ctx context.Context, params MarkAttendanceParams) (*attendance.Record, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	rec := &attendance.Record{
		ID:        uuid.NewString(),
		LessonID:  params.LessonID,
		StudentID: params.StudentID,
		Status:    params.Status,
		MarkedBy:  params.MarkedBy,
		MarkedAt:  uc.now(),
	}

	err := uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.records.Upsert(txCtx, rec); err != nil {
			return err
		}

		_, err := uc.publisher.PublishDraft(txCtx, outbox.Draft{
			EventType: attendance.EventMarked,
			Payload: attendance.MarkedPayload{
				RecordID:  rec.ID,
				LessonID:  rec.LessonID,
				StudentID: rec.StudentID,
				Status:    rec.Status,
				MarkedBy:  rec.MarkedBy,
				MarkedAt:  rec.MarkedAt,
			},
			OccurredAt:    rec.MarkedAt,
			CorrelationID: rec.LessonID,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("mark attendance: %w", err)
	}

	return rec, nil
}
