package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/absence"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"

	"github.com/google/uuid"
)

type AbsenceNoticeStore interface {
	Create(ctx context.Context, n *absence.Notice) error
	GetForUpdate(ctx context.Context, id string) (*absence.Notice, error)
	UpdateReview(ctx context.Context, n *absence.Notice) error
}

type SubmitAbsenceNotice struct {
	txManager postgres.Transactor
	notices   AbsenceNoticeStore
	publisher EventPublisher
	now       func() time.Time
}

func NewSubmitAbsenceNotice(txManager postgres.Transactor, notices AbsenceNoticeStore, publisher EventPublisher) *SubmitAbsenceNotice {
	return &SubmitAbsenceNotice{
		txManager: txManager,
		notices:   notices,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type SubmitAbsenceNoticeParams struct {
	StudentID string `json:"student_id"`
	TeacherID string `json:"teacher_id"`
	LessonID  string `json:"lesson_id"`
	Reason    string `json:"reason"`
}

func (uc *SubmitAbsenceNotice) Execute(ctx context.Context, params SubmitAbsenceNoticeParams) (*absence.Notice, error) {
	if strings.TrimSpace(params.StudentID) == "" || strings.TrimSpace(params.TeacherID) == "" ||
		strings.TrimSpace(params.LessonID) == "" || strings.TrimSpace(params.Reason) == "" {
		return nil, fmt.Errorf("%w: student_id, teacher_id, lesson_id and reason are required", ErrValidation)
	}

	notice := &absence.Notice{
		ID:        uuid.NewString(),
		StudentID: params.StudentID,
		TeacherID: params.TeacherID,
		LessonID:  params.LessonID,
		Reason:    strings.TrimSpace(params.Reason),
		Status:    absence.StatusSubmitted,
		CreatedAt: uc.now(),
	}

	err := uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := uc.notices.Create(txCtx, notice); err != nil {
			return err
		}

		_, err := uc.publisher.PublishDraft(txCtx, outbox.Draft{
			EventType: absence.EventSubmitted,
			Payload: absence.SubmittedPayload{
				NoticeID:  notice.ID,
				StudentID: notice.StudentID,
				TeacherID: notice.TeacherID,
				LessonID:  notice.LessonID,
				Reason:    notice.Reason,
			},
			OccurredAt:    notice.CreatedAt,
			CorrelationID: notice.ID,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("submit absence notice: %w", err)
	}

	return notice, nil
}
