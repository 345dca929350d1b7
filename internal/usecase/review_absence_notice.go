package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/absence"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/infrastructure/postgres"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"
)

type ReviewAbsenceNotice struct {
	txManager postgres.Transactor
	notices   AbsenceNoticeStore
	publisher EventPublisher
	now       func() time.Time
}

func NewReviewAbsenceNotice(txManager postgres.Transactor, notices AbsenceNoticeStore, publisher EventPublisher) *ReviewAbsenceNotice {
	return &ReviewAbsenceNotice{
		txManager: txManager,
		notices:   notices,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type ReviewAbsenceNoticeParams struct {
	NoticeID   string         `json:"-"`
	Decision   absence.Status `json:"decision"`
	ReviewerID string         `json:"reviewer_id"`
	Comment    string         `json:"comment"`
}

// Execute approves or rejects a SUBMITTED notice and publishes
// absence_notice.reviewed with the decision.
func (uc *ReviewAbsenceNotice) Execute(ctx context.Context, params ReviewAbsenceNoticeParams) (*absence.Notice, error) {
	if params.Decision != absence.StatusApproved && params.Decision != absence.StatusRejected {
		return nil, fmt.Errorf("%w: %w", ErrValidation, absence.ErrInvalidDecision)
	}
	if strings.TrimSpace(params.ReviewerID) == "" {
		return nil, fmt.Errorf("%w: reviewer_id is required", ErrValidation)
	}

	var notice *absence.Notice
	err := uc.txManager.WithinTransaction(ctx, func(txCtx context.Context) error {
		n, err := uc.notices.GetForUpdate(txCtx, params.NoticeID)
		if err != nil {
			return err
		}

		if !n.Status.CanTransitionTo(params.Decision) {
			return fmt.Errorf("%w: %s -> %s", absence.ErrInvalidTransition, n.Status, params.Decision)
		}

		reviewedAt := uc.now()
		n.Status = params.Decision
		n.ReviewerID = params.ReviewerID
		n.Comment = strings.TrimSpace(params.Comment)
		n.ReviewedAt = &reviewedAt

		if err := uc.notices.UpdateReview(txCtx, n); err != nil {
			return err
		}

		_, err = uc.publisher.PublishDraft(txCtx, outbox.Draft{
			EventType: absence.EventReviewed,
			Payload: absence.ReviewedPayload{
				NoticeID:   n.ID,
				StudentID:  n.StudentID,
				LessonID:   n.LessonID,
				Decision:   n.Status,
				ReviewerID: n.ReviewerID,
				Comment:    n.Comment,
			},
			OccurredAt:    reviewedAt,
			CorrelationID: n.ID,
		})
		if err != nil {
			return err
		}

		notice = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("review absence notice: %w", err)
	}

	return notice, nil
}
