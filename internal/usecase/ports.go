package usecase

import (
	"context"
	"errors"

	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"
	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/outbox"
)

// ErrValidation marks bad caller input; the API maps it to 400.
var ErrValidation = errors.New("validation failed")

// EventPublisher writes outbox events on the transaction carried by ctx.
type EventPublisher interface {
	PublishDraft(ctx context.Context, draft outbox.Draft) (*domainOutbox.Event, error)
}
