package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/notification"

	"go.uber.org/zap"
)

type NotificationReader interface {
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*notification.Notification, error)
	UnreadCount(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, id string, at time.Time) (string, error)
}

// CounterCache is satisfied by redis.CounterCache.
type CounterCache interface {
	Get(ctx context.Context, key string) (int64, bool, error)
	Set(ctx context.Context, key string, v int64) error
	Delete(ctx context.Context, key string) error
}

// Notifications serves the read side of the in-app inbox. Unread counters
// are cached briefly; cache failures fall through to the database.
type Notifications struct {
	store  NotificationReader
	cache  CounterCache
	logger *zap.Logger
	now    func() time.Time
}

func NewNotifications(store NotificationReader, cache CounterCache, logger *zap.Logger) *Notifications {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifications{
		store:  store,
		cache:  cache,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *Notifications) List(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	items, err := uc.store.ListByRecipient(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if items == nil {
		items = []*notification.Notification{}
	}
	return items, nil
}

func (uc *Notifications) UnreadCount(ctx context.Context, userID string) (int64, error) {
	if uc.cache != nil {
		v, ok, err := uc.cache.Get(ctx, userID)
		if err != nil {
			uc.logger.Warn("unread_cache_get_failed", zap.String("user_id", userID), zap.Error(err))
		} else if ok {
			return v, nil
		}
	}

	count, err := uc.store.UnreadCount(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	if uc.cache != nil {
		if err := uc.cache.Set(ctx, userID, count); err != nil {
			uc.logger.Warn("unread_cache_set_failed", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return count, nil
}

func (uc *Notifications) MarkRead(ctx context.Context, id string) error {
	recipientID, err := uc.store.MarkRead(ctx, id, uc.now())
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	uc.Invalidate(ctx, recipientID)
	return nil
}

// Invalidate drops the cached unread counter for userID.
func (uc *Notifications) Invalidate(ctx context.Context, userID string) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Delete(ctx, userID); err != nil {
		uc.logger.Warn("unread_cache_delete_failed", zap.String("user_id", userID), zap.Error(err))
	}
}
