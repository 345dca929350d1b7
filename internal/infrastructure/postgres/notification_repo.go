package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/notification"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type NotificationRepository struct {
	pool *pgxpool.Pool
}

func NewNotificationRepository(pool *pgxpool.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

// Create inserts n unless the recipient already has a notification for the
// same source event. It reports whether a row was written.
func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) (bool, error) {
	const sql = `
		INSERT INTO notifications (id, recipient_id, kind, title, body, source_event_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (recipient_id, source_event_id) DO NOTHING
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, sql,
		n.ID, n.RecipientID, n.Kind, n.Title, n.Body, n.SourceEventID, n.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert notification: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]*notification.Notification, error) {
	const sql = `
		SELECT id, recipient_id, kind, title, body, source_event_id, created_at, read_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := conn(ctx, r.pool).Query(ctx, sql, recipientID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []*notification.Notification
	for rows.Next() {
		n := &notification.Notification{}
		var kind string
		if err := rows.Scan(&n.ID, &n.RecipientID, &kind, &n.Title, &n.Body, &n.SourceEventID, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = notification.Kind(kind)
		out = append(out, n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read notifications: %w", err)
	}

	return out, nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, recipientID string) (int64, error) {
	const sql = `SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND read_at IS NULL`

	var count int64
	if err := conn(ctx, r.pool).QueryRow(ctx, sql, recipientID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}

// MarkRead sets read_at once and returns the recipient so callers can drop
// cached counters. Marking an already read notification is a no-op.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string, at time.Time) (string, error) {
	const sql = `
		UPDATE notifications
		SET read_at = COALESCE(read_at, $2)
		WHERE id = $1
		RETURNING recipient_id
	`

	var recipientID string
	if err := conn(ctx, r.pool).QueryRow(ctx, sql, id, at).Scan(&recipientID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", notification.ErrNotFound
		}
		return "", fmt.Errorf("mark notification read: %w", err)
	}

	return recipientID, nil
}
