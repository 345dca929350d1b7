package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultListLimit = 100

const outboxColumns = `
	id,
	event_type,
	payload_json,
	occurred_at,
	created_at,
	status,
	attempts,
	next_retry_at,
	COALESCE(locked_by, ''),
	locked_at,
	COALESCE(last_error, ''),
	processed_at,
	COALESCE(correlation_id, ''),
	COALESCE(trace_id, '')`

// OutboxRepository owns every statement that touches outbox_events. It is
// the only component that takes row locks.
type OutboxRepository struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// NewOutboxRepository builds the repository. maxAttempts keeps permanently
// failed rows out of the lease query.
func NewOutboxRepository(pool *pgxpool.Pool, maxAttempts int) *OutboxRepository {
	return &OutboxRepository{pool: pool, maxAttempts: maxAttempts}
}

// Create inserts a NEW event. It must run inside the caller's transaction so
// the event commits or rolls back with the business change.
func (r *OutboxRepository) Create(ctx context.Context, e *outbox.Event) error {
	const sql = `
		INSERT INTO outbox_events (
			id, event_type, payload_json, occurred_at, created_at,
			status, attempts, correlation_id, trace_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
	`

	tx := GetTx(ctx)
	if tx == nil {
		return outbox.ErrTransactionRequired
	}

	_, err := tx.Exec(ctx, sql,
		e.ID, e.EventType, e.Payload, e.OccurredAt, e.CreatedAt,
		outbox.StatusNew, nullIfEmpty(e.CorrelationID), nullIfEmpty(e.TraceID))
	if err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	return nil
}

// LockNextBatch selects up to limit due events, oldest occurred_at first,
// skipping rows another transaction already holds. The row locks live until
// the surrounding transaction ends, so it must be called inside one.
func (r *OutboxRepository) LockNextBatch(ctx context.Context, limit int, now time.Time) ([]*outbox.Event, error) {
	const sql = `
		SELECT ` + outboxColumns + `
		FROM outbox_events
		WHERE status IN ('NEW', 'FAILED')
		  AND (next_retry_at IS NULL OR next_retry_at <= $1)
		  AND attempts < $2
		ORDER BY occurred_at ASC, created_at ASC
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`

	tx := GetTx(ctx)
	if tx == nil {
		return nil, outbox.ErrTransactionRequired
	}

	rows, err := tx.Query(ctx, sql, now, r.maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("lock next outbox batch: %w", err)
	}

	return collectEvents(rows)
}

// MarkProcessing stamps lease ownership on rows locked by LockNextBatch.
func (r *OutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID, workerID string, now time.Time) error {
	const sql = `
		UPDATE outbox_events
		SET status = 'PROCESSING', locked_by = $2, locked_at = $3
		WHERE id = ANY($1::uuid[])
	`

	if len(ids) == 0 {
		return nil
	}

	tag, err := conn(ctx, r.pool).Exec(ctx, sql, uuidStrings(ids), workerID, now)
	if err != nil {
		return fmt.Errorf("mark outbox events processing: %w", err)
	}

	if tag.RowsAffected() != int64(len(ids)) {
		return fmt.Errorf("mark outbox events processing: updated %d of %d rows", tag.RowsAffected(), len(ids))
	}

	return nil
}

// MarkDone settles a delivered event. It matches only while lease is still the
// row's current lease; otherwise it returns outbox.ErrLeaseLost.
func (r *OutboxRepository) MarkDone(ctx context.Context, lease outbox.Lease, processedAt time.Time) error {
	const sql = `
		UPDATE outbox_events
		SET status = 'DONE', processed_at = $4, locked_by = NULL, locked_at = NULL
		WHERE id = $1 AND status = 'PROCESSING' AND locked_by = $2 AND locked_at = $3
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, sql, lease.ID, lease.WorkerID, lease.LockedAt, processedAt)
	if err != nil {
		return fmt.Errorf("mark outbox event done: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark outbox event %s done: %w", lease.ID, outbox.ErrLeaseLost)
	}

	return nil
}

// MarkFailed records a failed attempt under lease. A nil nextRetryAt means
// the event is permanently failed.
func (r *OutboxRepository) MarkFailed(ctx context.Context, lease outbox.Lease, errMsg string, attempts int, nextRetryAt *time.Time) error {
	const sql = `
		UPDATE outbox_events
		SET status = 'FAILED', last_error = $4, attempts = $5, next_retry_at = $6,
		    locked_by = NULL, locked_at = NULL
		WHERE id = $1 AND status = 'PROCESSING' AND locked_by = $2 AND locked_at = $3
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, sql, lease.ID, lease.WorkerID, lease.LockedAt, errMsg, attempts, nextRetryAt)
	if err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark outbox event %s failed: %w", lease.ID, outbox.ErrLeaseLost)
	}

	return nil
}

// ReleaseStaleLocks returns leases older than staleBefore to the pool.
// attempts is left untouched.
func (r *OutboxRepository) ReleaseStaleLocks(ctx context.Context, staleBefore time.Time) (int64, error) {
	const sql = `
		UPDATE outbox_events
		SET status = 'FAILED', locked_by = NULL, locked_at = NULL, next_retry_at = NULL
		WHERE status = 'PROCESSING' AND locked_at < $1
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, sql, staleBefore)
	if err != nil {
		return 0, fmt.Errorf("release stale outbox locks: %w", err)
	}

	return tag.RowsAffected(), nil
}

func (r *OutboxRepository) GetByID(ctx context.Context, id uuid.UUID) (*outbox.Event, error) {
	const sql = `SELECT ` + outboxColumns + ` FROM outbox_events WHERE id = $1`

	e, err := scanEvent(conn(ctx, r.pool).QueryRow(ctx, sql, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, outbox.ErrEventNotFound
		}
		return nil, fmt.Errorf("get outbox event: %w", err)
	}

	return e, nil
}

func (r *OutboxRepository) List(ctx context.Context, filter outbox.ListFilter) ([]*outbox.Event, error) {
	var (
		clauses []string
		args    []any
	)

	if filter.Status != "" {
		args = append(args, filter.Status)
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	if filter.EventType != "" {
		args = append(args, filter.EventType)
		clauses = append(clauses, fmt.Sprintf("event_type = $%d", len(args)))
	}

	if filter.CorrelationID != "" {
		args = append(args, filter.CorrelationID)
		clauses = append(clauses, fmt.Sprintf("correlation_id = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	sql := `SELECT ` + outboxColumns + ` FROM outbox_events`
	if len(clauses) > 0 {
		sql += " WHERE " + strings.Join(clauses, " AND ")
	}

	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY occurred_at ASC, created_at ASC LIMIT $%d", len(args))

	rows, err := conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list outbox events: %w", err)
	}

	return collectEvents(rows)
}

func (r *OutboxRepository) CountByStatus(ctx context.Context) (map[outbox.Status]int64, error) {
	const sql = `SELECT status, COUNT(*) FROM outbox_events GROUP BY status`

	rows, err := conn(ctx, r.pool).Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("count outbox events: %w", err)
	}
	defer rows.Close()

	counts := map[outbox.Status]int64{
		outbox.StatusNew:        0,
		outbox.StatusProcessing: 0,
		outbox.StatusDone:       0,
		outbox.StatusFailed:     0,
	}

	for rows.Next() {
		var (
			status string
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan outbox count: %w", err)
		}
		counts[outbox.Status(status)] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("count outbox events: %w", err)
	}

	return counts, nil
}

// Replay puts a FAILED event back into the pool with a fresh retry budget.
// last_error is kept for history.
func (r *OutboxRepository) Replay(ctx context.Context, id uuid.UUID) error {
	const sql = `
		UPDATE outbox_events
		SET status = 'NEW', attempts = 0, next_retry_at = NULL
		WHERE id = $1 AND status = 'FAILED'
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, sql, id)
	if err != nil {
		return fmt.Errorf("replay outbox event: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}

	return outbox.ErrNotReplayable
}

func collectEvents(rows pgx.Rows) ([]*outbox.Event, error) {
	defer rows.Close()

	var events []*outbox.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read outbox events: %w", err)
	}

	return events, nil
}

func scanEvent(row pgx.Row) (*outbox.Event, error) {
	var (
		e      outbox.Event
		status string
	)

	err := row.Scan(
		&e.ID, &e.EventType, &e.Payload, &e.OccurredAt, &e.CreatedAt,
		&status, &e.Attempts, &e.NextRetryAt,
		&e.LockedBy, &e.LockedAt, &e.LastError, &e.ProcessedAt,
		&e.CorrelationID, &e.TraceID,
	)
	if err != nil {
		return nil, err
	}

	e.Status = outbox.Status(status)
	return &e, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
