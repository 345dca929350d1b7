package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/absence"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AbsenceRepository struct {
	pool *pgxpool.Pool
}

func NewAbsenceRepository(pool *pgxpool.Pool) *AbsenceRepository {
	return &AbsenceRepository{pool: pool}
}

func (r *AbsenceRepository) Create(ctx context.Context, n *absence.Notice) error {
	const sql = `
		INSERT INTO absence_notices (id, student_id, teacher_id, lesson_id, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := conn(ctx, r.pool).Exec(ctx, sql,
		n.ID, n.StudentID, n.TeacherID, n.LessonID, n.Reason, n.Status, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert absence notice: %w", err)
	}

	return nil
}

// GetForUpdate loads a notice and locks its row until the ambient
// transaction ends.
func (r *AbsenceRepository) GetForUpdate(ctx context.Context, id string) (*absence.Notice, error) {
	const sql = `
		SELECT id, student_id, teacher_id, lesson_id, reason, status,
		       COALESCE(reviewer_id, ''), COALESCE(comment, ''), created_at, reviewed_at
		FROM absence_notices
		WHERE id = $1
		FOR UPDATE
	`

	n := &absence.Notice{}
	var status string
	err := conn(ctx, r.pool).QueryRow(ctx, sql, id).Scan(
		&n.ID, &n.StudentID, &n.TeacherID, &n.LessonID, &n.Reason, &status,
		&n.ReviewerID, &n.Comment, &n.CreatedAt, &n.ReviewedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, absence.ErrNotFound
		}
		return nil, fmt.Errorf("get absence notice: %w", err)
	}

	n.Status = absence.Status(status)
	return n, nil
}

func (r *AbsenceRepository) UpdateReview(ctx context.Context, n *absence.Notice) error {
	const sql = `
		UPDATE absence_notices
		SET status = $2, reviewer_id = $3, comment = $4, reviewed_at = $5
		WHERE id = $1
	`

	tag, err := conn(ctx, r.pool).Exec(ctx, sql, n.ID, n.Status, n.ReviewerID, nullIfEmpty(n.Comment), n.ReviewedAt)
	if err != nil {
		return fmt.Errorf("update absence notice: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return absence.ErrNotFound
	}

	return nil
}
