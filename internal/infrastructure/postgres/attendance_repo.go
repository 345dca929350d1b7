package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/attendance"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AttendanceRepository struct {
	pool *pgxpool.Pool
}

func NewAttendanceRepository(pool *pgxpool.Pool) *AttendanceRepository {
	return &AttendanceRepository{pool: pool}
}

// Upsert writes the mark for (lesson, student). Re-marking keeps the original
// record id, which is written back into rec.
func (r *AttendanceRepository) Upsert(ctx context.Context, rec *attendance.Record) error {
	const sql = `
		INSERT INTO attendance_records (id, lesson_id, student_id, status, marked_by, marked_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (lesson_id, student_id) DO UPDATE
		SET status = EXCLUDED.status,
		    marked_by = EXCLUDED.marked_by,
		    marked_at = EXCLUDED.marked_at,
		    updated_at = EXCLUDED.updated_at
		RETURNING id, updated_at
	`

	err := conn(ctx, r.pool).QueryRow(ctx, sql,
		rec.ID, rec.LessonID, rec.StudentID, rec.Status, rec.MarkedBy, rec.MarkedAt,
	).Scan(&rec.ID, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert attendance record: %w", err)
	}

	return nil
}

func (r *AttendanceRepository) Get(ctx context.Context, lessonID, studentID string) (*attendance.Record, error) {
	const sql = `
		SELECT id, lesson_id, student_id, status, marked_by, marked_at, updated_at
		FROM attendance_records
		WHERE lesson_id = $1 AND student_id = $2
	`

	rec := &attendance.Record{}
	var status string
	err := conn(ctx, r.pool).QueryRow(ctx, sql, lessonID, studentID).Scan(
		&rec.ID, &rec.LessonID, &rec.StudentID, &status, &rec.MarkedBy, &rec.MarkedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, attendance.ErrNotFound
		}
		return nil, fmt.Errorf("get attendance record: %w", err)
	}

	rec.Status = attendance.Status(status)
	return rec, nil
}
