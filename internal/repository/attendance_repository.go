package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aeropoint/academy-api/internal/models"
)

// AttendanceRepository persists per-session attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// ListByCourseAndDate returns attendance rows for one course session.
func (r *AttendanceRepository) ListByCourseAndDate(ctx context.Context, courseID string, date time.Time) ([]models.AttendanceRow, error) {
	const query = `SELECT a.id, a.course_id, a.student_id, a.date, a.status, a.comment, a.created_at, a.updated_at,
        s.student_no, u.full_name AS student_name
        FROM attendance_records a
        JOIN students s ON s.id = a.student_id
        JOIN users u ON u.id = s.user_id
        WHERE a.course_id = $1 AND a.date = $2
        ORDER BY u.full_name ASC`
	var rows []models.AttendanceRow
	if err := r.db.SelectContext(ctx, &rows, query, courseID, date); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return rows, nil
}

// StudentHistory returns attendance history for a student.
func (r *AttendanceRepository) StudentHistory(ctx context.Context, studentID string, from, to *time.Time) ([]models.AttendanceRecord, error) {
	query := `SELECT id, course_id, student_id, date, status, comment, created_at, updated_at FROM attendance_records WHERE student_id = $1`
	args := []interface{}{studentID}
	if from != nil {
		query += fmt.Sprintf(" AND date >= $%d", len(args)+1)
		args = append(args, *from)
	}
	if to != nil {
		query += fmt.Sprintf(" AND date <= $%d", len(args)+1)
		args = append(args, *to)
	}
	query += " ORDER BY date DESC"
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("attendance history: %w", err)
	}
	return records, nil
}

// BulkUpsertEntry carries one record plus an optional explicit target ID.
type BulkUpsertEntry struct {
	Record     models.AttendanceRecord
	ExistingID string
}

// BulkUpsert applies a batch of attendance entries in one transaction.
// Entries carrying an explicit ExistingID update that row directly; the rest
// are upserted on the (course_id, student_id, date) identity.
func (r *AttendanceRepository) BulkUpsert(ctx context.Context, entries []BulkUpsertEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance upsert: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const updateQuery = `UPDATE attendance_records SET status = $2, comment = $3, updated_at = $4 WHERE id = $1`
	const upsertQuery = `INSERT INTO attendance_records (id, course_id, student_id, date, status, comment, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (course_id, student_id, date)
        DO UPDATE SET status = EXCLUDED.status, comment = EXCLUDED.comment, updated_at = EXCLUDED.updated_at`

	now := time.Now().UTC()
	for i := range entries {
		entry := &entries[i]
		rec := &entry.Record
		if entry.ExistingID != "" {
			if _, err := tx.ExecContext(ctx, updateQuery, entry.ExistingID, rec.Status, rec.Comment, now); err != nil {
				return fmt.Errorf("update attendance record: %w", err)
			}
			continue
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		rec.UpdatedAt = now
		if _, err := tx.ExecContext(ctx, upsertQuery, rec.ID, rec.CourseID, rec.StudentID, rec.Date, rec.Status, rec.Comment, rec.CreatedAt, rec.UpdatedAt); err != nil {
			return fmt.Errorf("upsert attendance record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance upsert: %w", err)
	}
	commit = true
	return nil
}

// IsInstructorAssigned checks the course_instructors membership.
func (r *AttendanceRepository) IsInstructorAssigned(ctx context.Context, courseID, userID string) (bool, error) {
	const query = `SELECT 1 FROM course_instructors WHERE course_id = $1 AND user_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, courseID, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check instructor assignment: %w", err)
	}
	return true, nil
}
