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

// ExamPoolRepository persists exam sittings and their memberships.
type ExamPoolRepository struct {
	db *sqlx.DB
}

// NewExamPoolRepository constructs the repository.
func NewExamPoolRepository(db *sqlx.DB) *ExamPoolRepository {
	return &ExamPoolRepository{db: db}
}

// List returns upcoming pools with their occupancy.
func (r *ExamPoolRepository) List(ctx context.Context) ([]models.ExamPoolDetail, error) {
	const query = `SELECT p.id, p.title, p.exam_date, p.max_candidates, p.created_at, p.updated_at,
        COUNT(m.id) AS member_count
        FROM exam_pools p
        LEFT JOIN exam_pool_memberships m ON m.pool_id = p.id
        GROUP BY p.id
        ORDER BY p.exam_date ASC`
	var pools []models.ExamPoolDetail
	if err := r.db.SelectContext(ctx, &pools, query); err != nil {
		return nil, fmt.Errorf("list exam pools: %w", err)
	}
	return pools, nil
}

// FindByID returns a pool by identifier.
func (r *ExamPoolRepository) FindByID(ctx context.Context, id string) (*models.ExamPool, error) {
	const query = `SELECT id, title, exam_date, max_candidates, created_at, updated_at FROM exam_pools WHERE id = $1`
	var pool models.ExamPool
	if err := r.db.GetContext(ctx, &pool, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find exam pool: %w", err)
	}
	return &pool, nil
}

// Create persists a new exam pool.
func (r *ExamPoolRepository) Create(ctx context.Context, pool *models.ExamPool) error {
	if pool.ID == "" {
		pool.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if pool.CreatedAt.IsZero() {
		pool.CreatedAt = now
	}
	pool.UpdatedAt = now
	const query = `INSERT INTO exam_pools (id, title, exam_date, max_candidates, created_at, updated_at)
        VALUES (:id, :title, :exam_date, :max_candidates, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, pool); err != nil {
		return fmt.Errorf("create exam pool: %w", err)
	}
	return nil
}

// Members lists pool members with student context.
func (r *ExamPoolRepository) Members(ctx context.Context, poolID string) ([]models.ExamPoolMemberRow, error) {
	const query = `SELECT m.id, m.pool_id, m.student_id, m.module_code, m.created_at,
        s.student_no, u.full_name AS student_name
        FROM exam_pool_memberships m
        JOIN students s ON s.id = m.student_id
        JOIN users u ON u.id = s.user_id
        WHERE m.pool_id = $1
        ORDER BY m.created_at ASC`
	var members []models.ExamPoolMemberRow
	if err := r.db.SelectContext(ctx, &members, query, poolID); err != nil {
		return nil, fmt.Errorf("list pool members: %w", err)
	}
	return members, nil
}

// MembershipsByStudent returns all pool seats held by a student.
func (r *ExamPoolRepository) MembershipsByStudent(ctx context.Context, studentID string) ([]models.ExamPoolMembership, error) {
	const query = `SELECT id, pool_id, student_id, module_code, created_at FROM exam_pool_memberships WHERE student_id = $1 ORDER BY created_at DESC`
	var memberships []models.ExamPoolMembership
	if err := r.db.SelectContext(ctx, &memberships, query, studentID); err != nil {
		return nil, fmt.Errorf("list student memberships: %w", err)
	}
	return memberships, nil
}

// FindForUpdateTx locks the pool row so the capacity check and the
// membership insert are atomic against concurrent joiners.
func (r *ExamPoolRepository) FindForUpdateTx(ctx context.Context, tx *sqlx.Tx, id string) (*models.ExamPool, error) {
	const query = `SELECT id, title, exam_date, max_candidates, created_at, updated_at FROM exam_pools WHERE id = $1 FOR UPDATE`
	var pool models.ExamPool
	if err := tx.GetContext(ctx, &pool, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock exam pool: %w", err)
	}
	return &pool, nil
}

// CountMembersTx counts memberships inside the join transaction.
func (r *ExamPoolRepository) CountMembersTx(ctx context.Context, tx *sqlx.Tx, poolID string) (int, error) {
	const query = `SELECT COUNT(*) FROM exam_pool_memberships WHERE pool_id = $1`
	var count int
	if err := tx.GetContext(ctx, &count, query, poolID); err != nil {
		return 0, fmt.Errorf("count pool members: %w", err)
	}
	return count, nil
}

// MembershipExistsTx reports whether the student already holds a seat.
func (r *ExamPoolRepository) MembershipExistsTx(ctx context.Context, tx *sqlx.Tx, poolID, studentID string) (bool, error) {
	const query = `SELECT 1 FROM exam_pool_memberships WHERE pool_id = $1 AND student_id = $2 LIMIT 1`
	var exists int
	if err := tx.GetContext(ctx, &exists, query, poolID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pool membership: %w", err)
	}
	return true, nil
}

// CreateMembershipTx inserts the seat reservation.
func (r *ExamPoolRepository) CreateMembershipTx(ctx context.Context, tx *sqlx.Tx, membership *models.ExamPoolMembership) error {
	if membership.ID == "" {
		membership.ID = uuid.NewString()
	}
	if membership.CreatedAt.IsZero() {
		membership.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO exam_pool_memberships (id, pool_id, student_id, module_code, created_at)
        VALUES ($1, $2, $3, $4, $5)`
	if _, err := tx.ExecContext(ctx, query, membership.ID, membership.PoolID, membership.StudentID, membership.ModuleCode, membership.CreatedAt); err != nil {
		return fmt.Errorf("create pool membership: %w", err)
	}
	return nil
}
