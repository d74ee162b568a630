package models

import "time"

// ExamPool represents one exam sitting with bounded capacity.
type ExamPool struct {
	ID            string    `db:"id" json:"id"`
	Title         string    `db:"title" json:"title"`
	ExamDate      time.Time `db:"exam_date" json:"exam_date"`
	MaxCandidates int       `db:"max_candidates" json:"max_candidates"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// ExamPoolDetail enriches a pool with its current occupancy.
type ExamPoolDetail struct {
	ExamPool
	MemberCount int `db:"member_count" json:"member_count"`
}

// ExamPoolMembership binds one student to one pool for a chosen module.
type ExamPoolMembership struct {
	ID         string    `db:"id" json:"id"`
	PoolID     string    `db:"pool_id" json:"pool_id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	ModuleCode string    `db:"module_code" json:"module_code"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ExamPoolMemberRow lists members with student context for staff views.
type ExamPoolMemberRow struct {
	ExamPoolMembership
	StudentNo   *string `db:"student_no" json:"student_no,omitempty"`
	StudentName string  `db:"student_name" json:"student_name"`
}
