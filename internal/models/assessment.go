package models

import "time"

// PassMark is the minimum score considered a pass.
const PassMark = 75.0

// Assessment is a write-once graded result for a student + module.
// Once Locked it is never mutated through the grading flow.
type Assessment struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"student_id"`
	ModuleCode string    `db:"module_code" json:"module_code"`
	Score      float64   `db:"score" json:"score"`
	MaxScore   float64   `db:"max_score" json:"max_score"`
	Passed     bool      `db:"passed" json:"passed"`
	Locked     bool      `db:"locked" json:"locked"`
	Comments   string    `db:"comments" json:"comments"`
	GradedBy   *string   `db:"graded_by" json:"graded_by,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AssessmentFilter narrows assessment listings.
type AssessmentFilter struct {
	StudentID  string
	ModuleCode string
	Passed     *bool
}
