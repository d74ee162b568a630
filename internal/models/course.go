package models

import "time"

// Cohort groups students admitted in the same intake.
type Cohort struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	IntakeDate time.Time `db:"intake_date" json:"intake_date"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Course is a taught unit tied to a training module and a cohort.
type Course struct {
	ID         string    `db:"id" json:"id"`
	Code       string    `db:"code" json:"code"`
	Title      string    `db:"title" json:"title"`
	ModuleCode string    `db:"module_code" json:"module_code"`
	CohortID   *string   `db:"cohort_id" json:"cohort_id,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// CourseInstructor assigns an instructor user to a course.
type CourseInstructor struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
